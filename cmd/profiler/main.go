package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/weronikagajda/Citography-hostmap.github.io/globe"
)

var (
	cpuprofile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memprofile  = flag.String("memprofile", "", "write memory profile to file")
	heapprofile = flag.String("heapprofile", "", "write heap profile to file")
	numEntities = flag.Int("entities", 100000, "number of entities to generate")
	zoomScale   = flag.Float64("zoom", 8, "zoom scale to profile")
	testall     = flag.Bool("testall", false, "test all configurations")
)

func newEngine(n int, zoom float64) *globe.Engine {
	en := globe.NewEngine(globe.LayoutOptions{})
	en.SetViewport(globe.Viewport{Scale: zoom, Width: 1920, Height: 1080, Projection: globe.ProjectionOrthographic})
	en.SetDataset(&globe.Dataset{
		Name:     "profile",
		Entities: globe.GenerateTestEntities(n, 42),
	})
	return en
}

func runSingleProfile(numEntities int, zoomScale float64) {
	fmt.Printf("Profiling with %d entities at zoom scale %.1f\n", numEntities, zoomScale)

	en := newEngine(numEntities, zoomScale)

	var memStatsBefore, memStatsAfter runtime.MemStats
	runtime.ReadMemStats(&memStatsBefore)

	start := time.Now()
	frame := en.Frame()
	duration := time.Since(start)

	runtime.ReadMemStats(&memStatsAfter)
	allocMB := float64(memStatsAfter.TotalAlloc-memStatsBefore.TotalAlloc) / 1024 / 1024

	visible := 0
	for _, c := range frame.Commands {
		if c.Visible {
			visible++
		}
	}

	fmt.Printf("Frame computed in %v (%d commands, %d visible)\n", duration, len(frame.Commands), visible)
	fmt.Printf("Memory allocated: %.2f MB\n", allocMB)
	fmt.Printf("Memory usage: %.2f MB\n", float64(memStatsAfter.Alloc)/1024/1024)
}

func runProfileBattery() {
	entityCounts := []int{1000, 10000, 50000, 100000}
	zoomScales := []float64{1, 2, 4, 8, 16}

	fmt.Println("Running comprehensive profile battery...")
	fmt.Println("=======================================")

	fmt.Printf("%-10s | %-10s | %-12s | %-15s | %-12s | %-10s\n",
		"Entities", "Zoom", "Unfolded", "Duration", "Memory (MB)", "GC Runs")
	fmt.Printf("%s\n", "------------------------------------------------------------------------")

	for _, n := range entityCounts {
		for _, zoom := range zoomScales {
			en := newEngine(n, zoom)
			opts := en.Options()

			unfolded := "no"
			if zoom >= opts.UnfoldZoomThreshold {
				unfolded = "yes"
			}

			var memStatsBefore, memStatsAfter runtime.MemStats
			runtime.ReadMemStats(&memStatsBefore)

			start := time.Now()
			en.Frame()
			duration := time.Since(start)

			runtime.ReadMemStats(&memStatsAfter)
			memMB := float64(memStatsAfter.TotalAlloc-memStatsBefore.TotalAlloc) / 1024 / 1024
			gcRuns := memStatsAfter.NumGC - memStatsBefore.NumGC

			fmt.Printf("%-10d | %-10.1f | %-12s | %-15s | %-12.2f | %-10d\n",
				n, zoom, unfolded, duration, memMB, gcRuns)
		}

		fmt.Printf("%s\n", "------------------------------------------------------------------------")
	}
}

func main() {
	flag.Parse()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			return
		}
		defer f.Close()

		fmt.Println("Starting CPU profiling...")
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			return
		}
		defer pprof.StopCPUProfile()
	}

	if *testall {
		runProfileBattery()
	} else {
		runSingleProfile(*numEntities, *zoomScale)
	}

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create memory profile: %v\n", err)
			return
		}
		defer f.Close()
		runtime.GC() // Get up-to-date statistics
		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not write memory profile: %v\n", err)
		}
	}

	if *heapprofile != "" {
		f, err := os.Create(*heapprofile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create heap profile: %v\n", err)
			return
		}
		defer f.Close()

		memProfile := pprof.Lookup("heap")
		if memProfile == nil {
			fmt.Fprintf(os.Stderr, "Could not find heap profile\n")
			return
		}

		if err := memProfile.WriteTo(f, 0); err != nil {
			fmt.Fprintf(os.Stderr, "Could not write heap profile: %v\n", err)
		}
	}
}
