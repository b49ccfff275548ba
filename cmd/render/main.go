// render produces an offline SVG snapshot of a dataset without running the
// server, for quick palette and layout checks.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/weronikagajda/Citography-hostmap.github.io/globe"
	"github.com/weronikagajda/Citography-hostmap.github.io/hostmap"
	"github.com/weronikagajda/Citography-hostmap.github.io/internal/logger"
	"github.com/weronikagajda/Citography-hostmap.github.io/render"
)

func main() {
	refPath := flag.String("references", "", "Path to a domain references CSV")
	snapshot := flag.String("snapshot", "", "Path to a dataset snapshot (.zst or .mzst); overrides -references")
	outPath := flag.String("o", "hostmap.svg", "Output SVG path")
	stylePath := flag.String("style", "", "Optional YAML style file")
	width := flag.Int("width", 960, "Viewport width in pixels")
	height := flag.Int("height", 600, "Viewport height in pixels")
	scale := flag.Float64("scale", 1, "Zoom scale")
	lon := flag.Float64("lon", 0, "Center longitude")
	lat := flag.Float64("lat", 0, "Center latitude")
	projection := flag.String("projection", globe.ProjectionOrthographic, "Projection: orthographic, equirectangular or mercator")
	flag.Parse()

	log := logger.Setup()

	var d *globe.Dataset
	switch {
	case *snapshot != "":
		var err error
		if d, err = loadSnapshot(*snapshot); err != nil {
			log.Error("failed to load snapshot", "path", *snapshot, "error", err)
			os.Exit(1)
		}
	case *refPath != "":
		records, err := hostmap.ReadReferences(*refPath)
		if err != nil {
			log.Error("failed to read references", "path", *refPath, "error", err)
			os.Exit(1)
		}
		d = hostmap.BuildDataset("render", records, nil)
	default:
		fmt.Fprintln(os.Stderr, "one of -references or -snapshot is required")
		flag.Usage()
		os.Exit(2)
	}

	style := render.DefaultStyle()
	if *stylePath != "" {
		var err error
		if style, err = render.LoadStyle(*stylePath); err != nil {
			log.Error("failed to load style", "path", *stylePath, "error", err)
			os.Exit(1)
		}
	}

	en := globe.NewEngine(globe.LayoutOptions{})
	en.SetViewport(globe.Viewport{
		Scale: *scale, Width: float64(*width), Height: float64(*height),
		CenterLon: *lon, CenterLat: *lat, Projection: *projection,
	})
	en.SetDataset(d)
	frame := en.Frame()

	svg := render.SVG(*frame, style)
	if err := os.WriteFile(*outPath, []byte(svg), 0o644); err != nil {
		log.Error("failed to write SVG", "path", *outPath, "error", err)
		os.Exit(1)
	}
	log.Info("rendered", "out", *outPath, "entities", len(d.Entities), "commands", len(frame.Commands))
}

func loadSnapshot(path string) (*globe.Dataset, error) {
	if strings.HasSuffix(path, ".mzst") {
		return globe.LoadCompressedMMap(path)
	}
	return globe.LoadCompressedDataset(path)
}
