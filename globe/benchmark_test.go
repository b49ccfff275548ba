package globe

import (
	"fmt"
	"runtime"
	"testing"
)

// benchmarkUnfold measures one full group+layout pass over n entities.
func benchmarkUnfold(b *testing.B, numEntities int, zoom float64) {
	opts := LayoutOptions{}.Normalize()
	entities := GenerateTestEntities(numEntities, 42)

	var memStatsBefore, memStatsAfter runtime.MemStats
	runtime.ReadMemStats(&memStatsBefore)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		grouping := GroupByCoordinate(entities)
		Unfold(grouping, zoom, opts)
	}
	b.StopTimer()

	runtime.ReadMemStats(&memStatsAfter)
	allocMB := float64(memStatsAfter.TotalAlloc-memStatsBefore.TotalAlloc) / 1024 / 1024
	b.ReportMetric(allocMB, "MB/op")
}

func BenchmarkUnfold1kCollapsed(b *testing.B)  { benchmarkUnfold(b, 1000, 1) }
func BenchmarkUnfold1kUnfolded(b *testing.B)   { benchmarkUnfold(b, 1000, 8) }
func BenchmarkUnfold10kUnfolded(b *testing.B)  { benchmarkUnfold(b, 10000, 8) }
func BenchmarkUnfold100kUnfolded(b *testing.B) { benchmarkUnfold(b, 100000, 8) }

func benchmarkFrame(b *testing.B, numEntities int, projection string) {
	en := NewEngine(LayoutOptions{})
	en.SetDataset(&Dataset{Entities: GenerateTestEntities(numEntities, 42)})
	en.SetViewport(Viewport{Scale: 6, Width: 1280, Height: 800, Projection: projection})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		frame := en.Frame()
		if len(frame.Commands) != numEntities {
			b.Fatalf("unexpected command count %d", len(frame.Commands))
		}
	}
}

func BenchmarkFrameOrthographic(b *testing.B) {
	benchmarkFrame(b, 10000, ProjectionOrthographic)
}

func BenchmarkFrameEquirectangular(b *testing.B) {
	benchmarkFrame(b, 10000, ProjectionEquirectangular)
}

func BenchmarkHash01(b *testing.B) {
	keys := make([]string, 64)
	for i := range keys {
		keys[i] = fmt.Sprintf("domain-%02d.example", i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Hash01(keys[i%len(keys)])
	}
}
