package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FramesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hostmap_frames_total",
		Help: "Total number of frames computed",
	})
	FrameDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hostmap_frame_duration_ms",
		Help:    "Frame computation duration in milliseconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 50, 100},
	})
	DatasetsLoadedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hostmap_datasets_loaded_total",
		Help: "Total number of dataset loads (new builds and snapshot loads)",
	})
	EntitiesActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hostmap_entities_active",
		Help: "Entities in the active dataset",
	})
	MarkersVisible = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hostmap_markers_visible",
		Help: "Markers visible in the most recent frame",
	})
	SnapshotBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hostmap_snapshot_bytes",
		Help: "Size of the most recently written snapshot file",
	})
)

func init() {
	prometheus.MustRegister(FramesTotal)
	prometheus.MustRegister(FrameDurationMs)
	prometheus.MustRegister(DatasetsLoadedTotal)
	prometheus.MustRegister(EntitiesActive)
	prometheus.MustRegister(MarkersVisible)
	prometheus.MustRegister(SnapshotBytes)
}

// Handler returns the Prometheus scrape handler for mounting on /metrics.
func Handler() http.Handler { return promhttp.Handler() }
