package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRenderMetrics() {
	r.RenderDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trafficgraph_render_duration_seconds",
			Help:    "Time to paint a graph in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"pass"}, // visual, hitmap
	)

	r.RenderErrors = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafficgraph_render_errors_total",
			Help: "Total number of failed renders",
		},
		[]string{"pass"},
	)
}
