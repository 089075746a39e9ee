package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGraphMetrics() {
	r.GraphBuildsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "trafficgraph_graph_builds_total",
			Help: "Total number of graph builds",
		},
	)

	r.GraphBuildDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trafficgraph_graph_build_duration_seconds",
			Help:    "Time to classify records and lay out a graph",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	r.GraphNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "trafficgraph_graph_nodes",
			Help: "Number of nodes in the most recently built graph",
		},
	)

	r.GraphLinks = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "trafficgraph_graph_links",
			Help: "Number of links in the most recently built graph",
		},
	)

	r.TargetsEvicted = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trafficgraph_graph_targets_evicted",
			Help: "Targets left out of each category block by the top-K limit in the most recently built graph",
		},
		[]string{"category"},
	)
}
