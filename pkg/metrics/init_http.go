package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Graph JSON and tables answer in milliseconds; a 1920 wide PNG takes
// tens to hundreds.
var httpDurationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}

// Sizes run from a health probe to a large PNG.
var httpSizeBuckets = []float64{256, 4 << 10, 64 << 10, 256 << 10, 1 << 20, 4 << 20, 16 << 20}

func (r *Registry) initHTTPMetrics() {
	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafficgraph_http_requests_total",
			Help: "Graph, image, table and capture API requests by route pattern and status",
		},
		[]string{"method", "path", "status"},
	)

	r.HTTPRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trafficgraph_http_request_duration_seconds",
			Help:    "API latency by route pattern; PNG routes include rasterizing and encoding",
			Buckets: httpDurationBuckets,
		},
		[]string{"method", "path", "status"},
	)

	r.HTTPRequestsInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "trafficgraph_http_requests_in_flight",
			Help: "API requests currently being served",
		},
	)

	r.HTTPResponseSizeBytes = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trafficgraph_http_response_size_bytes",
			Help:    "API response size by route pattern, from small JSON tables to full-width PNGs",
			Buckets: httpSizeBuckets,
		},
		[]string{"method", "path"},
	)
}
