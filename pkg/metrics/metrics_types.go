package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Graph Metrics
	GraphBuildsTotal    prometheus.Counter
	GraphBuildDuration  prometheus.Histogram
	GraphNodes          prometheus.Gauge
	GraphLinks          prometheus.Gauge
	TargetsEvicted      *prometheus.GaugeVec

	// Render Metrics
	RenderDuration *prometheus.HistogramVec
	RenderErrors   *prometheus.CounterVec

	// Interaction Metrics
	RelayoutsTotal        *prometheus.CounterVec
	ResizeCoalescedTotal  prometheus.Counter
	SelectionChangesTotal *prometheus.CounterVec

	// Ingest Metrics
	IngestPacketsTotal prometheus.Counter
	IngestRecordsTotal prometheus.Counter
	IngestErrorsTotal  *prometheus.CounterVec
	CapturesLoaded     prometheus.Gauge

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initHTTPMetrics()
	r.initGraphMetrics()
	r.initRenderMetrics()
	r.initInteractionMetrics()
	r.initIngestMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
