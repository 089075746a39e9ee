package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSystemMetrics() {
	r.UptimeSeconds = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "trafficgraph_uptime_seconds",
			Help: "Seconds since the traffic graph server started serving captures",
		},
	)

	r.GoRoutines = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "trafficgraph_goroutines",
			Help: "Goroutines, including request handlers and pending resize timers",
		},
	)

	r.MemoryAllocBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "trafficgraph_memory_alloc_bytes",
			Help: "Heap bytes in use, dominated by loaded captures and cached hit maps",
		},
	)

	r.MemorySysBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "trafficgraph_memory_sys_bytes",
			Help: "Bytes obtained from the OS by the server process",
		},
	)
}
