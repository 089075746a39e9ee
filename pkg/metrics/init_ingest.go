package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initIngestMetrics() {
	r.IngestPacketsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "trafficgraph_ingest_packets_total",
			Help: "Total number of packets read from captures",
		},
	)

	r.IngestRecordsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "trafficgraph_ingest_records_total",
			Help: "Total number of conversation records produced by ingestion",
		},
	)

	r.IngestErrorsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafficgraph_ingest_errors_total",
			Help: "Total number of ingestion errors",
		},
		[]string{"stage"}, // open, read, decode, snapshot
	)

	r.CapturesLoaded = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "trafficgraph_captures_loaded",
			Help: "Number of captures currently served",
		},
	)
}
