package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initInteractionMetrics() {
	r.RelayoutsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafficgraph_relayouts_total",
			Help: "Total number of graph rebuilds triggered by interaction",
		},
		[]string{"reason"}, // resize, selection, records
	)

	r.ResizeCoalescedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "trafficgraph_resize_events_coalesced_total",
			Help: "Resize events superseded by a later event inside the debounce window",
		},
	)

	r.SelectionChangesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "trafficgraph_selection_changes_total",
			Help: "Total number of category selection changes",
		},
		[]string{"category"}, // internal, proxy, dns, external, none
	)
}
