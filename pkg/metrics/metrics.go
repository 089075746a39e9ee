package metrics

import (
	"runtime"
	"time"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordResponseSize observes the size of an HTTP response body
func (r *Registry) RecordResponseSize(method, path string, size float64) {
	r.HTTPResponseSizeBytes.WithLabelValues(method, path).Observe(size)
}

// IncHTTPRequestsInFlight marks a request as started
func (r *Registry) IncHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight marks a request as finished
func (r *Registry) DecHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Dec()
}

// RecordGraphBuild records one graph build and the size of its result
func (r *Registry) RecordGraphBuild(duration time.Duration, nodes, links int) {
	r.GraphBuildsTotal.Inc()
	r.GraphBuildDuration.Observe(duration.Seconds())
	r.GraphNodes.Set(float64(nodes))
	r.GraphLinks.Set(float64(links))
}

// RecordTargetsEvicted sets how many targets a category block of the last
// built graph could not show. Rebuilding the same records sets the same value.
func (r *Registry) RecordTargetsEvicted(category string, n int) {
	r.TargetsEvicted.WithLabelValues(category).Set(float64(n))
}

// RecordRender records a paint pass; a non-nil err counts as a failure
func (r *Registry) RecordRender(pass string, duration time.Duration, err error) {
	if err != nil {
		r.RenderErrors.WithLabelValues(pass).Inc()
		return
	}
	r.RenderDuration.WithLabelValues(pass).Observe(duration.Seconds())
}

// RecordRelayout counts a rebuild triggered by interaction
func (r *Registry) RecordRelayout(reason string) {
	r.RelayoutsTotal.WithLabelValues(reason).Inc()
}

// RecordResizeCoalesced counts a resize event dropped by the debouncer
func (r *Registry) RecordResizeCoalesced() {
	r.ResizeCoalescedTotal.Inc()
}

// RecordSelection counts a selection change; category is "none" on deselect
func (r *Registry) RecordSelection(category string) {
	if category == "" {
		category = "none"
	}
	r.SelectionChangesTotal.WithLabelValues(category).Inc()
}

// RecordIngest records the outcome of decoding one capture
func (r *Registry) RecordIngest(packets, records int) {
	r.IngestPacketsTotal.Add(float64(packets))
	r.IngestRecordsTotal.Add(float64(records))
}

// RecordIngestError counts an ingestion failure at the given stage
func (r *Registry) RecordIngestError(stage string) {
	r.IngestErrorsTotal.WithLabelValues(stage).Inc()
}

// SetCapturesLoaded sets the number of captures currently served
func (r *Registry) SetCapturesLoaded(n int) {
	r.CapturesLoaded.Set(float64(n))
}

// UpdateSystemMetrics samples uptime, goroutines and memory
func (r *Registry) UpdateSystemMetrics(startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	r.UptimeSeconds.Set(time.Since(startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
}
