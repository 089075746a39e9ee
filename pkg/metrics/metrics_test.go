package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric dto.Metric
	if err := g.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Gauge.GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	if r.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal not initialized")
	}
	if r.GraphBuildsTotal == nil {
		t.Error("GraphBuildsTotal not initialized")
	}
	if r.RenderDuration == nil {
		t.Error("RenderDuration not initialized")
	}
	if r.RelayoutsTotal == nil {
		t.Error("RelayoutsTotal not initialized")
	}
	if r.IngestPacketsTotal == nil {
		t.Error("IngestPacketsTotal not initialized")
	}
	if r.registry == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	r1 := DefaultRegistry()
	r2 := DefaultRegistry()

	if r1 != r2 {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	r := NewRegistry()

	r.RecordHTTPRequest("GET", "/pcaps", "200", 100*time.Millisecond)
	r.RecordHTTPRequest("POST", "/graph", "200", 200*time.Millisecond)
	r.RecordHTTPRequest("GET", "/pcaps", "404", 50*time.Millisecond)

	counter, err := r.HTTPRequestsTotal.GetMetricWithLabelValues("GET", "/pcaps", "200")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	if v := counterValue(t, counter); v != 1 {
		t.Errorf("Counter value = %v, want 1", v)
	}
}

func TestResponseSizeBuckets(t *testing.T) {
	r := NewRegistry()

	// A small table page and a full-width PNG land in different buckets.
	r.RecordResponseSize("GET", "GET /pcaps/{id}/table", 3000)
	r.RecordResponseSize("GET", "GET /pcaps/{id}/graph.png", 2<<20)

	var metric dto.Metric
	obs, err := r.HTTPResponseSizeBytes.GetMetricWithLabelValues("GET", "GET /pcaps/{id}/graph.png")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	if err := obs.(prometheus.Metric).Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	buckets := metric.Histogram.GetBucket()
	if len(buckets) != len(httpSizeBuckets) {
		t.Fatalf("buckets = %d, want %d", len(buckets), len(httpSizeBuckets))
	}
	if top := buckets[len(buckets)-1].GetUpperBound(); top != 16<<20 {
		t.Errorf("top bucket = %v, want %v", top, 16<<20)
	}
	if c := buckets[4].GetCumulativeCount(); c != 0 {
		t.Errorf("PNG counted under 1MiB: %d", c)
	}
}

func TestRecordGraphBuild(t *testing.T) {
	r := NewRegistry()

	r.RecordGraphBuild(2*time.Millisecond, 11, 1)
	r.RecordGraphBuild(3*time.Millisecond, 30, 12)

	if v := counterValue(t, r.GraphBuildsTotal); v != 2 {
		t.Errorf("builds = %v, want 2", v)
	}
	if v := gaugeValue(t, r.GraphNodes); v != 30 {
		t.Errorf("nodes = %v, want 30 (last build)", v)
	}
	if v := gaugeValue(t, r.GraphLinks); v != 12 {
		t.Errorf("links = %v, want 12", v)
	}

	var metric dto.Metric
	if err := r.GraphBuildDuration.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 2 {
		t.Errorf("Sample count = %v, want 2", metric.Histogram.GetSampleCount())
	}
}

func TestRecordTargetsEvicted(t *testing.T) {
	r := NewRegistry()

	// Rebuilding the same graph must not add up.
	r.RecordTargetsEvicted("external", 5)
	r.RecordTargetsEvicted("external", 5)
	r.RecordTargetsEvicted("dns", 3)
	r.RecordTargetsEvicted("dns", 0)

	if v := gaugeValue(t, r.TargetsEvicted.WithLabelValues("external")); v != 5 {
		t.Errorf("external evicted = %v, want 5", v)
	}
	if v := gaugeValue(t, r.TargetsEvicted.WithLabelValues("dns")); v != 0 {
		t.Errorf("dns evicted = %v, want 0", v)
	}
}

func TestRecordRender(t *testing.T) {
	r := NewRegistry()

	r.RecordRender("visual", 10*time.Millisecond, nil)
	r.RecordRender("hitmap", 0, errors.New("no surface"))

	histogram, err := r.RenderDuration.GetMetricWithLabelValues("visual")
	if err != nil {
		t.Fatalf("Failed to get histogram: %v", err)
	}
	var metric dto.Metric
	if err := histogram.(prometheus.Histogram).Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 1 {
		t.Errorf("Sample count = %v, want 1", metric.Histogram.GetSampleCount())
	}

	if v := counterValue(t, r.RenderErrors.WithLabelValues("hitmap")); v != 1 {
		t.Errorf("hitmap errors = %v, want 1", v)
	}
}

func TestInteractionMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordRelayout("resize")
	r.RecordRelayout("selection")
	r.RecordRelayout("selection")
	r.RecordResizeCoalesced()
	r.RecordSelection("dns")
	r.RecordSelection("")

	if v := counterValue(t, r.RelayoutsTotal.WithLabelValues("selection")); v != 2 {
		t.Errorf("selection relayouts = %v, want 2", v)
	}
	if v := counterValue(t, r.ResizeCoalescedTotal); v != 1 {
		t.Errorf("coalesced = %v, want 1", v)
	}
	if v := counterValue(t, r.SelectionChangesTotal.WithLabelValues("none")); v != 1 {
		t.Errorf("deselects = %v, want 1", v)
	}
}

func TestIngestMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordIngest(120, 4)
	r.RecordIngest(30, 1)
	r.RecordIngestError("decode")
	r.SetCapturesLoaded(3)

	if v := counterValue(t, r.IngestPacketsTotal); v != 150 {
		t.Errorf("packets = %v, want 150", v)
	}
	if v := counterValue(t, r.IngestRecordsTotal); v != 5 {
		t.Errorf("records = %v, want 5", v)
	}
	if v := counterValue(t, r.IngestErrorsTotal.WithLabelValues("decode")); v != 1 {
		t.Errorf("decode errors = %v, want 1", v)
	}
	if v := gaugeValue(t, r.CapturesLoaded); v != 3 {
		t.Errorf("captures = %v, want 3", v)
	}
}

func TestSystemMetrics(t *testing.T) {
	r := NewRegistry()

	r.UpdateSystemMetrics(time.Now().Add(-time.Minute))

	if v := gaugeValue(t, r.UptimeSeconds); v < 60 {
		t.Errorf("uptime = %v, want >= 60", v)
	}
	if v := gaugeValue(t, r.GoRoutines); v < 1 {
		t.Errorf("goroutines = %v, want >= 1", v)
	}
	if v := gaugeValue(t, r.MemoryAllocBytes); v <= 0 {
		t.Errorf("alloc = %v, want > 0", v)
	}
}

func TestGetPrometheusRegistry(t *testing.T) {
	r := NewRegistry()
	promRegistry := r.GetPrometheusRegistry()

	if promRegistry == nil {
		t.Fatal("GetPrometheusRegistry() returned nil")
	}

	metrics, err := promRegistry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	if len(metrics) == 0 {
		t.Error("No metrics registered")
	}

	// Vectors only show up once a label set exists; plain metrics always do.
	expectedMetrics := []string{
		"trafficgraph_graph_builds_total",
		"trafficgraph_resize_events_coalesced_total",
		"trafficgraph_ingest_packets_total",
		"trafficgraph_uptime_seconds",
	}

	metricNames := make(map[string]bool)
	for _, m := range metrics {
		metricNames[m.GetName()] = true
	}

	for _, expected := range expectedMetrics {
		if !metricNames[expected] {
			t.Errorf("Expected metric %s not found", expected)
		}
	}
}

func TestConcurrentMetricUpdates(t *testing.T) {
	r := NewRegistry()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				r.RecordGraphBuild(time.Millisecond, 8, 0)
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	if v := counterValue(t, r.GraphBuildsTotal); v != 1000 {
		t.Errorf("Counter = %v, want 1000", v)
	}
}

func TestMetricNaming(t *testing.T) {
	r := NewRegistry()
	r.RecordTargetsEvicted("dns", 1)
	r.RecordRelayout("resize")

	metrics, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	for _, m := range metrics {
		name := m.GetName()
		if !strings.HasPrefix(name, "trafficgraph_") {
			t.Errorf("Metric %s does not have trafficgraph_ prefix", name)
		}
	}
}

func BenchmarkRecordHTTPRequest(b *testing.B) {
	r := NewRegistry()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.RecordHTTPRequest("GET", "/pcaps", "200", 10*time.Millisecond)
	}
}

func BenchmarkRecordGraphBuild(b *testing.B) {
	r := NewRegistry()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.RecordGraphBuild(time.Millisecond, 30, 12)
	}
}
