package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric dto.Metric
	if err := g.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Gauge.GetValue()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func histogramCount(t *testing.T, h prometheus.Observer) uint64 {
	t.Helper()
	var metric dto.Metric
	if err := h.(prometheus.Metric).Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Histogram.GetSampleCount()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	if r.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal not initialized")
	}
	if r.SnapshotLoadsTotal == nil {
		t.Error("SnapshotLoadsTotal not initialized")
	}
	if r.FabricPortsTotal == nil {
		t.Error("FabricPortsTotal not initialized")
	}
	if r.PathQueriesTotal == nil {
		t.Error("PathQueriesTotal not initialized")
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

	r.RecordHTTPRequest("GET", "/oversubscription", "200", 100*time.Millisecond)
	r.RecordHTTPRequest("POST", "/path", "200", 200*time.Millisecond)
	r.RecordHTTPRequest("GET", "/oversubscription", "503", 50*time.Millisecond)

	counter, err := r.HTTPRequestsTotal.GetMetricWithLabelValues("GET", "/oversubscription", "200")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	if got := counterValue(t, counter); got != 1 {
		t.Errorf("Counter value = %v, want 1", got)
	}
}

func TestRecordSnapshotLoad(t *testing.T) {
	r := NewRegistry()
	loadedAt := time.Unix(1_700_000_000, 0)

	r.RecordSnapshotLoad(FabricCounts{
		Initiators:  4,
		Targets:     2,
		SwitchPorts: 8,
		Edges:       20,
		ISLs:        1,
		Zones:       3,
		Issues:      map[string]int{"malformed_speed": 2},
		LoadedAt:    loadedAt,
	}, 10*time.Millisecond, nil)

	tests := []struct {
		name     string
		gauge    prometheus.Gauge
		expected float64
	}{
		{"initiators", r.FabricPortsTotal.WithLabelValues("initiator"), 4},
		{"targets", r.FabricPortsTotal.WithLabelValues("target"), 2},
		{"switch ports", r.FabricPortsTotal.WithLabelValues("switch"), 8},
		{"edges", r.FabricEdgesTotal, 20},
		{"isls", r.FabricISLsTotal, 1},
		{"zones", r.FabricZonesTotal, 3},
		{"issues", r.FabricIssuesTotal.WithLabelValues("malformed_speed"), 2},
		{"loaded at", r.SnapshotLoadedAt, float64(loadedAt.Unix())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gaugeValue(t, tt.gauge); got != tt.expected {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.expected)
			}
		})
	}

	if got := counterValue(t, r.SnapshotLoadsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("success loads = %v, want 1", got)
	}
	if got := histogramCount(t, r.SnapshotLoadDuration); got != 1 {
		t.Errorf("load duration samples = %v, want 1", got)
	}
}

func TestRecordSnapshotLoad_Failure(t *testing.T) {
	r := NewRegistry()

	r.RecordSnapshotLoad(FabricCounts{Edges: 5}, 0, nil)
	r.RecordSnapshotLoad(FabricCounts{Edges: 99}, 0, errors.New("bad input"))

	if got := counterValue(t, r.SnapshotLoadsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("error loads = %v, want 1", got)
	}
	if got := gaugeValue(t, r.FabricEdgesTotal); got != 5 {
		t.Errorf("edges = %v, want 5 (failed load must not move gauges)", got)
	}
}

func TestUpdateFabricMetrics_ResetsIssueKinds(t *testing.T) {
	r := NewRegistry()

	r.UpdateFabricMetrics(FabricCounts{Issues: map[string]int{"duplicate_port": 3}})
	r.UpdateFabricMetrics(FabricCounts{Issues: map[string]int{"malformed_speed": 1}})

	families, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	for _, f := range families {
		if f.GetName() != "fabric_issues_total" {
			continue
		}
		if len(f.GetMetric()) != 1 {
			t.Fatalf("issue series = %d, want 1", len(f.GetMetric()))
		}
		label := f.GetMetric()[0].GetLabel()[0]
		if label.GetValue() != "malformed_speed" {
			t.Errorf("kind = %s, want malformed_speed", label.GetValue())
		}
		return
	}
	t.Error("fabric_issues_total not gathered")
}

func TestRecordPathQuery(t *testing.T) {
	r := NewRegistry()

	r.RecordPathQuery(PathFound, 3, time.Millisecond)
	r.RecordPathQuery(PathFound, 5, time.Millisecond)
	r.RecordPathQuery(PathNoRoute, 0, time.Millisecond)

	if got := counterValue(t, r.PathQueriesTotal.WithLabelValues(PathFound)); got != 2 {
		t.Errorf("found = %v, want 2", got)
	}
	if got := counterValue(t, r.PathQueriesTotal.WithLabelValues(PathNoRoute)); got != 1 {
		t.Errorf("no_route = %v, want 1", got)
	}
	if got := histogramCount(t, r.PathHops); got != 2 {
		t.Errorf("hop samples = %v, want 2", got)
	}
	if got := histogramCount(t, r.PathQueryDuration); got != 3 {
		t.Errorf("duration samples = %v, want 3", got)
	}
}

func TestRecordAnalysis(t *testing.T) {
	r := NewRegistry()

	r.RecordAnalysis(AnalysisNodes, time.Millisecond, nil)
	r.RecordAnalysis(AnalysisConnectivity, time.Millisecond, errors.New("host not mapped"))

	if got := counterValue(t, r.AnalysesTotal.WithLabelValues(AnalysisNodes, "success")); got != 1 {
		t.Errorf("nodes success = %v, want 1", got)
	}
	if got := counterValue(t, r.AnalysesTotal.WithLabelValues(AnalysisConnectivity, "error")); got != 1 {
		t.Errorf("connectivity error = %v, want 1", got)
	}
}

func TestSetOversubscription(t *testing.T) {
	r := NewRegistry()

	r.SetOversubscription(2, 1)
	r.SetOversubscription(-1, 0)

	if got := gaugeValue(t, r.OversubscribedNodes); got != 2 {
		t.Errorf("nodes = %v, want 2", got)
	}
	if got := gaugeValue(t, r.OversubscribedISLPairs); got != 0 {
		t.Errorf("isl pairs = %v, want 0", got)
	}
}

func TestSystemMetrics(t *testing.T) {
	r := NewRegistry()

	r.UpdateSystemMetrics(time.Now().Add(-time.Hour))

	if got := gaugeValue(t, r.UptimeSeconds); got < 3600 {
		t.Errorf("UptimeSeconds = %v, want >= 3600", got)
	}
	if got := gaugeValue(t, r.GoRoutines); got < 1 {
		t.Errorf("GoRoutines = %v, want >= 1", got)
	}
	if got := gaugeValue(t, r.MemorySysBytes); got <= 0 {
		t.Errorf("MemorySysBytes = %v, want > 0", got)
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

	expectedMetrics := []string{
		"fabric_edges_total",
		"fabric_snapshot_load_duration_seconds",
		"fabric_uptime_seconds",
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
				r.RecordPathQuery(PathFound, 2, time.Microsecond)
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if got := counterValue(t, r.PathQueriesTotal.WithLabelValues(PathFound)); got != 1000 {
		t.Errorf("Counter = %v, want 1000", got)
	}
}

func TestMetricNaming(t *testing.T) {
	r := NewRegistry()
	r.RecordSnapshotLoad(FabricCounts{Issues: map[string]int{"x": 1}}, 0, nil)
	r.RecordPathQuery(PathFound, 1, 0)
	r.RecordAnalysis(AnalysisISL, 0, nil)

	metrics, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	for _, m := range metrics {
		if name := m.GetName(); !strings.HasPrefix(name, "fabric_") {
			t.Errorf("Metric %s does not have fabric_ prefix", name)
		}
	}
}

func BenchmarkRecordHTTPRequest(b *testing.B) {
	r := NewRegistry()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.RecordHTTPRequest("GET", "/oversubscription", "200", 10*time.Millisecond)
	}
}

func BenchmarkRecordPathQuery(b *testing.B) {
	r := NewRegistry()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.RecordPathQuery(PathFound, 3, time.Microsecond)
	}
}
