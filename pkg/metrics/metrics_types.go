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

	// Snapshot Metrics
	SnapshotLoadsTotal   *prometheus.CounterVec
	SnapshotLoadDuration prometheus.Histogram
	SnapshotLoadedAt     prometheus.Gauge
	FabricPortsTotal     *prometheus.GaugeVec
	FabricEdgesTotal     prometheus.Gauge
	FabricISLsTotal      prometheus.Gauge
	FabricZonesTotal     prometheus.Gauge
	FabricIssuesTotal    *prometheus.GaugeVec

	// Analysis Metrics
	PathQueriesTotal       *prometheus.CounterVec
	PathQueryDuration      prometheus.Histogram
	PathHops               prometheus.Histogram
	AnalysesTotal          *prometheus.CounterVec
	AnalysisDuration       *prometheus.HistogramVec
	OversubscribedNodes    prometheus.Gauge
	OversubscribedISLPairs prometheus.Gauge

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.Mutex
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
	r.initSnapshotMetrics()
	r.initAnalysisMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
