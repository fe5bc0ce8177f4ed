package metrics

import (
	"runtime"
	"time"
)

// Path query outcomes
const (
	PathFound   = "found"
	PathNoRoute = "no_route"
	PathError   = "error"
)

// Analysis types
const (
	AnalysisNodes        = "nodes"
	AnalysisISL          = "isl"
	AnalysisCombined     = "combined"
	AnalysisConnectivity = "connectivity"
)

// FabricCounts is the shape of a loaded snapshot as seen by the gauges.
type FabricCounts struct {
	Initiators  int
	Targets     int
	SwitchPorts int
	Edges       int
	ISLs        int
	Zones       int
	Issues      map[string]int
	LoadedAt    time.Time
}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordSnapshotLoad records a load attempt. Gauges only move on success.
func (r *Registry) RecordSnapshotLoad(counts FabricCounts, duration time.Duration, err error) {
	if err != nil {
		r.SnapshotLoadsTotal.WithLabelValues("error").Inc()
		return
	}
	r.SnapshotLoadsTotal.WithLabelValues("success").Inc()
	r.SnapshotLoadDuration.Observe(duration.Seconds())
	r.UpdateFabricMetrics(counts)
}

// UpdateFabricMetrics replaces the fabric gauges with counts.
func (r *Registry) UpdateFabricMetrics(counts FabricCounts) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.FabricPortsTotal.WithLabelValues("initiator").Set(float64(counts.Initiators))
	r.FabricPortsTotal.WithLabelValues("target").Set(float64(counts.Targets))
	r.FabricPortsTotal.WithLabelValues("switch").Set(float64(counts.SwitchPorts))
	r.FabricEdgesTotal.Set(float64(counts.Edges))
	r.FabricISLsTotal.Set(float64(counts.ISLs))
	r.FabricZonesTotal.Set(float64(counts.Zones))

	// Kinds absent from this snapshot must not keep the previous value.
	r.FabricIssuesTotal.Reset()
	for kind, n := range counts.Issues {
		r.FabricIssuesTotal.WithLabelValues(kind).Set(float64(n))
	}
	if !counts.LoadedAt.IsZero() {
		r.SnapshotLoadedAt.Set(float64(counts.LoadedAt.Unix()))
	}
}

// RecordPathQuery records a path query. hops is ignored unless the result
// is PathFound.
func (r *Registry) RecordPathQuery(result string, hops int, duration time.Duration) {
	r.PathQueriesTotal.WithLabelValues(result).Inc()
	r.PathQueryDuration.Observe(duration.Seconds())
	if result == PathFound {
		r.PathHops.Observe(float64(hops))
	}
}

// RecordAnalysis records an analysis run
func (r *Registry) RecordAnalysis(analysisType string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.AnalysesTotal.WithLabelValues(analysisType, status).Inc()
	r.AnalysisDuration.WithLabelValues(analysisType).Observe(duration.Seconds())
}

// SetOversubscription records the flagged counts of the latest analysis.
// A negative value leaves the gauge unchanged.
func (r *Registry) SetOversubscription(nodes, islPairs int) {
	if nodes >= 0 {
		r.OversubscribedNodes.Set(float64(nodes))
	}
	if islPairs >= 0 {
		r.OversubscribedISLPairs.Set(float64(islPairs))
	}
}

// UpdateSystemMetrics samples the Go runtime
func (r *Registry) UpdateSystemMetrics(startTime time.Time) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	r.UptimeSeconds.Set(time.Since(startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(mem.Alloc))
	r.MemorySysBytes.Set(float64(mem.Sys))
}

// RecordResponseSize records the body size of an HTTP response
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
