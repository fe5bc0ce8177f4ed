package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSnapshotMetrics() {
	r.SnapshotLoadsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "fabric_snapshot_loads_total",
			Help: "Total number of snapshot loads",
		},
		[]string{"status"},
	)

	r.SnapshotLoadDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fabric_snapshot_load_duration_seconds",
			Help:    "Time to parse and load a fabric snapshot",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		},
	)

	r.SnapshotLoadedAt = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "fabric_snapshot_loaded_timestamp_seconds",
			Help: "Unix time the current snapshot was installed",
		},
	)

	r.FabricPortsTotal = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fabric_ports_total",
			Help: "Registered ports in the current snapshot by role",
		},
		[]string{"role"},
	)

	r.FabricEdgesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "fabric_edges_total",
			Help: "Edges in the current topology graph",
		},
	)

	r.FabricISLsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "fabric_isls_total",
			Help: "Inter-switch links in the current snapshot",
		},
	)

	r.FabricZonesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "fabric_zones_total",
			Help: "Zones in the current snapshot",
		},
	)

	r.FabricIssuesTotal = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fabric_issues_total",
			Help: "Data-quality issues found while loading the current snapshot",
		},
		[]string{"kind"},
	)
}
