package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initAnalysisMetrics() {
	r.PathQueriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "fabric_path_queries_total",
			Help: "Total number of path queries by outcome",
		},
		[]string{"result"},
	)

	r.PathQueryDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fabric_path_query_duration_seconds",
			Help:    "Path query latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		},
	)

	r.PathHops = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fabric_path_hops",
			Help:    "Edges on found paths",
			Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16},
		},
	)

	r.AnalysesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "fabric_analyses_total",
			Help: "Total number of analyses run by type and status",
		},
		[]string{"type", "status"},
	)

	r.AnalysisDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fabric_analysis_duration_seconds",
			Help:    "Analysis latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	r.OversubscribedNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "fabric_oversubscribed_nodes",
			Help: "Storage nodes flagged by the most recent node analysis",
		},
	)

	r.OversubscribedISLPairs = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "fabric_oversubscribed_isl_pairs",
			Help: "Switch pairs flagged by the most recent ISL analysis",
		},
	)
}
