package api

import (
	"context"
	"runtime"
	"time"

	"github.com/dd0wney/cluso-fabric/pkg/health"
	"github.com/dd0wney/cluso-fabric/pkg/metrics"
	"github.com/dd0wney/cluso-fabric/pkg/snapshot"
)

func (s *Server) registerHealthChecks() {
	s.healthChecker.RegisterCheck("snapshot", health.SnapshotCheck(s.snapshotState, s.cfg.Snapshot.MaxAge))
	s.healthChecker.RegisterCheck("memory", health.MemoryCheck(func() (uint64, uint64) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return m.Alloc, m.Sys
	}))

	// Ready means a snapshot is installed; age and data-quality issues
	// only degrade /health.
	s.healthChecker.RegisterReadinessCheck("snapshot", health.SnapshotCheck(func() (health.SnapshotState, error) {
		state, err := s.snapshotState()
		state.Issues = 0
		return state, err
	}, 0))
	s.healthChecker.RegisterLivenessCheck("server", health.SimpleCheck("server"))
}

func (s *Server) snapshotState() (health.SnapshotState, error) {
	snap, err := s.store.Current()
	if err != nil {
		return health.SnapshotState{}, err
	}
	sum := snap.Summary()
	return health.SnapshotState{
		ID:       sum.ID,
		LoadedAt: sum.LoadedAt,
		Ports:    sum.Initiators + sum.Targets + sum.SwitchPorts,
		Issues:   sum.Issues,
	}, nil
}

// updateMetricsPeriodically samples runtime gauges until ctx is done.
func (s *Server) updateMetricsPeriodically(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.metricsRegistry.UpdateSystemMetrics(s.startTime)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.metricsRegistry.UpdateSystemMetrics(s.startTime)
		}
	}
}

// fabricCounts converts a snapshot into the gauge view.
func fabricCounts(snap *snapshot.Snapshot) metrics.FabricCounts {
	sum := snap.Summary()
	issues := make(map[string]int)
	for _, issue := range snap.Issues() {
		issues[string(issue.Kind)]++
	}
	return metrics.FabricCounts{
		Initiators:  sum.Initiators,
		Targets:     sum.Targets,
		SwitchPorts: sum.SwitchPorts,
		Edges:       sum.Edges,
		ISLs:        sum.ISLs,
		Zones:       sum.Zones,
		Issues:      issues,
		LoadedAt:    sum.LoadedAt,
	}
}
