package health

import (
	"time"
)

// SimpleCheck creates a health check that always returns healthy
func SimpleCheck(name string) CheckFunc {
	return func() Check {
		return Check{
			Name:   name,
			Status: StatusHealthy,
		}
	}
}

// SnapshotCheck reports whether a fabric snapshot is installed. Without
// one, every analysis endpoint would fail, so the check is unhealthy. A
// snapshot older than maxAge (when maxAge > 0) or one that loaded with
// data-quality issues is degraded.
func SnapshotCheck(current func() (SnapshotState, error), maxAge time.Duration) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "snapshot",
			Details: make(map[string]any),
		}

		state, err := current()
		if err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}

		age := time.Since(state.LoadedAt)
		check.Details["id"] = state.ID
		check.Details["loaded_at"] = state.LoadedAt
		check.Details["age_seconds"] = age.Seconds()
		check.Details["ports"] = state.Ports
		check.Details["issues"] = state.Issues

		switch {
		case maxAge > 0 && age > maxAge:
			check.Status = StatusDegraded
			check.Message = "Snapshot is stale"
		case state.Issues > 0:
			check.Status = StatusDegraded
			check.Message = "Snapshot loaded with data-quality issues"
		default:
			check.Status = StatusHealthy
			check.Message = "Snapshot loaded"
		}
		return check
	}
}

// MemoryCheck creates a health check for memory usage
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()

		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		if sys > 0 && float64(alloc)/float64(sys)*100 > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}

		return check
	}
}
