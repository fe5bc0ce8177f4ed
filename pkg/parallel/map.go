package parallel

import "github.com/dd0wney/cluso-fabric/pkg/logging"

// Map applies fn to every item on up to workers goroutines and returns the
// results in input order. With one worker, or a single item, it runs inline.
// A panicking fn leaves the zero value in its slot.
func Map[T, R any](items []T, workers int, logger logging.Logger, fn func(T) R) []R {
	out := make([]R, len(items))
	if workers <= 1 || len(items) <= 1 {
		for i, item := range items {
			out[i] = fn(item)
		}
		return out
	}

	pool, err := NewWorkerPool(min(workers, len(items), MaxWorkers), logger)
	if err != nil {
		// Unreachable with the clamp above; fall back to inline.
		for i, item := range items {
			out[i] = fn(item)
		}
		return out
	}
	for i, item := range items {
		pool.Submit(func() {
			out[i] = fn(item)
		})
	}
	pool.Close()
	return out
}
