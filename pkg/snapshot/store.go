package snapshot

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dd0wney/cluso-fabric/pkg/logging"
)

// ErrNoSnapshot is returned by Store.Current before the first load.
var ErrNoSnapshot = errors.New("no snapshot loaded")

// Store holds the current snapshot. Readers take the current pointer
// without locking; replacement is build-then-swap by a single writer, so a
// reader never sees a half-built graph.
type Store struct {
	current atomic.Pointer[Snapshot]
	writeMu sync.Mutex
	logger  logging.Logger
}

// NewStore creates an empty store
func NewStore(logger logging.Logger) *Store {
	return &Store{logger: logging.OrDefault(logger).With(logging.Component("snapshot_store"))}
}

// Current returns the snapshot readers should use.
func (s *Store) Current() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

// Swap installs snap and returns the snapshot it replaced, if any.
// A nil snap leaves the store unchanged.
func (s *Store) Swap(snap *Snapshot) *Snapshot {
	if snap == nil {
		return s.current.Load()
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.swapLocked(snap)
}

// Reload builds a snapshot from records and installs it. On error the
// current snapshot stays in place.
func (s *Store) Reload(records Records, opts ...Option) (*Snapshot, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	opts = append([]Option{WithLogger(s.logger)}, opts...)
	snap, err := Load(records, opts...)
	if err != nil {
		s.logger.Error("snapshot reload failed", logging.Error(err))
		return nil, err
	}
	s.swapLocked(snap)
	return snap, nil
}

func (s *Store) swapLocked(snap *Snapshot) *Snapshot {
	prev := s.current.Swap(snap)
	fields := []logging.Field{logging.SnapshotID(snap.ID())}
	if prev != nil {
		fields = append(fields, logging.String("previous_id", prev.ID()))
	}
	s.logger.Info("snapshot installed", fields...)
	return prev
}
