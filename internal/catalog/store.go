package catalog

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dontdude/tiobot/internal/domain"
)

// Store owns the current Snapshot. Loads are lock-free; a swap replaces the whole snapshot.
type Store struct {
	current   atomic.Pointer[Snapshot]
	ready     chan struct{}
	readyOnce sync.Once
}

func NewStore() *Store {
	return &Store{ready: make(chan struct{})}
}

// Load returns the current snapshot, or nil before the first successful refresh.
func (s *Store) Load() *Snapshot {
	return s.current.Load()
}

// Swap installs snap as the current snapshot. Nil snapshots are ignored.
func (s *Store) Swap(snap *Snapshot) {
	if snap == nil {
		return
	}
	s.current.Store(snap)
	s.readyOnce.Do(func() { close(s.ready) })
}

// Ready is closed once the first snapshot has been installed.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Wait blocks until a snapshot is available or ctx is done.
func (s *Store) Wait(ctx context.Context) (*Snapshot, error) {
	select {
	case <-s.ready:
		return s.Load(), nil
	case <-ctx.Done():
		return nil, domain.ErrCatalogUnavailable
	}
}
