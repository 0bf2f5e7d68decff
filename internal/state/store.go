package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/groundwork-io/groundwork/internal/engine"
	"github.com/groundwork-io/groundwork/internal/ir"
)

// Store guards a persisted state behind an exclusive run lock. One Store
// instance scopes one state; multiple Stores may run concurrently in the
// same process.
type Store struct {
	backend Backend

	mu    sync.Mutex // guards state and serializes commits
	state *ir.State

	runLock sync.Mutex // the one-active-run constraint, in-process half
	locked  bool
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Read returns the cached state, loading it from the backend on first use.
func (s *Store) Read(ctx context.Context) (*ir.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		st, err := s.backend.Load(ctx)
		if err != nil {
			return nil, err
		}
		s.state = st
	}
	return s.state, nil
}

// Reload re-reads state from the backend, discarding the cache.
func (s *Store) Reload(ctx context.Context) (*ir.State, error) {
	st, err := s.backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	return st, nil
}

// Lock acquires the exclusive run lock: first in-process, then on the
// backend. Returns StateConflictError when another run holds either half.
func (s *Store) Lock(ctx context.Context) error {
	if !s.runLock.TryLock() {
		return &engine.StateConflictError{Reason: "another run is in progress on this state"}
	}
	if err := s.backend.Lock(ctx); err != nil {
		s.runLock.Unlock()
		return err
	}
	s.locked = true
	return nil
}

// Unlock releases the run lock.
func (s *Store) Unlock(ctx context.Context) error {
	if !s.locked {
		return nil
	}
	s.locked = false
	defer s.runLock.Unlock()
	return s.backend.Unlock(ctx)
}

// View runs read under the store lock against the current state. The
// callback must not retain or mutate the state.
func (s *Store) View(read func(*ir.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		s.state = ir.NewState()
	}
	read(s.state)
}

// Commit applies mutate to the state and persists the result atomically.
// Each call is one read-modify-write under the store lock, so concurrent
// action workers never interleave partial updates.
func (s *Store) Commit(ctx context.Context, mutate func(*ir.State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		st, err := s.backend.Load(ctx)
		if err != nil {
			return err
		}
		s.state = st
	}

	mutate(s.state)
	s.state.Serial++

	if err := s.backend.Save(ctx, s.state); err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}
	return nil
}
