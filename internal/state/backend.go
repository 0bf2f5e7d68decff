// Package state persists the last-known-applied attributes and status of
// every resource. The Store serializes all mutation during a run behind an
// exclusive run lock and commits each per-resource change atomically.
package state

import (
	"context"
	"fmt"

	"github.com/groundwork-io/groundwork/internal/ir"
)

// Backend is the storage interface behind a Store.
type Backend interface {
	// Load reads the persisted state, returning an empty versioned state
	// when none exists yet.
	Load(ctx context.Context) (*ir.State, error)

	// Save persists the state. Implementations must never leave the
	// destination half-written.
	Save(ctx context.Context, state *ir.State) error

	// Lock acquires the exclusive run lock on the stored state.
	Lock(ctx context.Context) error

	// Unlock releases the run lock.
	Unlock(ctx context.Context) error
}

// BackendConfig selects and configures a storage backend.
type BackendConfig struct {
	Type   string            `json:"type"` // "local" or "s3"
	Config map[string]string `json:"config"`
}

// NewBackend creates a backend from configuration.
func NewBackend(cfg *BackendConfig) (Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("backend configuration is nil")
	}
	switch cfg.Type {
	case "local", "":
		path := cfg.Config["path"]
		if path == "" {
			return nil, fmt.Errorf("local backend requires 'path' configuration")
		}
		return NewLocalBackend(path), nil
	case "s3":
		return newS3Backend(cfg.Config)
	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.Type)
	}
}
