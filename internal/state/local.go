package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/groundwork-io/groundwork/internal/engine"
	"github.com/groundwork-io/groundwork/internal/ir"
)

// staleLockAge is how old a lock file must be before it is considered
// abandoned by a dead process.
const staleLockAge = 10 * time.Minute

// LocalBackend stores state as a JSON file. Writes go through a temp file
// and rename so the state file is never left half-written.
type LocalBackend struct {
	path string
}

func NewLocalBackend(path string) *LocalBackend {
	return &LocalBackend{path: path}
}

func (b *LocalBackend) Load(ctx context.Context) (*ir.State, error) {
	raw, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		st := ir.NewState()
		st.Lineage = uuid.NewString()
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", b.path, err)
	}

	raw, err = Decrypt(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt state: %w", err)
	}

	var st ir.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", b.path, err)
	}
	if st.Resources == nil {
		st.Resources = map[string]*ir.StateEntry{}
	}
	return &st, nil
}

func (b *LocalBackend) Save(ctx context.Context, st *ir.State) error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize state: %w", err)
	}
	raw, err = Encrypt(raw)
	if err != nil {
		return fmt.Errorf("failed to encrypt state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("failed to replace state file %s: %w", b.path, err)
	}
	return nil
}

// Lock creates a lock file next to the state file. A lock older than ten
// minutes is treated as stale and removed.
func (b *LocalBackend) Lock(ctx context.Context) error {
	lockPath := b.lockPath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	if info, err := os.Stat(lockPath); err == nil {
		if time.Since(info.ModTime()) > staleLockAge {
			os.Remove(lockPath)
		} else {
			return &engine.StateConflictError{
				Reason: fmt.Sprintf("state is locked by another process (lock file: %s); "+
					"remove the lock file manually if no other run is active", lockPath),
			}
		}
	}

	content := fmt.Sprintf("pid=%d\ntime=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return &engine.StateConflictError{
				Reason: fmt.Sprintf("state is locked by another process (lock file: %s)", lockPath),
			}
		}
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("failed to write lock file: %w", err)
	}
	return nil
}

func (b *LocalBackend) Unlock(ctx context.Context) error {
	if err := os.Remove(b.lockPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

func (b *LocalBackend) lockPath() string {
	return b.path + ".lock"
}
