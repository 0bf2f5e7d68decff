// Package provider manages the registry mapping resource kinds to their
// adapter implementations. New resource kinds are added by registering an
// adapter, not by modifying the orchestration core.
package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/groundwork-io/groundwork/pkg/adapter"
	"github.com/groundwork-io/groundwork/providers/aws"
	"github.com/groundwork-io/groundwork/providers/docker"
	"github.com/groundwork-io/groundwork/providers/null"
)

// Registry holds the adapters of every loaded provider, keyed by provider
// name and resource kind.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]map[string]adapter.Adapter
}

func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]map[string]adapter.Adapter),
	}
}

// LoadProvider initializes a built-in provider and registers its adapters.
// Loading an already-loaded provider is a no-op.
func (r *Registry) LoadProvider(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return nil
	}

	var adapters map[string]adapter.Adapter
	switch name {
	case "null":
		adapters = null.New().Adapters()
	case "aws":
		p, err := aws.New(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize aws provider: %w", err)
		}
		adapters = p.Adapters()
	case "docker":
		p, err := docker.New()
		if err != nil {
			return fmt.Errorf("failed to initialize docker provider: %w", err)
		}
		adapters = p.Adapters()
	default:
		return fmt.Errorf("unknown provider: %s", name)
	}

	r.providers[name] = adapters
	return nil
}

// Register installs an adapter set under a provider name, replacing any
// previous registration. Tests use this to inject fakes.
func (r *Registry) Register(name string, adapters map[string]adapter.Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = adapters
}

// Get returns the adapter serving kind under the named provider.
func (r *Registry) Get(provider, kind string) (adapter.Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds, ok := r.providers[provider]
	if !ok {
		return nil, fmt.Errorf("provider not loaded: %s", provider)
	}
	a, ok := kinds[kind]
	if !ok {
		return nil, fmt.Errorf("provider %s has no adapter for kind %s", provider, kind)
	}
	return a, nil
}

// SchemaFor returns the planning schema for kind under the named provider.
func (r *Registry) SchemaFor(provider, kind string) (adapter.Schema, error) {
	a, err := r.Get(provider, kind)
	if err != nil {
		return adapter.Schema{}, err
	}
	return a.Schema(), nil
}
