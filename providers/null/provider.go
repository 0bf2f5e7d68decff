// Package null implements an in-memory provider used for wiring tests and
// trigger-style placeholder resources. Nothing real is provisioned.
package null

import (
	"context"
	"fmt"
	"sync"

	"github.com/groundwork-io/groundwork/pkg/adapter"
)

// Provider keeps every "provisioned" resource in memory.
type Provider struct {
	mu        sync.Mutex
	resources map[string]adapter.Attrs
	seq       int
}

func New() *Provider {
	return &Provider{resources: map[string]adapter.Attrs{}}
}

// Adapters returns the kinds this provider serves.
func (p *Provider) Adapters() map[string]adapter.Adapter {
	return map[string]adapter.Adapter{
		"Null": &nullAdapter{p: p},
	}
}

// nullAdapter provisions nothing; changing the triggers attribute forces a
// replacement, everything else updates in place.
type nullAdapter struct {
	p *Provider
}

func (a *nullAdapter) Schema() adapter.Schema {
	return adapter.Schema{
		Kind:      "Null",
		Immutable: []string{"triggers"},
		Computed:  []string{"id"},
	}
}

func (a *nullAdapter) Create(ctx context.Context, attrs adapter.Attrs) (adapter.Attrs, error) {
	a.p.mu.Lock()
	defer a.p.mu.Unlock()

	a.p.seq++
	id := fmt.Sprintf("null-%d", a.p.seq)

	outputs := adapter.Attrs{"id": id}
	for k, v := range attrs {
		outputs[k] = v
	}
	a.p.resources[id] = outputs
	return outputs, nil
}

func (a *nullAdapter) Read(ctx context.Context, id string) (adapter.Attrs, error) {
	a.p.mu.Lock()
	defer a.p.mu.Unlock()

	outputs, ok := a.p.resources[id]
	if !ok {
		return nil, adapter.NewPermanent(fmt.Sprintf("resource %s not found", id), nil)
	}
	return outputs, nil
}

func (a *nullAdapter) Update(ctx context.Context, id string, changed adapter.Attrs) (adapter.Attrs, error) {
	a.p.mu.Lock()
	defer a.p.mu.Unlock()

	outputs, ok := a.p.resources[id]
	if !ok {
		return nil, adapter.NewPermanent(fmt.Sprintf("resource %s not found", id), nil)
	}
	for k, v := range changed {
		outputs[k] = v
	}
	return outputs, nil
}

func (a *nullAdapter) Delete(ctx context.Context, id string, prior adapter.Attrs) error {
	a.p.mu.Lock()
	defer a.p.mu.Unlock()
	delete(a.p.resources, id)
	return nil
}
