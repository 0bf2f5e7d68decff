// Package adapter defines the contract between the orchestration core and
// provider implementations. Each resource kind is served by one Adapter;
// providers expose a closed set of kinds through their Adapters() method.
package adapter

import "context"

// Attrs is a bag of resource attributes, declared or provider-assigned.
type Attrs = map[string]any

// Schema describes planning metadata for a resource kind.
type Schema struct {
	// Kind is the resource kind this schema applies to.
	Kind string

	// Immutable lists attributes that cannot be changed in place. A diff on
	// any of these forces a Replace instead of an Update.
	Immutable []string

	// Computed lists attributes assigned by the provider (never declared),
	// e.g. generated identifiers. They are excluded from diffing.
	Computed []string
}

// ForcesReplacement reports whether a change to attr requires replacement.
func (s Schema) ForcesReplacement(attr string) bool {
	for _, a := range s.Immutable {
		if a == attr {
			return true
		}
	}
	return false
}

// Adapter is the capability interface the executor drives for one resource
// kind. Implementations wrap a single provider API and classify their errors
// with this package's error constructors so the executor can decide whether
// to retry.
type Adapter interface {
	// Schema returns planning metadata for the kind. It must not perform I/O.
	Schema() Schema

	// Create provisions a new resource from declared attributes and returns
	// the provider-assigned attributes, which must include "id".
	Create(ctx context.Context, attrs Attrs) (Attrs, error)

	// Read fetches the current provider attributes for an existing resource.
	Read(ctx context.Context, id string) (Attrs, error)

	// Update applies the changed attributes in place and returns the
	// refreshed provider attributes.
	Update(ctx context.Context, id string, changed Attrs) (Attrs, error)

	// Delete removes the resource. prior is the declared attribute snapshot
	// recorded when the resource was applied; adapters consult it for
	// deletion settings such as final-snapshot handling. Unsatisfied
	// deletion preconditions must surface as precondition errors, never be
	// worked around by force-removing.
	Delete(ctx context.Context, id string, prior Attrs) error
}
