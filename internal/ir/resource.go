package ir

import "fmt"

// Resource represents a single declared resource.
type Resource struct {
	Kind       string         `yaml:"kind" json:"kind"` // e.g. "Network", "Database"
	Name       string         `yaml:"name" json:"name"`
	Provider   string         `yaml:"provider" json:"provider"`
	Count      int            `yaml:"count,omitempty" json:"count,omitempty"`
	DependsOn  []string       `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
	Attributes map[string]any `yaml:"attributes" json:"attributes"`
}

// Address returns the unique address of a resource (kind.name).
func (r *Resource) Address() string {
	return fmt.Sprintf("%s.%s", r.Kind, r.Name)
}
