package ir

// Config represents the top-level declaration set.
type Config struct {
	Resources []*Resource    `yaml:"resources" json:"resources"`
	Outputs   map[string]any `yaml:"outputs,omitempty" json:"outputs,omitempty"`
}
