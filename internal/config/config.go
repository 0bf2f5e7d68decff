// Package config loads declaration files. Declarations are YAML documents
// with a resources list and optional outputs; the language is deliberately
// thin, with reference expressions as the only dynamic construct.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/groundwork-io/groundwork/internal/ir"
)

// DefaultProvider is assumed when a resource names no provider.
const DefaultProvider = "null"

// Load reads and validates a declaration file, expanding counted
// resources into individual instances.
func Load(path string) (*ir.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read declarations %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a declaration document.
func Parse(raw []byte) (*ir.Config, error) {
	var cfg ir.Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse declarations: %w", err)
	}

	for i, res := range cfg.Resources {
		if res == nil {
			return nil, fmt.Errorf("resource %d is empty", i)
		}
		if res.Kind == "" {
			return nil, fmt.Errorf("resource %d (%q) has no kind", i, res.Name)
		}
		if res.Name == "" {
			return nil, fmt.Errorf("resource %d (%s) has no name", i, res.Kind)
		}
		if res.Provider == "" {
			res.Provider = DefaultProvider
		}
		if res.Attributes == nil {
			res.Attributes = map[string]any{}
		}
	}

	cfg.Resources = ExpandCount(cfg.Resources)
	return &cfg, nil
}

// Providers returns the distinct provider names the configuration uses.
func Providers(cfg *ir.Config) []string {
	seen := map[string]bool{}
	var out []string
	for _, res := range cfg.Resources {
		if !seen[res.Provider] {
			seen[res.Provider] = true
			out = append(out, res.Provider)
		}
	}
	return out
}
