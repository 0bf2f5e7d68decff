package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundwork-io/groundwork/internal/ir"
)

func TestResolveConfigPath(t *testing.T) {
	t.Run("no args uses default", func(t *testing.T) {
		path, err := resolveConfigPath(nil)
		require.NoError(t, err)
		assert.Equal(t, defaultConfigFile, path)
	})

	t.Run("directory selects its config file", func(t *testing.T) {
		dir := t.TempDir()
		path, err := resolveConfigPath([]string{dir})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, defaultConfigFile), path)
	})

	t.Run("file is taken as-is", func(t *testing.T) {
		dir := t.TempDir()
		file := filepath.Join(dir, "infra.yaml")
		require.NoError(t, os.WriteFile(file, []byte("resources: []\n"), 0o644))

		path, err := resolveConfigPath([]string{file})
		require.NoError(t, err)
		assert.Equal(t, file, path)
	})

	t.Run("missing path errors", func(t *testing.T) {
		_, err := resolveConfigPath([]string{filepath.Join(t.TempDir(), "nope")})
		assert.Error(t, err)
	})
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"nil", nil, "null"},
		{"string quoted", "bridge", `"bridge"`},
		{"int", 8080, "8080"},
		{"bool", true, "true"},
		{"slice", []any{"a", "b"}, "[a b]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatValue(tt.input))
		})
	}
}

func TestActionVerb(t *testing.T) {
	assert.Equal(t, "creating", actionVerb(ir.ActionCreate))
	assert.Equal(t, "updating", actionVerb(ir.ActionUpdate))
	assert.Equal(t, "replacing", actionVerb(ir.ActionReplace))
	assert.Equal(t, "destroying", actionVerb(ir.ActionDelete))
	assert.Equal(t, "processing", actionVerb(ir.ActionType("bogus")))
}

func TestDestroyOrder(t *testing.T) {
	st := ir.NewState()
	st.Put("Network.main", &ir.StateEntry{Kind: "Network", Name: "main", Status: ir.StatusApplied})
	st.Put("Subnet.a", &ir.StateEntry{
		Kind: "Subnet", Name: "a", Status: ir.StatusApplied,
		Dependencies: []string{"Network.main"},
	})
	st.Put("Instance.web", &ir.StateEntry{
		Kind: "Instance", Name: "web", Status: ir.StatusApplied,
		Dependencies: []string{"Subnet.a"},
	})
	st.AppliedOrder = []string{"Network.main", "Subnet.a", "Instance.web"}

	order := destroyOrder(st)
	assert.Equal(t, []string{"Instance.web", "Subnet.a", "Network.main"}, order)
}
