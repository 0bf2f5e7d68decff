package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRefs_NestedStructures(t *testing.T) {
	attrs := map[string]any{
		"simple": "${Network.main.id}",
		"nested": map[string]any{
			"list": []any{"${Subnet.a.id}", "static"},
		},
		"interpolated": "prefix-${Bucket.logs.name}-suffix",
		"plain":        42,
	}

	refs := ExtractRefs(attrs)
	addrs := make([]string, len(refs))
	for i, r := range refs {
		addrs[i] = r.Address()
	}

	assert.Len(t, refs, 3)
	assert.Contains(t, addrs, "Network.main")
	assert.Contains(t, addrs, "Subnet.a")
	assert.Contains(t, addrs, "Bucket.logs")
}

func TestExtractRefs_CountedInstanceNames(t *testing.T) {
	refs := ExtractRefs("${Instance.web[0].private_ip}")
	require.Len(t, refs, 1)
	assert.Equal(t, "Instance.web[0]", refs[0].Address())
	assert.Equal(t, "private_ip", refs[0].Attribute)
}

func TestResolveValue_ExactReferenceKeepsNativeType(t *testing.T) {
	lookup := func(ref Reference) (any, bool) {
		if ref.Address() == "Database.main" && ref.Attribute == "port" {
			return 5432, true
		}
		return nil, false
	}

	// An exact single reference resolves to the native value, not a string.
	out := resolveValue("${Database.main.port}", lookup)
	assert.Equal(t, 5432, out)
}

func TestResolveValue_Interpolation(t *testing.T) {
	lookup := func(ref Reference) (any, bool) {
		switch ref.Attribute {
		case "endpoint":
			return "db.internal", true
		case "port":
			return 5432, true
		}
		return nil, false
	}

	out := resolveValue("postgres://${Database.main.endpoint}:${Database.main.port}/app", lookup)
	assert.Equal(t, "postgres://db.internal:5432/app", out)
}

func TestResolveValue_UnresolvedLeftInSourceForm(t *testing.T) {
	lookup := func(ref Reference) (any, bool) { return nil, false }

	out := resolveValue("${Null.missing.id}", lookup)
	assert.Equal(t, "${Null.missing.id}", out)
}

func TestResolveValue_WalksCollections(t *testing.T) {
	lookup := func(ref Reference) (any, bool) { return "vpc-123", true }

	out := resolveValue(map[string]any{
		"ids":  []any{"${Network.main.id}"},
		"deep": map[string]any{"vpc": "${Network.main.id}"},
	}, lookup)

	m, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"vpc-123"}, m["ids"])
	assert.Equal(t, map[string]any{"vpc": "vpc-123"}, m["deep"])
}
