package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundwork-io/groundwork/internal/ir"
)

func res(kind, name string, attrs map[string]any, deps ...string) *ir.Resource {
	if attrs == nil {
		attrs = map[string]any{}
	}
	return &ir.Resource{
		Kind:       kind,
		Name:       name,
		Provider:   "null",
		Attributes: attrs,
		DependsOn:  deps,
	}
}

func TestGraph_Build_TopoOrderAndLevels(t *testing.T) {
	// A two-tier network layout: the levels determine which resources may
	// run concurrently.
	resources := []*ir.Resource{
		res("Network", "main", nil),
		res("Subnet", "a", map[string]any{"vpc_id": "${Network.main.id}"}),
		res("Subnet", "b", map[string]any{"vpc_id": "${Network.main.id}"}),
		res("RouteTable", "rt", map[string]any{"vpc_id": "${Network.main.id}"}, "Subnet.a"),
		res("Instance", "web", map[string]any{"subnet_id": "${Subnet.a.id}"}),
		res("DBSubnetGroup", "dbs", map[string]any{
			"subnet_ids": []any{"${Subnet.a.id}", "${Subnet.b.id}"},
		}),
		res("Database", "db", map[string]any{"db_subnet_group": "${DBSubnetGroup.dbs.id}"}),
	}

	g, err := Build(resources)
	require.NoError(t, err)

	assert.Equal(t, 0, g.Level("Network.main"))
	assert.Equal(t, 1, g.Level("Subnet.a"))
	assert.Equal(t, 1, g.Level("Subnet.b"))
	assert.Equal(t, 2, g.Level("RouteTable.rt"))
	assert.Equal(t, 2, g.Level("Instance.web"))
	assert.Equal(t, 2, g.Level("DBSubnetGroup.dbs"))
	assert.Equal(t, 3, g.Level("Database.db"))

	// Every dependency precedes its dependent in the topological order.
	pos := map[string]int{}
	for i, addr := range g.TopoOrder() {
		pos[addr] = i
	}
	for _, addr := range g.TopoOrder() {
		for _, dep := range g.Dependencies(addr) {
			assert.Less(t, pos[dep], pos[addr], "%s must come after %s", addr, dep)
		}
	}
}

func TestGraph_Build_Deterministic(t *testing.T) {
	resources := []*ir.Resource{
		res("Null", "c", nil),
		res("Null", "a", nil),
		res("Null", "b", map[string]any{"input": "${Null.a.id}"}),
	}

	g1, err := Build(resources)
	require.NoError(t, err)
	g2, err := Build(resources)
	require.NoError(t, err)

	// Identical input yields an identical order; independent resources keep
	// declaration order.
	assert.Equal(t, g1.TopoOrder(), g2.TopoOrder())
	assert.Equal(t, []string{"Null.c", "Null.a", "Null.b"}, g1.TopoOrder())
}

func TestGraph_Build_DuplicateAddress(t *testing.T) {
	_, err := Build([]*ir.Resource{
		res("Null", "dup", nil),
		res("Null", "dup", nil),
	})
	require.Error(t, err)

	var dupErr *DuplicateResourceError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "Null.dup", dupErr.Address)
}

func TestGraph_Build_UndeclaredReference(t *testing.T) {
	_, err := Build([]*ir.Resource{
		res("Null", "a", map[string]any{"input": "${Null.ghost.id}"}),
	})
	require.Error(t, err)

	var refErr *UndeclaredReferenceError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "Null.a", refErr.Address)
	assert.Equal(t, "Null.ghost", refErr.Reference)
}

func TestGraph_Build_UndeclaredDependsOn(t *testing.T) {
	_, err := Build([]*ir.Resource{
		res("Null", "a", nil, "Null.missing"),
	})
	require.Error(t, err)

	var refErr *UndeclaredReferenceError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "Null.missing", refErr.Reference)
}

func TestGraph_Build_CycleReported(t *testing.T) {
	_, err := Build([]*ir.Resource{
		res("Null", "a", map[string]any{"input": "${Null.c.id}"}),
		res("Null", "b", map[string]any{"input": "${Null.a.id}"}),
		res("Null", "c", map[string]any{"input": "${Null.b.id}"}),
	})
	require.Error(t, err)

	var cycErr *CyclicDependencyError
	require.ErrorAs(t, err, &cycErr)
	// The full cycle is listed: first and last element match.
	require.GreaterOrEqual(t, len(cycErr.Cycle), 4)
	assert.Equal(t, cycErr.Cycle[0], cycErr.Cycle[len(cycErr.Cycle)-1])
	assert.Contains(t, cycErr.Cycle, "Null.a")
	assert.Contains(t, cycErr.Cycle, "Null.b")
	assert.Contains(t, cycErr.Cycle, "Null.c")
}

func TestGraph_Build_SelfReferenceIgnored(t *testing.T) {
	// A resource referencing its own attributes adds no edge.
	g, err := Build([]*ir.Resource{
		res("Null", "a", map[string]any{"note": "${Null.a.id}"}),
	})
	require.NoError(t, err)
	assert.Empty(t, g.Dependencies("Null.a"))
}

func TestGraph_BuildFromState_UsesAppliedOrder(t *testing.T) {
	st := ir.NewState()
	st.Put("Null.a", &ir.StateEntry{Kind: "Null", Name: "a", Provider: "null"})
	st.Put("Null.b", &ir.StateEntry{Kind: "Null", Name: "b", Provider: "null", Dependencies: []string{"Null.a"}})
	st.Put("Null.c", &ir.StateEntry{Kind: "Null", Name: "c", Provider: "null", Dependencies: []string{"Null.b"}})
	st.AppliedOrder = []string{"Null.a", "Null.b", "Null.c"}

	g, err := BuildFromState(st)
	require.NoError(t, err)

	assert.Equal(t, []string{"Null.a", "Null.b", "Null.c"}, g.TopoOrder())
	assert.Equal(t, []string{"Null.c", "Null.b", "Null.a"}, g.ReverseOrder())
}

func TestGraph_BuildFromState_DropsDanglingDependencies(t *testing.T) {
	// A dependency removed from state (e.g. via state rm) must not poison
	// graph reconstruction.
	st := ir.NewState()
	st.Put("Null.b", &ir.StateEntry{Kind: "Null", Name: "b", Provider: "null", Dependencies: []string{"Null.gone"}})

	g, err := BuildFromState(st)
	require.NoError(t, err)
	assert.Equal(t, []string{"Null.b"}, g.TopoOrder())
}

func TestGraph_Levels_GroupByDepth(t *testing.T) {
	g, err := Build([]*ir.Resource{
		res("Null", "a", nil),
		res("Null", "b", nil),
		res("Null", "c", map[string]any{"input": "${Null.a.id}"}),
	})
	require.NoError(t, err)

	levels := g.Levels()
	require.Len(t, levels, 2)
	assert.Equal(t, []string{"Null.a", "Null.b"}, levels[0])
	assert.Equal(t, []string{"Null.c"}, levels[1])
}
