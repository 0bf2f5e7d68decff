package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundwork-io/groundwork/internal/ir"
)

func actionTypes(plan *ir.Plan) map[string]ir.ActionType {
	out := map[string]ir.ActionType{}
	for _, a := range plan.Actions {
		out[a.Address] = a.Type
	}
	return out
}

func actionOrder(plan *ir.Plan) []string {
	out := make([]string, 0, len(plan.Actions))
	for _, a := range plan.Changes() {
		out = append(out, a.Address)
	}
	return out
}

func TestPlanner_CreateForNewResource(t *testing.T) {
	ad := newFakeAdapter("Thing")
	registry := fakeRegistry(t, ad)

	plan := planOf(t, registry, []*ir.Resource{
		fakeRes("a", map[string]any{"size": "s"}),
	}, ir.NewState())

	require.Len(t, plan.Actions, 1)
	assert.Equal(t, ir.ActionCreate, plan.Actions[0].Type)
	assert.Equal(t, 1, plan.Summary.Create)

	// CREATE carries the full attribute diff.
	require.Contains(t, plan.Actions[0].Diff, "size")
	assert.Equal(t, "create", plan.Actions[0].Diff["size"].Op)
}

func TestPlanner_NoOpWhenUnchanged(t *testing.T) {
	ad := newFakeAdapter("Thing")
	registry := fakeRegistry(t, ad)

	st := ir.NewState()
	st.Put("Thing.a", &ir.StateEntry{
		Kind: "Thing", Name: "a", Provider: "fake", Status: ir.StatusApplied,
		Attributes: map[string]any{"marker": "Thing.a", "size": "s"},
		Outputs:    map[string]any{"id": "x"},
	})

	plan := planOf(t, registry, []*ir.Resource{
		fakeRes("a", map[string]any{"size": "s"}),
	}, st)

	assert.False(t, plan.HasChanges())
	assert.Equal(t, 1, plan.Summary.NoOp)
}

func TestPlanner_UpdateOnMutableChange(t *testing.T) {
	ad := newFakeAdapter("Thing", "zone")
	registry := fakeRegistry(t, ad)

	st := ir.NewState()
	st.Put("Thing.a", &ir.StateEntry{
		Kind: "Thing", Name: "a", Provider: "fake", Status: ir.StatusApplied,
		Attributes: map[string]any{"marker": "Thing.a", "size": "s", "zone": "a"},
		Outputs:    map[string]any{"id": "x"},
	})

	plan := planOf(t, registry, []*ir.Resource{
		fakeRes("a", map[string]any{"size": "m", "zone": "a"}),
	}, st)

	require.Len(t, plan.Changes(), 1)
	action := plan.Changes()[0]
	assert.Equal(t, ir.ActionUpdate, action.Type)
	assert.Equal(t, []string{"size"}, action.Changed)
	assert.Equal(t, "update", action.Diff["size"].Op)
	assert.Equal(t, "s", action.Diff["size"].Before)
	assert.Equal(t, "m", action.Diff["size"].After)
}

func TestPlanner_ImmutableChangeForcesReplace(t *testing.T) {
	ad := newFakeAdapter("Thing", "zone")
	registry := fakeRegistry(t, ad)

	st := ir.NewState()
	st.Put("Thing.a", &ir.StateEntry{
		Kind: "Thing", Name: "a", Provider: "fake", Status: ir.StatusApplied,
		Attributes: map[string]any{"marker": "Thing.a", "zone": "a"},
		Outputs:    map[string]any{"id": "x"},
	})

	plan := planOf(t, registry, []*ir.Resource{
		fakeRes("a", map[string]any{"zone": "b"}),
	}, st)

	require.Len(t, plan.Changes(), 1)
	assert.Equal(t, ir.ActionReplace, plan.Changes()[0].Type)
	assert.Equal(t, 1, plan.Summary.Replace)
}

func TestPlanner_TaintedForcesReplace(t *testing.T) {
	ad := newFakeAdapter("Thing")
	registry := fakeRegistry(t, ad)

	st := ir.NewState()
	st.Put("Thing.a", &ir.StateEntry{
		Kind: "Thing", Name: "a", Provider: "fake", Status: ir.StatusTainted,
		Attributes: map[string]any{"marker": "Thing.a"},
		Outputs:    map[string]any{"id": "x"},
	})

	plan := planOf(t, registry, []*ir.Resource{fakeRes("a", nil)}, st)

	require.Len(t, plan.Changes(), 1)
	assert.Equal(t, ir.ActionReplace, plan.Changes()[0].Type)
}

func TestPlanner_Idempotent(t *testing.T) {
	ad := newFakeAdapter("Thing", "zone")
	registry := fakeRegistry(t, ad)

	st := ir.NewState()
	st.Put("Thing.a", &ir.StateEntry{
		Kind: "Thing", Name: "a", Provider: "fake", Status: ir.StatusApplied,
		Attributes: map[string]any{"marker": "Thing.a", "zone": "a"},
		Outputs:    map[string]any{"id": "x"},
	})
	st.AppliedOrder = []string{"Thing.a"}

	resources := []*ir.Resource{
		fakeRes("a", map[string]any{"zone": "b"}),
		fakeRes("b", map[string]any{"input": "${Thing.a.id}"}),
	}

	plan1 := planOf(t, registry, resources, st)
	plan2 := planOf(t, registry, resources, st)

	// Planning is pure: same inputs, same actions in the same order.
	assert.Equal(t, actionOrder(plan1), actionOrder(plan2))
	assert.Equal(t, actionTypes(plan1), actionTypes(plan2))
	assert.Equal(t, plan1.Summary, plan2.Summary)
}

func TestPlanner_RemovalsReverseTopoOrder(t *testing.T) {
	ad := newFakeAdapter("Thing")
	registry := fakeRegistry(t, ad)

	// a <- b <- c applied; all three removed from the declarations.
	st := ir.NewState()
	st.Put("Thing.a", &ir.StateEntry{Kind: "Thing", Name: "a", Provider: "fake", Outputs: map[string]any{"id": "1"}})
	st.Put("Thing.b", &ir.StateEntry{Kind: "Thing", Name: "b", Provider: "fake", Outputs: map[string]any{"id": "2"}, Dependencies: []string{"Thing.a"}})
	st.Put("Thing.c", &ir.StateEntry{Kind: "Thing", Name: "c", Provider: "fake", Outputs: map[string]any{"id": "3"}, Dependencies: []string{"Thing.b"}})
	st.AppliedOrder = []string{"Thing.a", "Thing.b", "Thing.c"}

	plan := planOf(t, registry, nil, st)

	assert.Equal(t, []string{"Thing.c", "Thing.b", "Thing.a"}, actionOrder(plan))
	assert.Equal(t, 3, plan.Summary.Delete)
}

func TestPlanner_RemovalDeferredBehindDependentChanges(t *testing.T) {
	ad := newFakeAdapter("Thing")
	registry := fakeRegistry(t, ad)

	// old is removed while app, which depended on it, has a pending update:
	// the delete must come after app's update in the plan.
	st := ir.NewState()
	st.Put("Thing.old", &ir.StateEntry{Kind: "Thing", Name: "old", Provider: "fake", Outputs: map[string]any{"id": "1"}})
	st.Put("Thing.app", &ir.StateEntry{
		Kind: "Thing", Name: "app", Provider: "fake", Status: ir.StatusApplied,
		Attributes:   map[string]any{"marker": "Thing.app", "size": "s"},
		Outputs:      map[string]any{"id": "2"},
		Dependencies: []string{"Thing.old"},
	})
	st.AppliedOrder = []string{"Thing.old", "Thing.app"}

	plan := planOf(t, registry, []*ir.Resource{
		fakeRes("app", map[string]any{"size": "m"}),
	}, st)

	assert.Equal(t, []string{"Thing.app", "Thing.old"}, actionOrder(plan))
}

func TestPlanner_ReplaceOrderedAfterDependents(t *testing.T) {
	ad := newFakeAdapter("Thing", "zone")
	registry := fakeRegistry(t, ad)

	st := ir.NewState()
	st.Put("Thing.db", &ir.StateEntry{
		Kind: "Thing", Name: "db", Provider: "fake", Status: ir.StatusApplied,
		Attributes: map[string]any{"marker": "Thing.db", "zone": "a"},
		Outputs:    map[string]any{"id": "1"},
	})
	st.Put("Thing.app", &ir.StateEntry{
		Kind: "Thing", Name: "app", Provider: "fake", Status: ir.StatusApplied,
		Attributes:   map[string]any{"marker": "Thing.app", "size": "s"},
		Outputs:      map[string]any{"id": "2"},
		Dependencies: []string{"Thing.db"},
	})
	st.AppliedOrder = []string{"Thing.db", "Thing.app"}

	plan := planOf(t, registry, []*ir.Resource{
		fakeRes("db", map[string]any{"zone": "b"}),
		fakeRes("app", map[string]any{"size": "m"}, "Thing.db"),
	}, st)

	assert.Equal(t, []string{"Thing.app", "Thing.db"}, actionOrder(plan))
	types := actionTypes(plan)
	assert.Equal(t, ir.ActionReplace, types["Thing.db"])
	assert.Equal(t, ir.ActionUpdate, types["Thing.app"])
}

func TestPlanner_FailedEntryReplanned(t *testing.T) {
	ad := newFakeAdapter("Thing")
	registry := fakeRegistry(t, ad)

	// A failed entry that never provisioned anything plans as CREATE.
	st := ir.NewState()
	st.Put("Thing.a", &ir.StateEntry{
		Kind: "Thing", Name: "a", Provider: "fake", Status: ir.StatusFailed,
		Attributes: map[string]any{"marker": "Thing.a", "size": "s"},
		Error:      "boom",
	})

	plan := planOf(t, registry, []*ir.Resource{
		fakeRes("a", map[string]any{"size": "s"}),
	}, st)
	require.Len(t, plan.Changes(), 1)
	assert.Equal(t, ir.ActionCreate, plan.Changes()[0].Type)

	// One that did provision retries as UPDATE pushing all attributes.
	st.Entry("Thing.a").Outputs = map[string]any{"id": "half-done"}
	plan = planOf(t, registry, []*ir.Resource{
		fakeRes("a", map[string]any{"size": "s"}),
	}, st)
	require.Len(t, plan.Changes(), 1)
	action := plan.Changes()[0]
	assert.Equal(t, ir.ActionUpdate, action.Type)
	assert.Equal(t, []string{"marker", "size"}, action.Changed)
}

func TestPlanner_SerialRecordedForConflictDetection(t *testing.T) {
	ad := newFakeAdapter("Thing")
	registry := fakeRegistry(t, ad)

	st := ir.NewState()
	st.Serial = 42

	plan := planOf(t, registry, []*ir.Resource{fakeRes("a", nil)}, st)
	assert.Equal(t, 42, plan.StateSerial)
}

func TestPlanner_TargetsLimitScope(t *testing.T) {
	ad := newFakeAdapter("Thing")
	registry := fakeRegistry(t, ad)

	resources := []*ir.Resource{
		fakeRes("base", nil),
		fakeRes("app", map[string]any{"input": "${Thing.base.id}"}),
		fakeRes("other", nil),
	}
	g, err := Build(resources)
	require.NoError(t, err)

	plan, err := NewPlanner(registry).PlanTargets(g, ir.NewState(), []string{"Thing.app"})
	require.NoError(t, err)

	// The target and its transitive dependencies plan; everything else no-ops.
	types := actionTypes(plan)
	assert.Equal(t, ir.ActionCreate, types["Thing.base"])
	assert.Equal(t, ir.ActionCreate, types["Thing.app"])
	assert.Equal(t, ir.ActionNoOp, types["Thing.other"])
	assert.Equal(t, 2, plan.Summary.Create)
	assert.Equal(t, 1, plan.Summary.NoOp)
}

func TestPlanner_TargetsSkipUnrelatedRemovals(t *testing.T) {
	ad := newFakeAdapter("Thing")
	registry := fakeRegistry(t, ad)

	st := ir.NewState()
	st.Put("Thing.stale", &ir.StateEntry{
		Kind: "Thing", Name: "stale", Provider: "fake", Status: ir.StatusApplied,
		Attributes: map[string]any{"marker": "Thing.stale"},
		Outputs:    map[string]any{"id": "old"},
	})
	st.AppliedOrder = []string{"Thing.stale"}

	resources := []*ir.Resource{fakeRes("app", nil)}
	g, err := Build(resources)
	require.NoError(t, err)

	plan, err := NewPlanner(registry).PlanTargets(g, st, []string{"Thing.app"})
	require.NoError(t, err)

	types := actionTypes(plan)
	assert.Equal(t, ir.ActionCreate, types["Thing.app"])
	assert.NotContains(t, types, "Thing.stale")

	// Untargeted planning still removes it.
	full, err := NewPlanner(registry).Plan(g, st)
	require.NoError(t, err)
	assert.Equal(t, ir.ActionDelete, actionTypes(full)["Thing.stale"])
}
