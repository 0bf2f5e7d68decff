package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/groundwork-io/groundwork/internal/ir"
	"github.com/groundwork-io/groundwork/internal/logging"
	"github.com/groundwork-io/groundwork/internal/provider"
)

// Planner produces plans from (graph, state) pairs. Planning is a pure
// function of its inputs: no provider calls, no side effects.
type Planner struct {
	registry *provider.Registry
}

func NewPlanner(registry *provider.Registry) *Planner {
	return &Planner{registry: registry}
}

// Plan diffs the declared graph against stored state and returns the
// ordered action list: removals no create depends on first, then the
// topological create/update/replace walk, then the remaining deletes.
func (p *Planner) Plan(graph *Graph, st *ir.State) (*ir.Plan, error) {
	return p.PlanTargets(graph, st, nil)
}

// PlanTargets plans only the named addresses plus their transitive
// dependencies; everything else is a no-op. Nil targets plans everything.
func (p *Planner) PlanTargets(graph *Graph, st *ir.State, targets []string) (*ir.Plan, error) {
	logging.Debug("creating plan", "resources", len(graph.Resources()),
		"state_resources", len(st.Resources), "targets", len(targets))

	var targetSet map[string]bool
	if len(targets) > 0 {
		targetSet = make(map[string]bool)
		for _, t := range targets {
			targetSet[t] = true
			for _, dep := range graph.TransitiveDeps(t) {
				targetSet[dep] = true
			}
		}
	}

	plan := &ir.Plan{
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
		Summary:       &ir.PlanSummary{},
		StateSerial:   st.Serial,
		ResourceOrder: graph.TopoOrder(),
	}

	removals, err := p.planRemovals(graph, st, targetSet)
	if err != nil {
		return nil, err
	}

	var walk []*ir.Action
	for _, addr := range graph.TopoOrder() {
		if targetSet != nil && !targetSet[addr] {
			walk = append(walk, &ir.Action{
				Address: addr,
				Type:    ir.ActionNoOp,
				Desired: graph.Resource(addr),
				Prior:   st.Entry(addr),
			})
			continue
		}
		action, err := p.planResource(graph.Resource(addr), st.Entry(addr))
		if err != nil {
			return nil, err
		}
		walk = append(walk, action)
	}
	walk = deferReplacements(walk, graph)

	// Removals a remaining resource still depended on when it was applied
	// run after that resource's own pending changes.
	pendingUpdate := map[string]bool{}
	for _, a := range walk {
		if a.Type != ir.ActionNoOp {
			pendingUpdate[a.Address] = true
		}
	}
	priorDependents := dependentsFromState(st)
	var head, tail []*ir.Action
	for _, del := range removals {
		deferred := false
		for _, dep := range priorDependents[del.Address] {
			if pendingUpdate[dep] {
				deferred = true
				break
			}
		}
		if deferred {
			tail = append(tail, del)
		} else {
			head = append(head, del)
		}
	}

	plan.Actions = append(plan.Actions, head...)
	plan.Actions = append(plan.Actions, walk...)
	plan.Actions = append(plan.Actions, tail...)

	for _, a := range plan.Actions {
		switch a.Type {
		case ir.ActionCreate:
			plan.Summary.Create++
		case ir.ActionUpdate:
			plan.Summary.Update++
		case ir.ActionReplace:
			plan.Summary.Replace++
		case ir.ActionDelete:
			plan.Summary.Delete++
		case ir.ActionNoOp:
			plan.Summary.NoOp++
		}
	}
	return plan, nil
}

// planRemovals emits deletes for resources present in state but no longer
// declared, in strict reverse topological order of the dependency graph
// reconstructed from the prior applied state.
func (p *Planner) planRemovals(graph *Graph, st *ir.State, targetSet map[string]bool) ([]*ir.Action, error) {
	priorGraph, err := BuildFromState(st)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild prior state graph: %w", err)
	}

	var out []*ir.Action
	for _, addr := range priorGraph.ReverseOrder() {
		if graph.Resource(addr) != nil {
			continue
		}
		if targetSet != nil && !targetSet[addr] {
			continue
		}
		entry := st.Entry(addr)
		diff := make(map[string]*ir.AttributeDiff, len(entry.Attributes))
		for k, v := range entry.Attributes {
			diff[k] = &ir.AttributeDiff{Before: v, Op: "delete"}
		}
		out = append(out, &ir.Action{
			Address: addr,
			Type:    ir.ActionDelete,
			Prior:   entry,
			Diff:    diff,
		})
	}
	return out, nil
}

// planResource classifies the difference between one declared resource and
// its state entry.
func (p *Planner) planResource(res *ir.Resource, entry *ir.StateEntry) (*ir.Action, error) {
	action := &ir.Action{
		Address: res.Address(),
		Desired: res,
		Prior:   entry,
	}

	if entry == nil {
		action.Type = ir.ActionCreate
		action.Diff = createDiff(res.Attributes)
		return action, nil
	}

	changed, diff := diffAttributes(entry.Attributes, res.Attributes)
	action.Changed = changed
	action.Diff = diff

	if entry.Status == ir.StatusTainted {
		action.Type = ir.ActionReplace
		if action.Diff == nil {
			action.Diff = createDiff(res.Attributes)
		}
		return action, nil
	}

	if len(changed) == 0 {
		if entry.Status == ir.StatusFailed {
			// Retry the failed operation: create when nothing was ever
			// provisioned, otherwise push the full attribute set again.
			if entry.ID() == "" {
				action.Type = ir.ActionCreate
				action.Diff = createDiff(res.Attributes)
			} else {
				action.Type = ir.ActionUpdate
				action.Changed = attributeKeys(res.Attributes)
			}
			return action, nil
		}
		action.Type = ir.ActionNoOp
		return action, nil
	}

	if entry.ID() == "" {
		// The prior attempt never provisioned anything; changed or not,
		// this is still a create.
		action.Type = ir.ActionCreate
		action.Changed = nil
		action.Diff = createDiff(res.Attributes)
		return action, nil
	}

	schema, err := p.registry.SchemaFor(res.Provider, res.Kind)
	if err != nil {
		return nil, err
	}
	action.Type = ir.ActionUpdate
	for _, attr := range changed {
		if schema.ForcesReplacement(attr) {
			action.Type = ir.ActionReplace
			break
		}
	}
	return action, nil
}

// deferReplacements reorders each replace to run after every pending action
// of its dependents, so nothing is left pointing at a resource
// mid-replacement.
func deferReplacements(actions []*ir.Action, g *Graph) []*ir.Action {
	for moved := true; moved; {
		moved = false
		for i, a := range actions {
			if a.Type != ir.ActionReplace {
				continue
			}
			dependents := map[string]bool{}
			for _, d := range g.Dependents(a.Address) {
				dependents[d] = true
			}
			last := -1
			for j, other := range actions {
				if j != i && other.Type != ir.ActionNoOp && dependents[other.Address] {
					last = j
				}
			}
			if last > i {
				actions = append(actions[:i], actions[i+1:]...)
				rest := make([]*ir.Action, 0, len(actions)+1)
				rest = append(rest, actions[:last]...)
				rest = append(rest, a)
				rest = append(rest, actions[last:]...)
				actions = rest
				moved = true
				break
			}
		}
	}
	return actions
}

// dependentsFromState inverts the dependency lists recorded in state.
func dependentsFromState(st *ir.State) map[string][]string {
	out := map[string][]string{}
	for addr, entry := range st.Resources {
		for _, dep := range entry.Dependencies {
			out[dep] = append(out[dep], addr)
		}
	}
	for _, deps := range out {
		sort.Strings(deps)
	}
	return out
}

// diffAttributes compares the stored declared snapshot against the current
// declaration. Values compare in their source form, references included,
// so planning stays deterministic and offline.
func diffAttributes(prior, desired map[string]any) ([]string, map[string]*ir.AttributeDiff) {
	diff := make(map[string]*ir.AttributeDiff)

	keys := map[string]bool{}
	for k := range prior {
		keys[k] = true
	}
	for k := range desired {
		keys[k] = true
	}

	var changed []string
	for k := range keys {
		priorVal, inPrior := prior[k]
		desiredVal, inDesired := desired[k]
		switch {
		case !inPrior:
			diff[k] = &ir.AttributeDiff{After: desiredVal, Op: "create"}
			changed = append(changed, k)
		case !inDesired:
			diff[k] = &ir.AttributeDiff{Before: priorVal, Op: "delete"}
			changed = append(changed, k)
		case fmt.Sprintf("%v", priorVal) != fmt.Sprintf("%v", desiredVal):
			diff[k] = &ir.AttributeDiff{Before: priorVal, After: desiredVal, Op: "update"}
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	if len(changed) == 0 {
		return nil, nil
	}
	return changed, diff
}

func createDiff(attrs map[string]any) map[string]*ir.AttributeDiff {
	diff := make(map[string]*ir.AttributeDiff, len(attrs))
	for k, v := range attrs {
		diff[k] = &ir.AttributeDiff{After: v, Op: "create"}
	}
	return diff
}

func attributeKeys(attrs map[string]any) []string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
