package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/groundwork-io/groundwork/internal/ir"
	"github.com/groundwork-io/groundwork/internal/logging"
	"github.com/groundwork-io/groundwork/internal/provider"
	"github.com/groundwork-io/groundwork/pkg/adapter"
)

const defaultParallelism = 10

// StateStore is the executor's view of a state store: an exclusive run
// lock plus atomic per-resource commits.
type StateStore interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
	Reload(ctx context.Context) (*ir.State, error)
	View(read func(*ir.State))
	Commit(ctx context.Context, mutate func(*ir.State)) error
}

// Event reports progress on one action during a run.
type Event struct {
	Address  string
	Action   ir.ActionType
	Status   string // "started", "completed", "failed"
	Duration time.Duration
	Err      error
}

// Callback receives progress events when set.
type Callback func(Event)

// Executor carries out plans against provider adapters, respecting
// dependency order and failure containment. It is the only component that
// mutates the state store while a run is in progress.
type Executor struct {
	registry *provider.Registry
	store    StateStore

	Parallelism int
	Retry       *RetryPolicy
	Callback    Callback
}

func NewExecutor(registry *provider.Registry, store StateStore) *Executor {
	return &Executor{
		registry:    registry,
		store:       store,
		Parallelism: defaultParallelism,
	}
}

// task is one schedulable action with its resolved execution dependencies.
type task struct {
	action *ir.Action

	// deps are addresses whose tasks must succeed before this one starts.
	deps []string

	// stateDeps are the declared dependency addresses recorded in the
	// state entry on commit, pending or not.
	stateDeps []string
}

// Apply executes the plan. Provider failures are contained per branch and
// folded into the report; the error return covers lock and state
// conflicts only.
func (e *Executor) Apply(ctx context.Context, plan *ir.Plan) (*ir.ExecutionReport, error) {
	if err := e.store.Lock(ctx); err != nil {
		return nil, err
	}
	defer e.store.Unlock(context.WithoutCancel(ctx))

	st, err := e.store.Reload(ctx)
	if err != nil {
		return nil, err
	}
	if st.Serial != plan.StateSerial {
		return nil, &StateConflictError{
			Reason: fmt.Sprintf("state serial is %d but the plan was computed against %d; re-plan required",
				st.Serial, plan.StateSerial),
		}
	}

	report := e.run(ctx, e.applyTasks(plan, st))
	report.Finalize(ctx.Err() != nil || report.Cancelled > 0)

	commitCtx := context.WithoutCancel(ctx)
	if err := e.store.Commit(commitCtx, func(s *ir.State) {
		s.AppliedOrder = mergeAppliedOrder(s, plan.ResourceOrder)
		if report.Status == ir.RunSuccess {
			s.Outputs = resolveOutputs(s, plan.Outputs)
		}
	}); err != nil {
		return report, err
	}
	return report, nil
}

// Destroy deletes every resource in state, walking the strict reverse of
// the last successfully recorded topological order.
func (e *Executor) Destroy(ctx context.Context) (*ir.ExecutionReport, error) {
	if err := e.store.Lock(ctx); err != nil {
		return nil, err
	}
	defer e.store.Unlock(context.WithoutCancel(ctx))

	st, err := e.store.Reload(ctx)
	if err != nil {
		return nil, err
	}
	priorGraph, err := BuildFromState(st)
	if err != nil {
		return nil, err
	}

	dependents := dependentsFromState(st)
	var tasks []*task
	for _, addr := range priorGraph.ReverseOrder() {
		entry := st.Entry(addr)
		if entry == nil {
			continue
		}
		t := &task{action: &ir.Action{Address: addr, Type: ir.ActionDelete, Prior: entry}}
		t.deps = append(t.deps, dependents[addr]...)
		tasks = append(tasks, t)
	}

	report := e.run(ctx, tasks)
	report.Finalize(ctx.Err() != nil || report.Cancelled > 0)

	if err := e.store.Commit(context.WithoutCancel(ctx), func(s *ir.State) {
		if len(s.Resources) == 0 {
			s.AppliedOrder = nil
			s.Outputs = nil
		}
	}); err != nil {
		return report, err
	}
	return report, nil
}

// applyTasks derives the execution dependencies of every pending action.
func (e *Executor) applyTasks(plan *ir.Plan, st *ir.State) []*task {
	pending := map[string]*ir.Action{}
	for _, a := range plan.Changes() {
		pending[a.Address] = a
	}
	priorDependents := dependentsFromState(st)

	var tasks []*task
	for _, a := range plan.Changes() {
		t := &task{action: a}

		if a.Type == ir.ActionDelete {
			// A delete waits for every pending action of the resources
			// that depended on it when they were applied.
			for _, y := range priorDependents[a.Address] {
				if pending[y] != nil {
					t.deps = append(t.deps, y)
				}
			}
			tasks = append(tasks, t)
			continue
		}

		for _, d := range declaredDeps(a.Desired) {
			t.stateDeps = append(t.stateDeps, d)
			pd := pending[d]
			if pd == nil {
				continue
			}
			if pd.Type == ir.ActionReplace && st.Entry(a.Address) != nil {
				// Existing dependents settle before the replace tears the
				// old resource down; only new resources wait for it.
				continue
			}
			t.deps = append(t.deps, d)
		}

		if a.Type == ir.ActionReplace {
			for _, y := range priorDependents[a.Address] {
				if y != a.Address && pending[y] != nil {
					t.deps = append(t.deps, y)
				}
			}
		}
		tasks = append(tasks, t)
	}
	return tasks
}

// declaredDeps lists the unique dependency addresses of a declared
// resource: reference targets plus explicit depends_on.
func declaredDeps(res *ir.Resource) []string {
	seen := map[string]bool{}
	var out []string
	add := func(addr string) {
		if addr != res.Address() && !seen[addr] {
			seen[addr] = true
			out = append(out, addr)
		}
	}
	for _, ref := range ExtractRefs(res.Attributes) {
		add(ref.Address())
	}
	for _, dep := range res.DependsOn {
		add(dep)
	}
	return out
}

// run executes tasks level by level. Actions within one level run
// concurrently on a bounded worker pool; no action crosses a level
// boundary until every action of the previous level has terminated.
func (e *Executor) run(ctx context.Context, tasks []*task) *ir.ExecutionReport {
	report := &ir.ExecutionReport{}
	levels := taskLevels(tasks)

	outcome := map[string]ir.ResultStatus{}
	var mu sync.Mutex

	parallelism := e.Parallelism
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}

	for _, level := range levels {
		// Classify skips before launching anything: dependencies all live in
		// earlier levels, which have fully terminated by now.
		var runnable []*task
		for _, t := range level {
			addr := t.action.Address

			if ctx.Err() != nil {
				outcome[addr] = ir.ResultCancelled
				report.Record(&ir.ResourceResult{Address: addr, Action: t.action.Type, Status: ir.ResultCancelled})
				continue
			}

			status := ir.ResultStatus("")
			for _, d := range t.deps {
				switch outcome[d] {
				case ir.ResultCancelled:
					status = ir.ResultCancelled
				case ir.ResultFailed, ir.ResultBlocked:
					if status == "" {
						status = ir.ResultBlocked
					}
				}
			}
			if status != "" {
				outcome[addr] = status
				report.Record(&ir.ResourceResult{Address: addr, Action: t.action.Type, Status: status})
				continue
			}
			runnable = append(runnable, t)
		}

		var wg sync.WaitGroup
		sem := make(chan struct{}, parallelism)
		for _, t := range runnable {
			wg.Add(1)
			go func(t *task) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				result := e.execute(ctx, t)
				mu.Lock()
				outcome[t.action.Address] = result.Status
				report.Record(result)
				mu.Unlock()
			}(t)
		}
		wg.Wait()
	}
	return report
}

// taskLevels groups tasks into dependency levels: level 0 has no pending
// dependency, level k+1 becomes eligible once level <= k has terminated.
func taskLevels(tasks []*task) [][]*task {
	byAddr := make(map[string]*task, len(tasks))
	for _, t := range tasks {
		byAddr[t.action.Address] = t
	}

	memo := map[string]int{}
	var levelOf func(t *task) int
	levelOf = func(t *task) int {
		if lvl, ok := memo[t.action.Address]; ok {
			return lvl
		}
		memo[t.action.Address] = 0 // breaks accidental cycles
		lvl := 0
		for _, d := range t.deps {
			if dep, ok := byAddr[d]; ok {
				if l := levelOf(dep) + 1; l > lvl {
					lvl = l
				}
			}
		}
		memo[t.action.Address] = lvl
		return lvl
	}

	var out [][]*task
	for _, t := range tasks {
		lvl := levelOf(t)
		for len(out) <= lvl {
			out = append(out, nil)
		}
		out[lvl] = append(out[lvl], t)
	}
	return out
}

// execute carries out one action and commits the result. Failures are
// recorded in state and returned as a result, never raised.
func (e *Executor) execute(ctx context.Context, t *task) *ir.ResourceResult {
	a := t.action
	start := time.Now()
	e.emit(Event{Address: a.Address, Action: a.Type, Status: "started"})
	logging.Debug("executing action", "address", a.Address, "action", string(a.Type))

	opCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	var err error
	success := ir.ResultApplied
	switch a.Type {
	case ir.ActionCreate:
		err = e.executeCreate(opCtx, t)
	case ir.ActionUpdate:
		err = e.executeUpdate(opCtx, t)
	case ir.ActionReplace:
		err = e.executeReplace(opCtx, t)
	case ir.ActionDelete:
		err = e.executeDelete(opCtx, t)
		success = ir.ResultDestroyed
	}

	elapsed := time.Since(start)
	if err != nil {
		e.markFailed(ctx, t, err)
		e.emit(Event{Address: a.Address, Action: a.Type, Status: "failed", Duration: elapsed, Err: err})
		return &ir.ResourceResult{
			Address:  a.Address,
			Action:   a.Type,
			Status:   ir.ResultFailed,
			Error:    err.Error(),
			Duration: elapsed,
		}
	}

	e.emit(Event{Address: a.Address, Action: a.Type, Status: "completed", Duration: elapsed})
	return &ir.ResourceResult{Address: a.Address, Action: a.Type, Status: success, Duration: elapsed}
}

func (e *Executor) executeCreate(ctx context.Context, t *task) error {
	res := t.action.Desired
	ad, err := e.registry.Get(res.Provider, res.Kind)
	if err != nil {
		return err
	}

	attrs := e.resolveAttrs(res.Attributes)
	var outputs adapter.Attrs
	err = RetryWithBackoff(ctx, e.Retry, func() error {
		var cerr error
		outputs, cerr = ad.Create(ctx, attrs)
		return cerr
	}, IsRetryable)
	if err != nil {
		return fmt.Errorf("create failed for %s: %w", t.action.Address, err)
	}

	return e.store.Commit(context.WithoutCancel(ctx), func(s *ir.State) {
		s.Put(t.action.Address, &ir.StateEntry{
			Kind:         res.Kind,
			Name:         res.Name,
			Provider:     res.Provider,
			Status:       ir.StatusApplied,
			Attributes:   res.Attributes,
			Outputs:      outputs,
			Dependencies: t.stateDeps,
		})
	})
}

func (e *Executor) executeUpdate(ctx context.Context, t *task) error {
	res := t.action.Desired
	ad, err := e.registry.Get(res.Provider, res.Kind)
	if err != nil {
		return err
	}

	id := t.action.Prior.ID()
	attrs := e.resolveAttrs(res.Attributes)
	changed := make(adapter.Attrs, len(t.action.Changed))
	for _, k := range t.action.Changed {
		changed[k] = attrs[k]
	}

	var outputs adapter.Attrs
	err = RetryWithBackoff(ctx, e.Retry, func() error {
		var uerr error
		outputs, uerr = ad.Update(ctx, id, changed)
		return uerr
	}, IsRetryable)
	if err != nil {
		return fmt.Errorf("update failed for %s: %w", t.action.Address, err)
	}

	return e.store.Commit(context.WithoutCancel(ctx), func(s *ir.State) {
		entry := s.Entry(t.action.Address)
		if entry == nil {
			entry = &ir.StateEntry{Kind: res.Kind, Name: res.Name, Provider: res.Provider}
			s.Put(t.action.Address, entry)
		}
		entry.Status = ir.StatusApplied
		entry.Attributes = res.Attributes
		if outputs != nil {
			entry.Outputs = outputs
		}
		entry.Dependencies = t.stateDeps
		entry.Error = ""
	})
}

// executeReplace deletes the old resource and creates its successor under
// the same address. The surrounding schedule already guaranteed every
// dependent settled first.
func (e *Executor) executeReplace(ctx context.Context, t *task) error {
	res := t.action.Desired
	ad, err := e.registry.Get(res.Provider, res.Kind)
	if err != nil {
		return err
	}

	if id := t.action.Prior.ID(); id != "" {
		err = RetryWithBackoff(ctx, e.Retry, func() error {
			return ad.Delete(ctx, id, t.action.Prior.Attributes)
		}, IsRetryable)
		if err != nil {
			return fmt.Errorf("replace failed for %s: deleting old resource: %w", t.action.Address, err)
		}
	}

	return e.executeCreate(ctx, t)
}

func (e *Executor) executeDelete(ctx context.Context, t *task) error {
	entry := t.action.Prior

	if id := entry.ID(); id != "" {
		ad, err := e.registry.Get(entry.Provider, entry.Kind)
		if err != nil {
			return err
		}
		err = RetryWithBackoff(ctx, e.Retry, func() error {
			return ad.Delete(ctx, id, entry.Attributes)
		}, IsRetryable)
		if err != nil {
			return fmt.Errorf("delete failed for %s: %w", t.action.Address, err)
		}
	}

	return e.store.Commit(context.WithoutCancel(ctx), func(s *ir.State) {
		s.Remove(t.action.Address)
	})
}

// markFailed records a permanent failure on the resource's state entry.
func (e *Executor) markFailed(ctx context.Context, t *task, cause error) {
	a := t.action
	err := e.store.Commit(context.WithoutCancel(ctx), func(s *ir.State) {
		entry := s.Entry(a.Address)
		if entry == nil {
			entry = &ir.StateEntry{}
			if a.Desired != nil {
				entry.Kind = a.Desired.Kind
				entry.Name = a.Desired.Name
				entry.Provider = a.Desired.Provider
				entry.Attributes = a.Desired.Attributes
			} else if a.Prior != nil {
				entry.Kind = a.Prior.Kind
				entry.Name = a.Prior.Name
				entry.Provider = a.Prior.Provider
			}
			s.Put(a.Address, entry)
		}
		entry.Status = ir.StatusFailed
		entry.Error = cause.Error()
	})
	if err != nil {
		logging.Error("failed to record failure in state", "address", a.Address, "error", err)
	}
}

// resolveAttrs substitutes reference expressions against committed state.
func (e *Executor) resolveAttrs(attrs map[string]any) map[string]any {
	var resolved any
	e.store.View(func(s *ir.State) {
		resolved = resolveValue(attrs, func(ref Reference) (any, bool) {
			entry := s.Entry(ref.Address())
			if entry == nil {
				return nil, false
			}
			if v, ok := entry.Outputs[ref.Attribute]; ok {
				return v, true
			}
			if v, ok := entry.Attributes[ref.Attribute]; ok {
				return v, true
			}
			return nil, false
		})
	})
	out, _ := resolved.(map[string]any)
	return out
}

// resolveOutputs substitutes output expressions against the final state.
// Unresolvable references stay in source form.
func resolveOutputs(s *ir.State, outputs map[string]any) map[string]any {
	if len(outputs) == 0 {
		return nil
	}
	resolved := resolveValue(outputs, func(ref Reference) (any, bool) {
		entry := s.Entry(ref.Address())
		if entry == nil {
			return nil, false
		}
		if v, ok := entry.Outputs[ref.Attribute]; ok {
			return v, true
		}
		if v, ok := entry.Attributes[ref.Attribute]; ok {
			return v, true
		}
		return nil, false
	})
	out, _ := resolved.(map[string]any)
	return out
}

// mergeAppliedOrder records the plan's topological order, keeping entries
// that survived from earlier runs ahead of it.
func mergeAppliedOrder(s *ir.State, planOrder []string) []string {
	inPlan := map[string]bool{}
	for _, a := range planOrder {
		inPlan[a] = true
	}
	var out []string
	for _, a := range s.AppliedOrder {
		if !inPlan[a] && s.Entry(a) != nil {
			out = append(out, a)
		}
	}
	for _, a := range planOrder {
		if s.Entry(a) != nil {
			out = append(out, a)
		}
	}
	return out
}

func (e *Executor) emit(ev Event) {
	if e.Callback != nil {
		e.Callback(ev)
	}
}
