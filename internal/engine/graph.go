package engine

import (
	"sort"

	"github.com/groundwork-io/groundwork/internal/ir"
)

// Graph is the directed acyclic dependency graph over declared resources.
// Resources live in an arena slice in declaration order; edges are index
// lists, so the representation carries no object cycles.
type Graph struct {
	resources []*ir.Resource
	index     map[string]int // address -> arena index
	edges     [][]int        // edges[i]: indexes i depends on
	revEdges  [][]int        // revEdges[i]: indexes depending on i
	order     []int          // topological order, ties by declaration order
	level     []int          // dependency level per arena index
}

// Build constructs the graph from the declaration set. Every attribute of
// every resource is parsed for reference expressions; each resolved
// reference becomes an edge to the referenced resource. Explicit
// depends_on entries contribute edges the same way.
func Build(resources []*ir.Resource) (*Graph, error) {
	g := &Graph{
		resources: resources,
		index:     make(map[string]int, len(resources)),
		edges:     make([][]int, len(resources)),
		revEdges:  make([][]int, len(resources)),
	}

	for i, res := range resources {
		addr := res.Address()
		if _, dup := g.index[addr]; dup {
			return nil, &DuplicateResourceError{Address: addr}
		}
		g.index[addr] = i
	}

	for i, res := range resources {
		seen := map[int]bool{}
		addEdge := func(target string) error {
			j, ok := g.index[target]
			if !ok {
				return &UndeclaredReferenceError{Address: res.Address(), Reference: target}
			}
			if j != i && !seen[j] {
				seen[j] = true
				g.edges[i] = append(g.edges[i], j)
				g.revEdges[j] = append(g.revEdges[j], i)
			}
			return nil
		}

		for _, ref := range ExtractRefs(res.Attributes) {
			if err := addEdge(ref.Address()); err != nil {
				return nil, err
			}
		}
		for _, dep := range res.DependsOn {
			if err := addEdge(dep); err != nil {
				return nil, err
			}
		}
	}

	if err := g.topoSort(); err != nil {
		return nil, err
	}
	g.computeLevels()
	return g, nil
}

// BuildFromState reconstructs the dependency graph recorded in applied
// state, used to order destroys and removals of undeclared resources.
func BuildFromState(state *ir.State) (*Graph, error) {
	addrs := make([]string, 0, len(state.Resources))
	inOrder := map[string]bool{}
	for _, a := range state.AppliedOrder {
		if state.Entry(a) != nil && !inOrder[a] {
			addrs = append(addrs, a)
			inOrder[a] = true
		}
	}
	// Entries missing from the recorded order still need a slot.
	var rest []string
	for a := range state.Resources {
		if !inOrder[a] {
			rest = append(rest, a)
		}
	}
	sort.Strings(rest)
	addrs = append(addrs, rest...)

	resources := make([]*ir.Resource, len(addrs))
	for i, a := range addrs {
		e := state.Entry(a)
		res := &ir.Resource{Kind: e.Kind, Name: e.Name, Provider: e.Provider}
		for _, dep := range e.Dependencies {
			if state.Entry(dep) != nil {
				res.DependsOn = append(res.DependsOn, dep)
			}
		}
		resources[i] = res
	}
	return Build(resources)
}

// topoSort runs a stable variant of Kahn's algorithm: among resources with
// no unresolved dependency at a step, ties break by declaration order, so
// identical input always yields an identical order.
func (g *Graph) topoSort() error {
	n := len(g.resources)
	degree := make([]int, n)
	for i := range g.resources {
		degree[i] = len(g.edges[i])
	}

	var ready []int // kept sorted ascending by arena index
	for i := 0; i < n; i++ {
		if degree[i] == 0 {
			ready = append(ready, i)
		}
	}

	g.order = make([]int, 0, n)
	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]
		g.order = append(g.order, i)
		for _, dep := range g.revEdges[i] {
			degree[dep]--
			if degree[dep] == 0 {
				pos := sort.SearchInts(ready, dep)
				ready = append(ready, 0)
				copy(ready[pos+1:], ready[pos:])
				ready[pos] = dep
			}
		}
	}

	if len(g.order) != n {
		return &CyclicDependencyError{Cycle: g.findCycle(degree)}
	}
	return nil
}

// findCycle extracts one full cycle among the nodes Kahn never emitted.
func (g *Graph) findCycle(degree []int) []string {
	remaining := map[int]bool{}
	start := -1
	for i, d := range degree {
		if d > 0 {
			remaining[i] = true
			if start == -1 {
				start = i
			}
		}
	}

	// Walk dependency edges within the remaining set; every such node sits
	// on or leads into a cycle, so the walk must revisit a node.
	var stack []int
	onStack := map[int]int{}
	cur := start
	for {
		if pos, seen := onStack[cur]; seen {
			cycle := make([]string, 0, len(stack)-pos+1)
			for _, i := range stack[pos:] {
				cycle = append(cycle, g.resources[i].Address())
			}
			cycle = append(cycle, g.resources[cur].Address())
			return cycle
		}
		onStack[cur] = len(stack)
		stack = append(stack, cur)
		next := -1
		for _, dep := range g.edges[cur] {
			if remaining[dep] {
				next = dep
				break
			}
		}
		cur = next
	}
}

// computeLevels assigns each resource its dependency level: 0 for no
// dependencies, otherwise one past the deepest dependency.
func (g *Graph) computeLevels() {
	g.level = make([]int, len(g.resources))
	for _, i := range g.order {
		lvl := 0
		for _, dep := range g.edges[i] {
			if g.level[dep]+1 > lvl {
				lvl = g.level[dep] + 1
			}
		}
		g.level[i] = lvl
	}
}

// Resources returns the resources in declaration order.
func (g *Graph) Resources() []*ir.Resource {
	return g.resources
}

// Resource returns the declared resource at addr, or nil.
func (g *Graph) Resource(addr string) *ir.Resource {
	if i, ok := g.index[addr]; ok {
		return g.resources[i]
	}
	return nil
}

// TopoOrder returns addresses in deterministic topological order.
func (g *Graph) TopoOrder() []string {
	out := make([]string, len(g.order))
	for i, idx := range g.order {
		out[i] = g.resources[idx].Address()
	}
	return out
}

// ReverseOrder returns addresses in strict reverse topological order.
func (g *Graph) ReverseOrder() []string {
	topo := g.TopoOrder()
	out := make([]string, len(topo))
	for i, addr := range topo {
		out[len(topo)-1-i] = addr
	}
	return out
}

// Level returns the dependency level of addr, or -1 if undeclared.
func (g *Graph) Level(addr string) int {
	if i, ok := g.index[addr]; ok {
		return g.level[i]
	}
	return -1
}

// Levels groups addresses by dependency level; addresses within a level
// keep declaration order.
func (g *Graph) Levels() [][]string {
	var out [][]string
	for i, res := range g.resources {
		lvl := g.level[i]
		for len(out) <= lvl {
			out = append(out, nil)
		}
		out[lvl] = append(out[lvl], res.Address())
	}
	return out
}

// Dependencies returns the addresses addr depends on, in declaration order.
func (g *Graph) Dependencies(addr string) []string {
	i, ok := g.index[addr]
	if !ok {
		return nil
	}
	deps := make([]int, len(g.edges[i]))
	copy(deps, g.edges[i])
	sort.Ints(deps)
	out := make([]string, len(deps))
	for k, j := range deps {
		out[k] = g.resources[j].Address()
	}
	return out
}

// TransitiveDeps returns every address addr depends on, directly or
// through other resources.
func (g *Graph) TransitiveDeps(addr string) []string {
	i, ok := g.index[addr]
	if !ok {
		return nil
	}
	seen := map[int]bool{}
	stack := append([]int(nil), g.edges[i]...)
	for len(stack) > 0 {
		j := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[j] {
			continue
		}
		seen[j] = true
		stack = append(stack, g.edges[j]...)
	}
	idxs := make([]int, 0, len(seen))
	for j := range seen {
		idxs = append(idxs, j)
	}
	sort.Ints(idxs)
	out := make([]string, len(idxs))
	for k, j := range idxs {
		out[k] = g.resources[j].Address()
	}
	return out
}

// Dependents returns the addresses that depend on addr, in declaration order.
func (g *Graph) Dependents(addr string) []string {
	i, ok := g.index[addr]
	if !ok {
		return nil
	}
	deps := make([]int, len(g.revEdges[i]))
	copy(deps, g.revEdges[i])
	sort.Ints(deps)
	out := make([]string, len(deps))
	for k, j := range deps {
		out[k] = g.resources[j].Address()
	}
	return out
}
