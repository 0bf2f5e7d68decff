package ir

// ActionType classifies a planned change.
type ActionType string

const (
	ActionCreate  ActionType = "CREATE"
	ActionUpdate  ActionType = "UPDATE"
	ActionReplace ActionType = "REPLACE" // delete then create of the same address
	ActionDelete  ActionType = "DELETE"
	ActionNoOp    ActionType = "NOOP"
)

// Plan is an ordered sequence of actions converging state to declarations.
type Plan struct {
	CreatedAt string         `json:"created_at"`
	Actions   []*Action      `json:"actions"`
	Summary   *PlanSummary   `json:"summary"`
	Outputs   map[string]any `json:"outputs,omitempty"`

	// StateSerial is the serial of the state the plan was computed against.
	// Apply refuses a plan whose serial no longer matches the stored state.
	StateSerial int `json:"state_serial"`

	// ResourceOrder is the deterministic topological order of the declared
	// resources; a successful apply records it for later destroys.
	ResourceOrder []string `json:"resource_order,omitempty"`
}

// Action is one planned operation on one resource.
type Action struct {
	Address string     `json:"address"`
	Type    ActionType `json:"type"`

	// Changed lists the differing attributes for UPDATE and REPLACE.
	Changed []string `json:"changed,omitempty"`

	Desired *Resource                 `json:"desired,omitempty"`
	Prior   *StateEntry               `json:"prior,omitempty"`
	Diff    map[string]*AttributeDiff `json:"diff,omitempty"`
}

// AttributeDiff records a single attribute change.
type AttributeDiff struct {
	Before any    `json:"before,omitempty"`
	After  any    `json:"after,omitempty"`
	Op     string `json:"op"` // "create", "update", "delete"
}

// PlanSummary counts planned actions by type.
type PlanSummary struct {
	Create  int `json:"create"`
	Update  int `json:"update"`
	Replace int `json:"replace"`
	Delete  int `json:"delete"`
	NoOp    int `json:"noop"`
}

// Changes returns the actions that mutate infrastructure, in plan order.
func (p *Plan) Changes() []*Action {
	var out []*Action
	for _, a := range p.Actions {
		if a.Type != ActionNoOp {
			out = append(out, a)
		}
	}
	return out
}

// HasChanges reports whether applying the plan would do anything.
func (p *Plan) HasChanges() bool {
	return len(p.Changes()) > 0
}
