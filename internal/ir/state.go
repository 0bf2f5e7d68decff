package ir

// Status describes the outcome of the last operation on a resource.
type Status string

const (
	// StatusApplied marks a resource whose last create or update committed.
	StatusApplied Status = "applied"
	// StatusFailed marks a resource whose last operation did not complete.
	StatusFailed Status = "failed"
	// StatusTainted marks a resource explicitly flagged for replacement.
	StatusTainted Status = "tainted"
)

// State represents the persisted last-known-applied state.
type State struct {
	Version int    `json:"version"`
	Serial  int    `json:"serial"`
	Lineage string `json:"lineage"`

	// Resources maps resource address (kind.name) to its state entry.
	Resources map[string]*StateEntry `json:"resources"`

	// AppliedOrder is the topological order recorded by the last successful
	// apply. Destroy walks it in strict reverse.
	AppliedOrder []string `json:"applied_order,omitempty"`

	Outputs map[string]any `json:"outputs,omitempty"`
}

// StateEntry is the persisted record of one applied resource.
type StateEntry struct {
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Status   Status `json:"status"`

	// Attributes is the declared attribute snapshot used to produce the
	// resource, with references kept in their source form.
	Attributes map[string]any `json:"attributes"`

	// Outputs holds provider-assigned attributes, including "id".
	Outputs map[string]any `json:"outputs,omitempty"`

	// Dependencies lists the addresses this resource depended on when it
	// was applied, so destroy ordering survives declaration removal.
	Dependencies []string `json:"dependencies,omitempty"`

	// Error records the provider-reported reason when Status is failed.
	Error string `json:"error,omitempty"`
}

// NewState returns an empty versioned state.
func NewState() *State {
	return &State{
		Version:   1,
		Resources: map[string]*StateEntry{},
	}
}

// Entry returns the state entry for addr, or nil.
func (s *State) Entry(addr string) *StateEntry {
	if s.Resources == nil {
		return nil
	}
	return s.Resources[addr]
}

// Put stores entry under addr.
func (s *State) Put(addr string, entry *StateEntry) {
	if s.Resources == nil {
		s.Resources = map[string]*StateEntry{}
	}
	s.Resources[addr] = entry
}

// Remove drops the entry for addr and removes it from the applied order.
func (s *State) Remove(addr string) {
	delete(s.Resources, addr)
	for i, a := range s.AppliedOrder {
		if a == addr {
			s.AppliedOrder = append(s.AppliedOrder[:i], s.AppliedOrder[i+1:]...)
			break
		}
	}
}

// ID returns the provider-assigned identifier of the entry, if any.
func (e *StateEntry) ID() string {
	if e == nil || e.Outputs == nil {
		return ""
	}
	if id, ok := e.Outputs["id"].(string); ok {
		return id
	}
	return ""
}

// Address returns the entry's resource address (kind.name).
func (e *StateEntry) Address() string {
	return e.Kind + "." + e.Name
}
