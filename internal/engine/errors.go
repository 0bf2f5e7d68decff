package engine

import (
	"fmt"
	"strings"
)

// Validation errors are raised during graph construction, before any
// provider call, and are always fatal to the run.

// DuplicateResourceError reports two declarations sharing one address.
type DuplicateResourceError struct {
	Address string
}

func (e *DuplicateResourceError) Error() string {
	return fmt.Sprintf("duplicate resource declaration: %s", e.Address)
}

// UndeclaredReferenceError reports a reference to a resource that is not
// part of the declaration set.
type UndeclaredReferenceError struct {
	Address   string // the referencing resource
	Reference string // the missing target address
}

func (e *UndeclaredReferenceError) Error() string {
	return fmt.Sprintf("%s references undeclared resource %s", e.Address, e.Reference)
}

// CyclicDependencyError reports a reference cycle, listing the full cycle
// in order to aid debugging.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Cycle, " -> "))
}

// StateConflictError reports that the run lock could not be acquired or
// that stored state was mutated out-of-band since it was read. The caller
// must re-plan.
type StateConflictError struct {
	Reason string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("state conflict: %s", e.Reason)
}
