package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors for structural violations. Callers match them with
// errors.Is; the wrapping EdgeError carries the nodes involved.
var (
	// ErrNameConflict is returned when a node already has a dependency
	// with the same name as the one being added.
	ErrNameConflict = errors.New("dependency name already taken")

	// ErrCycle is returned when adding an edge would make a node reachable
	// from itself.
	ErrCycle = errors.New("edge would create a cycle")

	// ErrEdgeNotFound is returned when removing an edge that does not exist.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrNotFound is returned by Lookup when no direct dependency has the
	// requested name.
	ErrNotFound = errors.New("dependency not found")
)

// EdgeError describes a rejected edge operation. It names both endpoints so
// callers can report which pair of nodes violated which rule.
type EdgeError struct {
	Op     string // "add", "remove" or "lookup"
	Node   string // name of the node the operation was called on
	Target string // name of the other endpoint (or the looked-up name)
	Err    error  // one of the sentinel errors above
}

func (e *EdgeError) Error() string {
	return fmt.Sprintf("graph: %s dependency %q -> %q: %v", e.Op, e.Node, e.Target, e.Err)
}

func (e *EdgeError) Unwrap() error { return e.Err }
