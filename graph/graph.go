package graph

import (
	"fmt"
	"slices"
	"sort"

	"github.com/google/uuid"
)

// Node is a single vertex in a dependency graph. Its identity is a generated
// id, never derived from the payload, so two nodes wrapping identical
// payloads remain distinct in every index and set.
type Node struct {
	// id is the unique handle used for set membership and edge indexing.
	id string
	// name is the human-readable identifier. It must be unique among the
	// dependencies of any single node, but not globally.
	name string
	// payload is opaque data carried for the owner of the node.
	payload any

	// dependsOn indexes the nodes this node waits for, keyed by name.
	// Name-keying is safe because dependency names are unique per node.
	dependsOn map[string]*Node
	// depOrder remembers insertion order of dependencies so the default
	// traversal is deterministic without sorting.
	depOrder []string
	// dependedOnBy is the inverse edge set, keyed by node id since names
	// are not unique across dependents.
	dependedOnBy map[string]*Node
}

// New creates a detached node with the given name and payload.
func New(name string, payload any) *Node {
	return &Node{
		id:           uuid.NewString(),
		name:         name,
		payload:      payload,
		dependsOn:    make(map[string]*Node),
		dependedOnBy: make(map[string]*Node),
	}
}

// ID returns the node's unique handle.
func (n *Node) ID() string { return n.id }

// Name returns the node's human-readable identifier.
func (n *Node) Name() string { return n.name }

// Payload returns the opaque data attached at construction.
func (n *Node) Payload() any { return n.payload }

func (n *Node) String() string { return fmt.Sprintf("<node %s>", n.name) }

// AddDependency inserts the edge n -> target, meaning n must wait for
// target. The edge is rejected with ErrNameConflict if another dependency
// of n already uses target's name, and with ErrCycle if n is reachable
// from target (including target == n). On rejection nothing is mutated.
func (n *Node) AddDependency(target *Node) error {
	if existing, ok := n.dependsOn[target.name]; ok {
		if existing.id == target.id {
			// Exact edge already present; adding it again is a no-op.
			return nil
		}
		return &EdgeError{Op: "add", Node: n.name, Target: target.name, Err: ErrNameConflict}
	}

	if target.reaches(n) {
		return &EdgeError{Op: "add", Node: n.name, Target: target.name, Err: ErrCycle}
	}

	n.dependsOn[target.name] = target
	n.depOrder = append(n.depOrder, target.name)
	target.dependedOnBy[n.id] = n
	return nil
}

// RemoveDependency deletes the edge n -> target. It fails with
// ErrEdgeNotFound if the edge is not present.
func (n *Node) RemoveDependency(target *Node) error {
	existing, ok := n.dependsOn[target.name]
	if !ok || existing.id != target.id {
		return &EdgeError{Op: "remove", Node: n.name, Target: target.name, Err: ErrEdgeNotFound}
	}

	delete(n.dependsOn, target.name)
	if i := slices.Index(n.depOrder, target.name); i >= 0 {
		n.depOrder = slices.Delete(n.depOrder, i, i+1)
	}
	delete(target.dependedOnBy, n.id)
	return nil
}

// Lookup finds a direct dependency by name.
func (n *Node) Lookup(name string) (*Node, error) {
	if dep, ok := n.dependsOn[name]; ok {
		return dep, nil
	}
	return nil, &EdgeError{Op: "lookup", Node: n.name, Target: name, Err: ErrNotFound}
}

// Dependencies returns the direct dependencies sorted by name.
func (n *Node) Dependencies() []*Node {
	deps := make([]*Node, 0, len(n.dependsOn))
	for _, dep := range n.dependsOn {
		deps = append(deps, dep)
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].name < deps[j].name })
	return deps
}

// DependencyAt returns the i-th dependency in name order.
func (n *Node) DependencyAt(i int) (*Node, error) {
	deps := n.Dependencies()
	if i < 0 || i >= len(deps) {
		return nil, fmt.Errorf("graph: dependency index %d out of range [0,%d)", i, len(deps))
	}
	return deps[i], nil
}

// Dependents returns the nodes that directly depend on n, sorted by name
// (ties broken by id, since dependent names may collide).
func (n *Node) Dependents() []*Node {
	deps := make([]*Node, 0, len(n.dependedOnBy))
	for _, d := range n.dependedOnBy {
		deps = append(deps, d)
	}
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].name != deps[j].name {
			return deps[i].name < deps[j].name
		}
		return deps[i].id < deps[j].id
	})
	return deps
}

// reaches reports whether target is reachable from n along dependency
// edges, counting n itself.
func (n *Node) reaches(target *Node) bool {
	for node := range n.Walk() {
		if node.id == target.id {
			return true
		}
	}
	return false
}
