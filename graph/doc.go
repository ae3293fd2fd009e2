// Package graph provides the generic directed-acyclic-graph vertex used by
// the task layer. A Node carries an identity, an opaque payload and two
// mirrored edge indexes: the nodes it depends on and the nodes that depend
// on it. Structural invariants (no cycles, no duplicate dependency names)
// are validated before any mutation, so a failed edge operation never
// leaves the graph half-changed.
package graph
