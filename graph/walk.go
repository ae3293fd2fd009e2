package graph

import (
	"iter"
	"slices"
)

// Walk returns a lazy breadth-first traversal over the nodes reachable from
// n along dependency edges, starting with n itself. Every reachable node is
// yielded exactly once, in dependency insertion order at each level, so the
// sequence is deterministic and restartable.
func (n *Node) Walk() iter.Seq[*Node] {
	return n.walk(func(node *Node) []string {
		return node.depOrder
	})
}

// WalkByName is Walk with each level's dependencies visited in name-sorted
// order. This is the ordering used by checkpoint serialization.
func (n *Node) WalkByName() iter.Seq[*Node] {
	return n.walk(func(node *Node) []string {
		names := slices.Clone(node.depOrder)
		slices.Sort(names)
		return names
	})
}

// walk implements the shared BFS. levelOrder picks the visit order of a
// node's dependency names.
func (n *Node) walk(levelOrder func(*Node) []string) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		queue := []*Node{n}
		seen := map[string]struct{}{n.id: {}}

		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]

			if !yield(node) {
				return
			}

			for _, name := range levelOrder(node) {
				dep := node.dependsOn[name]
				if _, ok := seen[dep.id]; ok {
					continue
				}
				seen[dep.id] = struct{}{}
				queue = append(queue, dep)
			}
		}
	}
}
