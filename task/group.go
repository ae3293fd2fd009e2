package task

import (
	"context"
	"slices"
)

// Group composes several independent task graphs under one synthetic root
// so they execute as a single run. The group's own result is the list of
// its members' results, in member order, with transient members' values
// dropped. The group itself is transient: its combined result never
// reaches a checkpoint.
type Group struct {
	*Task

	// members are the constituent tasks in construction order.
	members []*Task
	// reachable is the union of every member's reachable set.
	reachable map[*Task]struct{}
	// originalLeaves are the dependency-less tasks across all members at
	// construction time, plus the group root itself. AttachDownstream
	// hangs new work under these.
	originalLeaves []*Task
}

// NewGroup builds a group over the given member tasks. Member names must
// be unique, since every member becomes a direct dependency of the group.
func NewGroup(name string, members ...*Task) (*Group, error) {
	g := &Group{
		members:   slices.Clone(members),
		reachable: make(map[*Task]struct{}),
	}

	for _, m := range members {
		m.each(func(t *Task) bool {
			g.reachable[t] = struct{}{}
			return true
		})
	}

	for _, m := range members {
		m.each(func(t *Task) bool {
			if len(t.Dependencies()) == 0 && !slices.Contains(g.originalLeaves, t) {
				g.originalLeaves = append(g.originalLeaves, t)
			}
			return true
		})
	}

	work := func(ctx context.Context, inv Invocation) (any, error) {
		results := make([]any, 0, len(g.members))
		for i, m := range g.members {
			if m.StoresResult() {
				results = append(results, inv.Args[i])
			}
		}
		return results, nil
	}

	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}

	t, err := New(name, work, Args(args...), Transient())
	if err != nil {
		return nil, err
	}
	t.group = g
	g.Task = t
	g.originalLeaves = append(g.originalLeaves, t)

	return g, nil
}

// Members returns the constituent tasks in construction order.
func (g *Group) Members() []*Task {
	return slices.Clone(g.members)
}

// AttachDownstream adds t as a dependency of the group root. With cascade
// set, t instead becomes a dependency of every original leaf, recursing
// through nested groups, so t executes before anything already in the
// group.
func (g *Group) AttachDownstream(t *Task, cascade bool) error {
	if !cascade {
		return g.Task.AddDependency(t)
	}

	for _, leaf := range g.originalLeaves {
		if leaf.group != nil && leaf.group != g {
			if err := leaf.group.AttachDownstream(t, true); err != nil {
				return err
			}
			continue
		}
		if err := leaf.AddDependency(t); err != nil {
			return err
		}
	}
	return nil
}

// Reset cascades a reset across every task the group originally composed,
// then resets the group root itself.
func (g *Group) Reset() {
	for t := range g.reachable {
		t.Reset()
	}
	g.Task.Reset()
}
