package task

import (
	"context"
	"fmt"

	"github.com/mohae/deepcopy"
	"github.com/vk/taskgridgo/graph"
)

// FailureVar is the reserved Vars key under which the run loop records a
// diagnostic when a task's work function fails.
const FailureVar = "@taskgrid.failure"

// WorkFunc is the unit of work carried by a Task. It receives the resolved
// invocation (Task-valued arguments replaced by their results) and returns
// the task's result. Returning a *Deferral value asks the scheduler for a
// retry after a delay; returning an error fails the task.
type WorkFunc func(ctx context.Context, inv Invocation) (any, error)

// Invocation is the resolved argument set passed to a WorkFunc.
type Invocation struct {
	// Self is the owning task. It is populated only for tasks constructed
	// with BindSelf.
	Self *Task
	// Args holds the positional arguments with every *Task replaced by an
	// independent copy of that task's result.
	Args []any
	// Kwargs holds the keyword arguments, resolved the same way.
	Kwargs map[string]any
}

// Task is a named unit of work in a dependency graph.
type Task struct {
	node *graph.Node

	work     WorkFunc
	args     []any
	kwargs   map[string]any
	bindSelf bool

	state     State
	result    any
	hasResult bool

	// storesResult controls whether the cached result is written into
	// checkpoints. Transient tasks keep it only in memory.
	storesResult bool

	// Vars is an open string-keyed map for auxiliary bookkeeping. The run
	// loop reserves FailureVar for failure diagnostics.
	Vars map[string]any

	// pendingDeferral is set while the task waits out a retry delay.
	pendingDeferral *Deferral

	// group is non-nil when this task is the synthetic root of a Group.
	group *Group
}

// Option configures a Task at construction time.
type Option func(*Task)

// Args supplies positional arguments for the work function. Any *Task value
// becomes a dependency edge, and at invocation time it is replaced by that
// task's result.
func Args(args ...any) Option {
	return func(t *Task) { t.args = append(t.args, args...) }
}

// Kwargs supplies keyword arguments, resolved the same way as Args.
func Kwargs(kwargs map[string]any) Option {
	return func(t *Task) {
		if t.kwargs == nil {
			t.kwargs = make(map[string]any, len(kwargs))
		}
		for k, v := range kwargs {
			t.kwargs[k] = v
		}
	}
}

// BindSelf marks the work function as self-aware: the owning task is passed
// in Invocation.Self.
func BindSelf() Option {
	return func(t *Task) { t.bindSelf = true }
}

// Transient marks the task's result as memory-only: it is cached during a
// run but never written into checkpoints.
func Transient() Option {
	return func(t *Task) { t.storesResult = false }
}

// New creates an idle task with the given name and work function. Task
// values appearing in Args or Kwargs are wired as dependency edges; edge
// validation errors (duplicate dependency names, cycles) surface here.
func New(name string, work WorkFunc, opts ...Option) (*Task, error) {
	t := &Task{
		work:         work,
		state:        StateIdle,
		storesResult: true,
		Vars:         make(map[string]any),
	}
	t.node = graph.New(name, t)

	for _, opt := range opts {
		opt(t)
	}

	for _, arg := range t.args {
		if dep, ok := arg.(*Task); ok {
			if err := t.AddDependency(dep); err != nil {
				return nil, err
			}
		}
	}
	for _, v := range t.kwargs {
		if dep, ok := v.(*Task); ok {
			if err := t.AddDependency(dep); err != nil {
				return nil, err
			}
		}
	}

	return t, nil
}

// MustNew is New for statically wired graphs where an edge error is a
// programming mistake.
func MustNew(name string, work WorkFunc, opts ...Option) *Task {
	t, err := New(name, work, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the task's name.
func (t *Task) Name() string { return t.node.Name() }

// Node exposes the underlying graph vertex.
func (t *Task) Node() *graph.Node { return t.node }

// State returns the task's current lifecycle state.
func (t *Task) State() State { return t.state }

// StoresResult reports whether the task's result is written to checkpoints.
func (t *Task) StoresResult() bool { return t.storesResult }

// Pending returns the task's pending deferral, or nil.
func (t *Task) Pending() *Deferral { return t.pendingDeferral }

func (t *Task) String() string {
	return fmt.Sprintf("<task %s %s>", t.Name(), t.state)
}

// setState transitions the task and invalidates the cached result on any
// transition away from finished.
func (t *Task) setState(s State) {
	t.state = s
	if s != StateFinished {
		t.result = nil
		t.hasResult = false
	}
}

// setResult caches a result and marks the task finished.
func (t *Task) setResult(v any) {
	t.state = StateFinished
	t.result = v
	t.hasResult = true
}

// AddDependency wires dep as a prerequisite of t.
func (t *Task) AddDependency(dep *Task) error {
	return t.node.AddDependency(dep.node)
}

// RemoveDependency deletes the prerequisite edge t -> dep.
func (t *Task) RemoveDependency(dep *Task) error {
	return t.node.RemoveDependency(dep.node)
}

// Lookup finds a direct dependency task by name.
func (t *Task) Lookup(name string) (*Task, error) {
	n, err := t.node.Lookup(name)
	if err != nil {
		return nil, err
	}
	return fromNode(n), nil
}

// Dependencies returns the direct dependency tasks, name-sorted.
func (t *Task) Dependencies() []*Task {
	nodes := t.node.Dependencies()
	deps := make([]*Task, len(nodes))
	for i, n := range nodes {
		deps[i] = fromNode(n)
	}
	return deps
}

// Dependents returns the tasks that directly depend on t, name-sorted.
func (t *Task) Dependents() []*Task {
	nodes := t.node.Dependents()
	deps := make([]*Task, len(nodes))
	for i, n := range nodes {
		deps[i] = fromNode(n)
	}
	return deps
}

// fromNode maps a graph vertex back to its owning task.
func fromNode(n *graph.Node) *Task {
	return n.Payload().(*Task)
}

// each visits every task reachable from t, including t, in name-ordered
// breadth-first order.
func (t *Task) each(fn func(*Task) bool) {
	for n := range t.node.WalkByName() {
		if !fn(fromNode(n)) {
			return
		}
	}
}

// Reset drops the cached result and forces the task back to idle. Pending
// deferrals and failure diagnostics are cleared as well.
func (t *Task) Reset() {
	t.pendingDeferral = nil
	delete(t.Vars, FailureVar)
	t.setState(StateIdle)
}

// ResetWithUpstreamInvalidation resets this task and everything that
// transitively depends on it back to idle, clearing stored failure
// diagnostics. A failed task may have emitted stale or partial state, so
// whatever consumed it must be recomputed.
func (t *Task) ResetWithUpstreamInvalidation() {
	queued := map[*Task]struct{}{t: {}}
	pending := []*Task{t}

	for len(pending) > 0 {
		cur := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		cur.pendingDeferral = nil
		delete(cur.Vars, FailureVar)
		cur.setState(StateIdle)

		for _, dependent := range cur.Dependents() {
			if _, ok := queued[dependent]; !ok {
				queued[dependent] = struct{}{}
				pending = append(pending, dependent)
			}
		}
	}
}

// Result returns the task's value. If the task is finished, the cached
// result is returned; otherwise a full run rooted at this task is
// triggered. Every call returns an independent copy, so downstream
// mutation can never corrupt the cache.
func (t *Task) Result(ctx context.Context) (any, error) {
	if t.state == StateFinished && t.hasResult {
		return deepcopy.Copy(t.result), nil
	}
	t.setState(StateIdle)
	return t.Run(ctx)
}

// Invoke performs the task's unit of work once: it resolves every
// Task-valued argument to that task's result (running the dependency if it
// has no cached value yet), calls the work function, and caches the return
// value. The outcome distinguishes completion, a deferral request, and
// failure; state transitions are owned by the caller.
func (t *Task) Invoke(ctx context.Context) Outcome {
	inv := Invocation{}
	if t.bindSelf {
		inv.Self = t
	}

	if len(t.args) > 0 {
		inv.Args = make([]any, len(t.args))
		for i, arg := range t.args {
			v, err := resolveArg(ctx, arg)
			if err != nil {
				return failed(err)
			}
			inv.Args[i] = v
		}
	}
	if len(t.kwargs) > 0 {
		inv.Kwargs = make(map[string]any, len(t.kwargs))
		for k, arg := range t.kwargs {
			v, err := resolveArg(ctx, arg)
			if err != nil {
				return failed(err)
			}
			inv.Kwargs[k] = v
		}
	}

	value, err := t.work(ctx, inv)
	if err != nil {
		return failed(err)
	}
	if d, ok := value.(*Deferral); ok {
		return deferred(d)
	}

	t.setResult(value)
	return completed(value)
}

// resolveArg replaces a *Task argument with an independent copy of its
// result; any other value passes through untouched.
func resolveArg(ctx context.Context, arg any) (any, error) {
	dep, ok := arg.(*Task)
	if !ok {
		return arg, nil
	}
	return dep.Result(ctx)
}
