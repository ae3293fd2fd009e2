// Package registry maps runner-type names from grid files to the Go
// handlers that execute them.
package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/taskgridgo/task"
)

// Module is the interface that built-in runner packages implement to be
// registered with an application instance.
type Module interface {
	Register(r *Registry)
}

// Call carries everything a runner handler needs for one invocation.
type Call struct {
	// Task is the live task executing this call. Handlers may use its
	// Vars for cross-attempt bookkeeping (e.g. a deferral retry marker).
	Task *task.Task
	// Input is the decoded arguments struct produced by NewInput, or nil
	// for runners that take no arguments.
	Input any
}

// HandlerFunc performs a runner's work. Returning a *task.Deferral value
// asks the scheduler to retry the task later.
type HandlerFunc func(ctx context.Context, call *Call) (any, error)

// Runner describes one registered runner type.
type Runner struct {
	// NewInput returns a pointer to a fresh, hcl-taggable arguments
	// struct, or nil when the runner takes no arguments.
	NewInput func() any
	// Fn is the handler invoked when a task of this runner type executes.
	Fn HandlerFunc
}

// Registry holds all registered runners for one application instance.
type Registry struct {
	runners map[string]*Runner
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{runners: make(map[string]*Runner)}
}

// Register adds a runner under the given type name. Registering the same
// name twice is a programming mistake and panics.
func (r *Registry) Register(name string, runner *Runner) {
	if _, exists := r.runners[name]; exists {
		panic(fmt.Sprintf("registry: runner type %q registered twice", name))
	}
	r.runners[name] = runner
}

// Lookup finds a runner by type name.
func (r *Registry) Lookup(name string) (*Runner, error) {
	runner, ok := r.runners[name]
	if !ok {
		return nil, fmt.Errorf("unknown runner type %q", name)
	}
	return runner, nil
}

// Types returns the registered runner type names in sorted order.
func (r *Registry) Types() []string {
	names := make([]string, 0, len(r.runners))
	for name := range r.runners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
