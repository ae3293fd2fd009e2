// Package delay provides a runner that parks its task for a configurable
// number of seconds using the scheduler's deferral mechanism, so other
// ready tasks keep executing while it waits.
package delay

import (
	"context"
	"time"

	"github.com/vk/taskgridgo/internal/registry"
	"github.com/vk/taskgridgo/task"
)

// pendingVar marks that the deferral has already been requested, so the
// retry attempt completes instead of deferring again.
const pendingVar = "delay.pending"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the delay runner.
type Input struct {
	Seconds float64 `hcl:"seconds"`
}

// OnRunDelay is the handler for the 'delay' runner. The first attempt
// returns a deferral; the attempt after the wake time reports how long the
// task was parked.
func OnRunDelay(ctx context.Context, call *registry.Call) (any, error) {
	input := call.Input.(*Input)

	if _, ok := call.Task.Vars[pendingVar]; !ok {
		call.Task.Vars[pendingVar] = true
		d := time.Duration(input.Seconds * float64(time.Second))
		return task.Defer(d), nil
	}

	delete(call.Task.Vars, pendingVar)
	return map[string]any{"waited_seconds": input.Seconds}, nil
}

// Register registers the runner with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register("delay", &registry.Runner{
		NewInput: func() any { return new(Input) },
		Fn:       OnRunDelay,
	})
}
