// Package print provides a runner that prints its input values, mainly
// useful for inspecting the outputs of upstream tasks.
package print

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/taskgridgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the print runner.
type Input struct {
	Value map[string]string `hcl:"value,optional"`
}

// OnRunPrint is the handler for the 'print' runner.
func OnRunPrint(ctx context.Context, call *registry.Call) (any, error) {
	input := call.Input.(*Input)

	if input.Value == nil {
		fmt.Println("      (null)")
		return nil, nil
	}

	// Sort keys for consistent output
	keys := make([]string, 0, len(input.Value))
	for k := range input.Value {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Printf("      %s = %q\n", k, input.Value[k])
	}

	return nil, nil
}

// Register registers the runner with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register("print", &registry.Runner{
		NewInput: func() any { return new(Input) },
		Fn:       OnRunPrint,
	})
}
