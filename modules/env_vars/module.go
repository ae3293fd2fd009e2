// Package env_vars provides a runner that exposes the process environment
// to downstream tasks.
package env_vars

import (
	"context"
	"os"
	"strings"

	"github.com/vk/taskgridgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnRunEnvVars is the handler for the 'env_vars' runner.
func OnRunEnvVars(ctx context.Context, call *registry.Call) (any, error) {
	envMap := make(map[string]string)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 {
			envMap[pair[0]] = pair[1]
		}
	}

	return map[string]any{"all": envMap}, nil
}

// Register registers the runner with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register("env_vars", &registry.Runner{
		NewInput: nil, // No 'arguments' block.
		Fn:       OnRunEnvVars,
	})
}
