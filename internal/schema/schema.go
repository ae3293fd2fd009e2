// Package schema defines the HCL shapes of a user's grid file.
package schema

import "github.com/hashicorp/hcl/v2"

// TaskArgs represents the content of the 'arguments' block within a task.
type TaskArgs struct {
	Body hcl.Body `hcl:",remain"`
}

// Task represents a `task` block from a user's grid file. It is a runnable
// instance of a registered runner.
type Task struct {
	RunnerType string    `hcl:"runner_type,label"`
	Name       string    `hcl:"instance_name,label"`
	Arguments  *TaskArgs `hcl:"arguments,block"`
	Transient  bool      `hcl:"transient,optional"`
	DependsOn  []string  `hcl:"depends_on,optional"`
}

// GridConfig represents the top-level structure of a user's grid file.
type GridConfig struct {
	Tasks []*Task  `hcl:"task,block"`
	Body  hcl.Body `hcl:",remain"`
}
