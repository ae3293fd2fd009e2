// Package config holds the format-agnostic model of a user's grid
// definition, decoupling the HCL front end from the graph builder.
package config

import (
	"context"

	"github.com/hashicorp/hcl/v2"
)

// Model is the unified representation of everything loaded from disk.
type Model struct {
	Grid *Grid
}

// Grid is the user's task-graph definition.
type Grid struct {
	Tasks []*TaskDef
}

// TaskDef is the format-agnostic representation of a `task` block.
type TaskDef struct {
	// RunnerType names the registered Go handler that performs the work.
	RunnerType string
	// Name is the human-readable instance name from the grid file.
	Name string
	// Arguments is the raw body of the `arguments` block, decoded lazily
	// at execution time so expressions can reference dependency outputs.
	Arguments hcl.Body
	// Transient excludes the task's result from checkpoints.
	Transient bool
	// DependsOn lists explicit prerequisites as "runner_type.name" refs.
	DependsOn []string
}

// Loader is the interface for a format-specific grid loader.
type Loader interface {
	// Load reads grid definitions from the given paths (files or
	// directories) and translates them into the model.
	Load(ctx context.Context, paths ...string) (*Model, error)
}
