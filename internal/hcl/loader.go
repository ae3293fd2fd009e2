// Package hcl loads grid definitions written in HCL and translates them
// into the format-agnostic config model.
package hcl

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/taskgridgo/internal/config"
	"github.com/vk/taskgridgo/internal/ctxlog"
	"github.com/vk/taskgridgo/internal/fsutil"
	"github.com/vk/taskgridgo/internal/schema"
)

// Loader implements config.Loader for HCL grid files.
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader creates an HCL grid loader.
func NewLoader() *Loader {
	return &Loader{parser: hclparse.NewParser()}
}

// Load reads every .hcl file under the given paths (files or directories)
// and merges their task blocks into a single model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("grid path %q: %w", path, err)
		}
		if info.IsDir() {
			found, err := fsutil.FindFilesByExtension(path, ".hcl")
			if err != nil {
				return nil, fmt.Errorf("scanning %q: %w", path, err)
			}
			files = append(files, found...)
		} else {
			files = append(files, path)
		}
	}
	logger.Debug("Grid files discovered.", "count", len(files))

	model := &config.Model{Grid: &config.Grid{}}
	for _, file := range files {
		grid, err := l.loadFile(file)
		if err != nil {
			return nil, err
		}
		for _, t := range grid.Tasks {
			model.Grid.Tasks = append(model.Grid.Tasks, translateTask(t))
		}
	}
	logger.Debug("Grid model assembled.", "tasks", len(model.Grid.Tasks))
	return model, nil
}

// loadFile parses and decodes one grid file.
func (l *Loader) loadFile(path string) (*schema.GridConfig, error) {
	hclFile, diags := l.parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %q: %w", path, diags)
	}

	var grid schema.GridConfig
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &grid); diags.HasErrors() {
		return nil, fmt.Errorf("decoding %q: %w", path, diags)
	}
	return &grid, nil
}

// translateTask converts the HCL-specific task schema into the model.
func translateTask(t *schema.Task) *config.TaskDef {
	def := &config.TaskDef{
		RunnerType: t.RunnerType,
		Name:       t.Name,
		Transient:  t.Transient,
		DependsOn:  t.DependsOn,
	}
	if t.Arguments != nil {
		def.Arguments = t.Arguments.Body
	}
	return def
}

var _ config.Loader = (*Loader)(nil)
