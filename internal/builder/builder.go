// Package builder turns a loaded grid model into a wired task graph.
package builder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/vk/taskgridgo/internal/config"
	"github.com/vk/taskgridgo/internal/ctxlog"
	"github.com/vk/taskgridgo/internal/registry"
	"github.com/vk/taskgridgo/task"
)

// Build constructs the task graph described by the model. Every task block
// becomes a task named "runner_type.instance_name"; depends_on references
// become dependency edges. When the grid has several sink tasks they are
// composed under a synthetic group root so one run drives everything.
func Build(ctx context.Context, model *config.Model, reg *registry.Registry) (*task.Task, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: starting graph construction.")

	tasks := make(map[string]*task.Task)
	order := make([]string, 0, len(model.Grid.Tasks))

	for _, def := range model.Grid.Tasks {
		id := fmt.Sprintf("%s.%s", def.RunnerType, def.Name)
		if _, exists := tasks[id]; exists {
			return nil, fmt.Errorf("duplicate task definition %q", id)
		}

		runner, err := reg.Lookup(def.RunnerType)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", id, err)
		}

		opts := []task.Option{task.BindSelf()}
		if def.Transient {
			opts = append(opts, task.Transient())
		}
		t, err := task.New(id, workFor(def, runner), opts...)
		if err != nil {
			return nil, err
		}
		tasks[id] = t
		order = append(order, id)
	}
	logger.Debug("Build: task creation complete.", "count", len(tasks))

	for _, def := range model.Grid.Tasks {
		id := fmt.Sprintf("%s.%s", def.RunnerType, def.Name)
		for _, ref := range def.DependsOn {
			dep, ok := tasks[ref]
			if !ok {
				return nil, fmt.Errorf("task %q depends on unknown task %q", id, ref)
			}
			if err := tasks[id].AddDependency(dep); err != nil {
				return nil, err
			}
		}
	}
	logger.Debug("Build: dependency linking complete.")

	return pickRoot(ctx, tasks, order)
}

// pickRoot selects the run root: the single sink task, or a synthetic
// group when the grid has several independent sinks.
func pickRoot(ctx context.Context, tasks map[string]*task.Task, order []string) (*task.Task, error) {
	logger := ctxlog.FromContext(ctx)

	var sinks []*task.Task
	for _, id := range order {
		if len(tasks[id].Dependents()) == 0 {
			sinks = append(sinks, tasks[id])
		}
	}

	switch len(sinks) {
	case 0:
		return nil, fmt.Errorf("grid has no tasks")
	case 1:
		return sinks[0], nil
	default:
		logger.Debug("Build: multiple sink tasks, grouping under synthetic root.", "sinks", len(sinks))
		group, err := task.NewGroup("grid", sinks...)
		if err != nil {
			return nil, err
		}
		return group.Task, nil
	}
}

// workFor builds the work function for one task definition: it decodes the
// arguments block against the outputs of finished dependencies and hands
// the call to the registered handler.
func workFor(def *config.TaskDef, runner *registry.Runner) task.WorkFunc {
	return func(ctx context.Context, inv task.Invocation) (any, error) {
		call := &registry.Call{Task: inv.Self}

		if runner.NewInput != nil {
			input := runner.NewInput()
			if def.Arguments != nil {
				evalCtx, err := evalContext(ctx, inv.Self)
				if err != nil {
					return nil, err
				}
				if diags := gohcl.DecodeBody(def.Arguments, evalCtx, input); diags.HasErrors() {
					return nil, fmt.Errorf("decoding arguments for %q: %w", inv.Self.Name(), diags)
				}
			}
			call.Input = input
		}

		return runner.Fn(ctx, call)
	}
}

// evalContext exposes the outputs of t's finished direct dependencies as
// task.<runner_type>.<instance_name>.output variables.
func evalContext(ctx context.Context, t *task.Task) (*hcl.EvalContext, error) {
	byRunner := make(map[string]map[string]cty.Value)

	for _, dep := range t.Dependencies() {
		if dep.State() != task.StateFinished {
			continue
		}
		result, err := dep.Result(ctx)
		if err != nil {
			return nil, err
		}
		output, err := goToCty(result)
		if err != nil {
			return nil, fmt.Errorf("output of %q: %w", dep.Name(), err)
		}

		runnerType, name, ok := splitID(dep.Name())
		if !ok {
			continue
		}
		if byRunner[runnerType] == nil {
			byRunner[runnerType] = make(map[string]cty.Value)
		}
		byRunner[runnerType][name] = cty.ObjectVal(map[string]cty.Value{
			"output": output,
		})
	}

	vars := make(map[string]cty.Value, len(byRunner))
	for runnerType, instances := range byRunner {
		vars[runnerType] = cty.ObjectVal(instances)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"task": cty.ObjectVal(vars),
		},
	}, nil
}

// splitID splits a "runner_type.instance_name" task id.
func splitID(id string) (runnerType, name string, ok bool) {
	for i := 0; i < len(id); i++ {
		if id[i] == '.' {
			return id[:i], id[i+1:], true
		}
	}
	return "", "", false
}

// goToCty converts an arbitrary handler output into a cty.Value by round-
// tripping through JSON, which matches what checkpoints can represent.
func goToCty(v any) (cty.Value, error) {
	if v == nil {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return cty.NilVal, err
	}
	impliedType, err := ctyjson.ImpliedType(data)
	if err != nil {
		return cty.NilVal, err
	}
	return ctyjson.Unmarshal(data, impliedType)
}
