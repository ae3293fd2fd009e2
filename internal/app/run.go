package app

import (
	"context"
	"fmt"

	"github.com/vk/taskgridgo/internal/builder"
	"github.com/vk/taskgridgo/internal/ctxlog"
	"github.com/vk/taskgridgo/task"
)

// Run builds the task graph from the loaded model and drives it to
// completion, honoring the checkpoint settings from the config.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run started.")

	if len(a.model.Grid.Tasks) == 0 {
		a.logger.Warn("No tasks found in grid, nothing to run.")
		return nil
	}

	a.logger.Info("Runner types registered:", "count", len(a.reg.Types()), "types", a.reg.Types())

	root, err := builder.Build(ctx, a.model, a.reg)
	if err != nil {
		return fmt.Errorf("failed to build task graph: %w", err)
	}
	a.logger.Debug("Task graph built.", "root", root.Name())

	opts := []task.RunOption{task.WithCheckpointEvery(a.cfg.CheckpointEvery)}
	if a.cfg.CheckpointPath != "" {
		opts = append(opts, task.WithCheckpoint(a.cfg.CheckpointPath))
	}
	if a.cfg.SkipLoad {
		opts = append(opts, task.WithoutLoad())
	}

	a.logger.Info("🚀 Starting run...", "root", root.Name())
	result, err := root.Run(ctx, opts...)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	a.logger.Info("🏁 Run finished.", "result", result)

	return nil
}
