package task

import (
	"context"
	"fmt"
	"time"

	"github.com/mohae/deepcopy"
	"github.com/vk/taskgridgo/internal/ctxlog"
)

// runConfig carries the Run options.
type runConfig struct {
	checkpointPath  string
	loadOnStart     bool
	checkpointEvery int
}

// RunOption configures a single Run call.
type RunOption func(*runConfig)

// WithCheckpoint enables checkpoint persistence at the given path: the run
// loads it on start (unless WithoutLoad), saves it periodically, on failure
// and interruption, and unconditionally at the end of the run.
func WithCheckpoint(path string) RunOption {
	return func(c *runConfig) { c.checkpointPath = path }
}

// WithoutLoad skips loading an existing checkpoint before scheduling.
func WithoutLoad() RunOption {
	return func(c *runConfig) { c.loadOnStart = false }
}

// WithCheckpointEvery sets how many successfully executed tasks elapse
// between periodic checkpoint saves. The default is 10; n <= 0 disables
// periodic saves (end-of-run and failure saves still happen).
func WithCheckpointEvery(n int) RunOption {
	return func(c *runConfig) { c.checkpointEvery = n }
}

// Run drives the graph rooted at t to completion and returns the root's
// result. Tasks execute strictly one at a time in dependency order; a
// deferral parks its task until the wake time, and the first unrecoverable
// failure aborts the whole run.
func (t *Task) Run(ctx context.Context, opts ...RunOption) (any, error) {
	cfg := runConfig{loadOnStart: true, checkpointEvery: 10}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := ctxlog.FromContext(ctx).With("root", t.Name())

	if cfg.checkpointPath != "" && cfg.loadOnStart {
		if err := t.Load(cfg.checkpointPath); err != nil {
			return nil, err
		}
	}

	r := &run{root: t}
	r.prepare()
	logger.Debug("Run prepared.", "tasks", len(r.tasks))

	save := func() {
		if cfg.checkpointPath == "" {
			return
		}
		if err := t.Save(cfg.checkpointPath); err != nil {
			logger.Warn("Checkpoint save failed.", "path", cfg.checkpointPath, "error", err)
		}
	}

	current := t
	executed := 0

	for t.state != StateFinished {
		if err := ctx.Err(); err != nil {
			logger.Warn("Run interrupted, saving checkpoint.")
			save()
			return nil, err
		}

		next := r.findReady(current)
		if next == nil {
			wake := r.soonestDeferred()
			if wake == nil {
				// Nothing ready, nothing waiting. With fail-fast aborts
				// this means the root can no longer finish.
				break
			}
			logger.Info("⏳ All ready work drained, sleeping until soonest wake.",
				"task", wake.Name(), "remaining", wake.pendingDeferral.Remaining())
			if err := sleepUntil(ctx, wake.pendingDeferral.Wake()); err != nil {
				save()
				return nil, err
			}
			r.dropExpiredDeferrals()
			current = t
			continue
		}

		logger.Info("▶️ Starting task", "task", next.Name())
		next.setState(StateRunning)
		outcome := next.Invoke(ctx)

		switch outcome.Kind {
		case Completed:
			logger.Info("✅ Finished task", "task", next.Name())
			executed++
			if cfg.checkpointEvery > 0 && executed%cfg.checkpointEvery == 0 {
				save()
			}
			current = next

		case Deferred:
			next.setState(StateDelayed)
			next.pendingDeferral = outcome.Deferral
			logger.Info("⏸️ Task delayed", "task", next.Name(), "wake", outcome.Deferral.Wake())

		case Failed:
			next.setState(StateError)
			next.Vars[FailureVar] = fmt.Sprintf("%+v", outcome.Err)
			logger.Error("❌ Task failed", "task", next.Name(), "error", outcome.Err)
			save()
			return nil, &FailureError{Task: next.Name(), Err: outcome.Err}
		}
	}

	save()

	if t.state != StateFinished {
		return nil, fmt.Errorf("root %q: %w", t.Name(), ErrUnfinished)
	}
	return deepcopy.Copy(t.result), nil
}

// run holds the per-Run scheduling state.
type run struct {
	root *Task

	// tasks is the root's reachable set in name-ordered breadth-first
	// order, fixed for the duration of the run.
	tasks   []*Task
	members map[*Task]struct{}
}

// prepare snapshots the reachable set and normalizes task states: errored
// tasks cascade an upstream invalidation, and anything not finished (or
// finished without a cached result) is forced back to idle.
func (r *run) prepare() {
	r.root.each(func(t *Task) bool {
		r.tasks = append(r.tasks, t)
		return true
	})
	r.members = make(map[*Task]struct{}, len(r.tasks))
	for _, t := range r.tasks {
		r.members[t] = struct{}{}
	}

	for _, t := range r.tasks {
		if t.state == StateError {
			t.ResetWithUpstreamInvalidation()
		}
	}
	for _, t := range r.tasks {
		if t.state != StateFinished || !t.hasResult {
			t.setState(StateIdle)
		}
		// Deferrals never survive across runs.
		t.pendingDeferral = nil
	}
}

// ready reports whether t can execute now: no unexpired deferral, state
// idle or delayed, and every dependency finished.
func (r *run) ready(t *Task) bool {
	if t.pendingDeferral != nil && !t.pendingDeferral.Expired() {
		return false
	}
	if t.state != StateIdle && t.state != StateDelayed {
		return false
	}
	for _, dep := range t.Dependencies() {
		if dep.state != StateFinished {
			return false
		}
	}
	return true
}

// findReady picks the next task to execute. It prefers locality: the
// dependents of the task that just finished are checked first, since
// finishing a task is exactly what can unblock them. Only when nothing
// near the current task is runnable does the search restart from the root
// over the whole reachable set.
func (r *run) findReady(current *Task) *Task {
	for _, dependent := range current.Dependents() {
		if _, ok := r.members[dependent]; !ok {
			continue
		}
		if r.ready(dependent) {
			return r.claim(dependent)
		}
	}

	for _, t := range r.tasks {
		if r.ready(t) {
			return r.claim(t)
		}
	}
	return nil
}

// claim clears an expired deferral on the selected task so the retry
// proceeds cleanly.
func (r *run) claim(t *Task) *Task {
	t.pendingDeferral = nil
	return t
}

// soonestDeferred returns the delayed task with the smallest remaining
// wait, or nil when nothing is deferred.
func (r *run) soonestDeferred() *Task {
	var soonest *Task
	for _, t := range r.tasks {
		if t.state != StateDelayed || t.pendingDeferral == nil {
			continue
		}
		if soonest == nil || t.pendingDeferral.Wake().Before(soonest.pendingDeferral.Wake()) {
			soonest = t
		}
	}
	return soonest
}

// dropExpiredDeferrals clears every deferral whose wake time has passed,
// making its task retry-eligible again.
func (r *run) dropExpiredDeferrals() {
	for _, t := range r.tasks {
		if t.pendingDeferral != nil && t.pendingDeferral.Expired() {
			t.pendingDeferral = nil
		}
	}
}

// sleepUntil blocks until the given wake time or context cancellation.
func sleepUntil(ctx context.Context, wake time.Time) error {
	d := time.Until(wake)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
