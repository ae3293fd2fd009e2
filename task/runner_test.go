package task

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder builds work functions that append their task name to a shared
// execution log.
type recorder struct {
	order []string
}

func (r *recorder) work(name string, v any) WorkFunc {
	return func(ctx context.Context, inv Invocation) (any, error) {
		r.order = append(r.order, name)
		return v, nil
	}
}

func TestRunExecutesInDependencyOrder(t *testing.T) {
	// a depends on b, b depends on c: expect c, b, a, each exactly once.
	rec := &recorder{}
	c := MustNew("c", rec.work("c", 1))
	b := MustNew("b", rec.work("b", 2), Args(c))
	a := MustNew("a", rec.work("a", 3), Args(b))

	v, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.Equal(t, []string{"c", "b", "a"}, rec.order)
	assert.Equal(t, StateFinished, a.State())
	assert.Equal(t, StateFinished, b.State())
	assert.Equal(t, StateFinished, c.State())
}

func TestRunDiamond(t *testing.T) {
	// root depends on {left, right}, both depend on base. base runs once.
	rec := &recorder{}
	base := MustNew("base", rec.work("base", 1))
	left := MustNew("left", rec.work("left", 2), Args(base))
	right := MustNew("right", rec.work("right", 3), Args(base))
	root := MustNew("root", rec.work("root", 4), Args(left, right))

	_, err := root.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rec.order, 4)
	assert.Equal(t, "base", rec.order[0])
	assert.Equal(t, "root", rec.order[3])
	assert.ElementsMatch(t, []string{"left", "right"}, rec.order[1:3])
}

func TestRunResultsFlowToDependents(t *testing.T) {
	x := MustNew("x", func(ctx context.Context, inv Invocation) (any, error) {
		return 20, nil
	})
	y := MustNew("y", func(ctx context.Context, inv Invocation) (any, error) {
		return inv.Args[0].(int) + 22, nil
	}, Args(x))

	v, err := y.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestRunFailFast(t *testing.T) {
	boom := errors.New("boom")
	rec := &recorder{}
	c := MustNew("c", rec.work("c", 1))
	b := MustNew("b", func(ctx context.Context, inv Invocation) (any, error) {
		return nil, boom
	}, Args(c))
	a := MustNew("a", rec.work("a", 3), Args(b))

	_, err := a.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var failure *FailureError
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "b", failure.Task)

	assert.Equal(t, StateError, b.State())
	assert.NotEqual(t, StateFinished, a.State())
	assert.NotContains(t, rec.order, "a")

	// The failed task stays inspectable until reset.
	assert.Contains(t, b.Vars, FailureVar)
	assert.Contains(t, b.Vars[FailureVar].(string), "boom")
}

func TestRunRecoversErroredTasksOnNextRun(t *testing.T) {
	attempts := 0
	c := MustNew("c", func(ctx context.Context, inv Invocation) (any, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("transient outage")
		}
		return "ok", nil
	})
	a := MustNew("a", func(ctx context.Context, inv Invocation) (any, error) {
		return inv.Args[0], nil
	}, Args(c))

	_, err := a.Run(context.Background())
	require.Error(t, err)
	require.Equal(t, StateError, c.State())

	// The pre-pass cascades the error reset; the second run succeeds.
	v, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 2, attempts)
}

func TestRunDeferral(t *testing.T) {
	t.Run("deferred task retries after wake and finishes", func(t *testing.T) {
		attempts := 0
		tk := MustNew("flaky", func(ctx context.Context, inv Invocation) (any, error) {
			attempts++
			if attempts == 1 {
				return Defer(20 * time.Millisecond), nil
			}
			return "done", nil
		})

		start := time.Now()
		v, err := tk.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "done", v)
		assert.Equal(t, 2, attempts)
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("deferral never reaches error state", func(t *testing.T) {
		attempts := 0
		tk := MustNew("napper", func(ctx context.Context, inv Invocation) (any, error) {
			attempts++
			if attempts < 3 {
				return Defer(5 * time.Millisecond), nil
			}
			return attempts, nil
		})

		v, err := tk.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, v)
		assert.Equal(t, StateFinished, tk.State())
	})

	t.Run("sibling work proceeds while a task is delayed", func(t *testing.T) {
		rec := &recorder{}
		attempts := 0
		slow := MustNew("slow", func(ctx context.Context, inv Invocation) (any, error) {
			attempts++
			if attempts == 1 {
				rec.order = append(rec.order, "slow-deferred")
				return Defer(25 * time.Millisecond), nil
			}
			rec.order = append(rec.order, "slow")
			return 1, nil
		})
		quick := MustNew("quick", rec.work("quick", 2))
		root := MustNew("joined", rec.work("joined", 3), Args(slow, quick))

		_, err := root.Run(context.Background())
		require.NoError(t, err)
		// The deferral did not block quick; slow only finished on retry.
		assert.Equal(t, []string{"quick", "slow-deferred", "slow", "joined"}, rec.order)
	})
}

func TestRunContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	path := filepath.Join(t.TempDir(), "checkpoint.json")

	step := MustNew("step", func(ctx context.Context, inv Invocation) (any, error) {
		cancel() // interrupt mid-run
		return 1, nil
	})
	root := MustNew("root", func(ctx context.Context, inv Invocation) (any, error) {
		return 2, nil
	}, Args(step))

	_, err := root.Run(ctx, WithCheckpoint(path))
	require.ErrorIs(t, err, context.Canceled)

	// The interruption checkpoint was written.
	assert.FileExists(t, path)
}

func TestRunCancellationDuringDeferralWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tk := MustNew("sleeper", func(ctx context.Context, inv Invocation) (any, error) {
		return Defer(time.Hour), nil
	})

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := tk.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Hour)
}

func TestRunPeriodicCheckpoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")

	// With checkpointEvery=1 the file must already exist while the second
	// task runs, not just at the end.
	a := MustNew("a", constant("a"))
	b := MustNew("b", func(ctx context.Context, inv Invocation) (any, error) {
		assert.FileExists(t, path)
		return "b", nil
	}, Args(a))

	_, err := b.Run(context.Background(), WithCheckpoint(path), WithCheckpointEvery(1))
	require.NoError(t, err)

	recs, err := readCheckpointRecords(path)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, rec := range recs {
		assert.Equal(t, string(StateFinished), rec.State)
	}
}
