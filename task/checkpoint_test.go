package task

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readCheckpointRecords parses a checkpoint file for assertions.
func readCheckpointRecords(path string) ([]checkpointRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var recs []checkpointRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// chain builds c <- b <- a and returns (a, b, c) with a as the root.
func chain(t *testing.T) (*Task, *Task, *Task) {
	t.Helper()
	c := MustNew("c", constant("cv"))
	b := MustNew("b", constant("bv"), Args(c))
	a := MustNew("a", constant("av"), Args(b))
	return a, b, c
}

func TestSave(t *testing.T) {
	t.Run("writes one name-ordered record per reachable task", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cp.json")
		a, _, _ := chain(t)
		_, err := a.Run(context.Background())
		require.NoError(t, err)

		require.NoError(t, a.Save(path))

		recs, err := readCheckpointRecords(path)
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, "a", recs[0].Name)
		assert.Equal(t, "b", recs[1].Name)
		assert.Equal(t, "c", recs[2].Name)
		for _, rec := range recs {
			assert.Equal(t, "finished", rec.State)
			require.NotNil(t, rec.Result)
		}
	})

	t.Run("transient results are excluded", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cp.json")
		op := MustNew("op", constant("secret"), Transient())
		root := MustNew("root", constant("rv"), Args(op))
		_, err := root.Run(context.Background())
		require.NoError(t, err)

		require.NoError(t, root.Save(path))

		recs, err := readCheckpointRecords(path)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "root", recs[0].Name)
		assert.NotNil(t, recs[0].Result)
		assert.Equal(t, "op", recs[1].Name)
		assert.Nil(t, recs[1].Result, "transient task result must not be persisted")
		// The state itself is still recorded.
		assert.Equal(t, "finished", recs[1].State)
	})

	t.Run("unfinished tasks carry no result", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cp.json")
		a, _, _ := chain(t)

		require.NoError(t, a.Save(path))

		recs, err := readCheckpointRecords(path)
		require.NoError(t, err)
		for _, rec := range recs {
			assert.Equal(t, "idle", rec.State)
			assert.Nil(t, rec.Result)
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("missing file is a no-op", func(t *testing.T) {
		a, _, _ := chain(t)
		require.NoError(t, a.Load(filepath.Join(t.TempDir(), "absent.json")))
		assert.Equal(t, StateIdle, a.State())
	})

	t.Run("round trip restores state, vars and results", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cp.json")
		a1, b1, _ := chain(t)
		_, err := a1.Run(context.Background())
		require.NoError(t, err)
		b1.Vars["note"] = "kept"
		require.NoError(t, a1.Save(path))

		// Fresh graph of the same shape.
		a2, b2, c2 := chain(t)
		require.NoError(t, a2.Load(path))

		assert.Equal(t, StateFinished, a2.State())
		assert.Equal(t, StateFinished, b2.State())
		assert.Equal(t, StateFinished, c2.State())
		assert.Equal(t, "kept", b2.Vars["note"])

		v, err := a2.Result(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "av", v)
		v, err = c2.Result(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "cv", v)
	})

	t.Run("length mismatch", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cp.json")
		a, _, _ := chain(t)
		require.NoError(t, a.Save(path))

		other := MustNew("a", constant(1))
		err := other.Load(path)
		assert.ErrorIs(t, err, ErrStructureMismatch)
		// Nothing was restored.
		assert.Equal(t, StateIdle, other.State())
	})

	t.Run("name mismatch", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cp.json")
		a, _, _ := chain(t)
		require.NoError(t, a.Save(path))

		z := MustNew("zz", constant(1))
		y := MustNew("b", constant(2), Args(z))
		x := MustNew("a", constant(3), Args(y))
		err := x.Load(path)
		assert.ErrorIs(t, err, ErrStructureMismatch)
	})

	t.Run("unknown state is rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cp.json")
		data := `[{"name":"a","state":"sideways","variables":{}}]`
		require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

		a := MustNew("a", constant(1))
		assert.Error(t, a.Load(path))
	})
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cp.json")

	calls := map[string]int{}
	work := func(name string, v any) WorkFunc {
		return func(ctx context.Context, inv Invocation) (any, error) {
			calls[name]++
			return v, nil
		}
	}

	c1 := MustNew("c", work("c", "cv"))
	b1 := MustNew("b", work("b", "bv"), Args(c1))
	a1 := MustNew("a", work("a", "av"), Args(b1))
	_, err := a1.Run(context.Background(), WithCheckpoint(path))
	require.NoError(t, err)

	// A rebuilt graph resumes from the checkpoint: nothing re-executes.
	c2 := MustNew("c", work("c", "cv"))
	b2 := MustNew("b", work("b", "bv"), Args(c2))
	a2 := MustNew("a", work("a", "av"), Args(b2))
	v, err := a2.Run(context.Background(), WithCheckpoint(path))
	require.NoError(t, err)

	assert.Equal(t, "av", v)
	assert.Equal(t, 1, calls["a"])
	assert.Equal(t, 1, calls["b"])
	assert.Equal(t, 1, calls["c"])
}

func TestRunWithoutLoadIgnoresCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cp.json")

	calls := 0
	mk := func() *Task {
		return MustNew("solo", func(ctx context.Context, inv Invocation) (any, error) {
			calls++
			return calls, nil
		})
	}

	_, err := mk().Run(context.Background(), WithCheckpoint(path))
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	v, err := mk().Run(context.Background(), WithCheckpoint(path), WithoutLoad())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, calls)
}
