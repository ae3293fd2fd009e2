package task

import (
	"encoding/json"
	"fmt"
	"os"
)

// checkpointRecord is the serialized form of one task. Result is a pointer
// so its absence (transient task, or no cached value) is distinguishable
// from a cached nil.
type checkpointRecord struct {
	Name      string         `json:"name"`
	State     string         `json:"state"`
	Variables map[string]any `json:"variables"`
	Result    *any           `json:"result,omitempty"`
}

// Save writes the state of every task reachable from t, taking t as the
// root, into a single JSON document at path. Tasks appear exactly once, in
// name-ordered traversal order. The result field is included only for
// tasks that store results and currently hold one.
func (t *Task) Save(path string) error {
	var records []checkpointRecord
	t.each(func(n *Task) bool {
		rec := checkpointRecord{
			Name:      n.Name(),
			State:     string(n.state),
			Variables: n.Vars,
		}
		if n.storesResult && n.hasResult {
			result := n.result
			rec.Result = &result
		}
		records = append(records, rec)
		return true
	})

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint save %q: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("checkpoint save %q: %w", path, err)
	}
	return nil
}

// Load restores task state from a checkpoint previously written by Save
// with the same graph shape. A missing file is a no-op. The document must
// contain exactly one record per reachable task, positionally matching the
// live traversal by name; any mismatch fails with ErrStructureMismatch and
// a run using the checkpoint aborts before scheduling.
func (t *Task) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("checkpoint load %q: %w", path, err)
	}

	var records []checkpointRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("checkpoint load %q: %w", path, err)
	}

	var tasks []*Task
	t.each(func(n *Task) bool {
		tasks = append(tasks, n)
		return true
	})

	if len(tasks) != len(records) {
		return fmt.Errorf("checkpoint load %q: %d records for %d tasks: %w",
			path, len(records), len(tasks), ErrStructureMismatch)
	}

	// Validate the whole document before touching any task.
	for i, rec := range records {
		if rec.Name != tasks[i].Name() {
			return fmt.Errorf("checkpoint load %q: record %d names %q, graph has %q: %w",
				path, i, rec.Name, tasks[i].Name(), ErrStructureMismatch)
		}
		if _, err := parseState(rec.State); err != nil {
			return fmt.Errorf("checkpoint load %q: record %d: %w", path, i, err)
		}
	}

	for i, rec := range records {
		n := tasks[i]
		state, _ := parseState(rec.State)
		n.setState(state)
		n.Vars = rec.Variables
		if n.Vars == nil {
			n.Vars = make(map[string]any)
		}
		if rec.Result != nil {
			n.setResult(*rec.Result)
			n.state = state
		}
	}
	return nil
}
