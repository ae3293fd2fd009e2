package task

import (
	"errors"
	"fmt"
)

// ErrStructureMismatch is returned by Load when a checkpoint document does
// not correspond to the shape of the live graph.
var ErrStructureMismatch = errors.New("checkpoint does not match graph structure")

// ErrUnfinished is returned by Run when the loop drains with the root not
// finished and nothing left to execute.
var ErrUnfinished = errors.New("run finished with unfinished root")

// FailureError wraps the error produced by a task's work function. The run
// loop aborts with it on the first unrecoverable failure.
type FailureError struct {
	Task string
	Err  error
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("task %q failed: %v", e.Task, e.Err)
}

func (e *FailureError) Unwrap() error { return e.Err }
