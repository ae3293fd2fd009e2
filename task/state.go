package task

import "fmt"

// State is the lifecycle state of a Task. It serializes as a lowercase
// string in checkpoints.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDelayed  State = "delayed"
	StateError    State = "error"
	StateFinished State = "finished"
)

// Valid reports whether s is one of the known lifecycle states.
func (s State) Valid() bool {
	switch s {
	case StateIdle, StateRunning, StateDelayed, StateError, StateFinished:
		return true
	}
	return false
}

func (s State) String() string { return string(s) }

// Terminal reports whether the state is final until an explicit reset.
func (s State) Terminal() bool {
	return s == StateFinished || s == StateError
}

// parseState validates a state string coming from a checkpoint document.
func parseState(raw string) (State, error) {
	s := State(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown task state %q", raw)
	}
	return s, nil
}
