package task

// OutcomeKind tags the result of invoking a task's work function.
type OutcomeKind int

const (
	// Completed means the work function returned a value.
	Completed OutcomeKind = iota
	// Deferred means the work function asked to be retried later.
	Deferred
	// Failed means the work function returned an error.
	Failed
)

// Outcome is the tagged result of a single Invoke. Deferral is a control
// value consumed by the run loop, never an error.
type Outcome struct {
	Kind     OutcomeKind
	Value    any       // set when Kind == Completed
	Deferral *Deferral // set when Kind == Deferred
	Err      error     // set when Kind == Failed
}

func completed(v any) Outcome      { return Outcome{Kind: Completed, Value: v} }
func deferred(d *Deferral) Outcome { return Outcome{Kind: Deferred, Deferral: d} }
func failed(err error) Outcome     { return Outcome{Kind: Failed, Err: err} }
