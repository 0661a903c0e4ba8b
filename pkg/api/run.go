package api

import "time"

// ActionRun describes one DoAction invocation. It is handed to observers
// and recorded in the action journal.
type ActionRun struct {
	// ID is unique per invocation.
	ID       string
	Action   ActionKind
	ISAName  string
	Language Language
	Options  string

	// Inputs is the number of qualifying input objects.
	Inputs int
	// Outputs counts objects of the action's output kind added to the
	// result set so far.
	Outputs int
	// CacheHits counts stage invocations answered from the result cache.
	CacheHits int

	StartedAt  time.Time
	FinishedAt time.Time

	// Err is set when the action failed.
	Err error
}

// Duration is the wall time of a finished run.
func (r *ActionRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
