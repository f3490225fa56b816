package executor

import (
	"time"

	"saasywrap/internal/operation"
)

// Outcome records what happened to one operation during a run.
type Outcome struct {
	ID      string
	Title   string
	Status  operation.Status
	Message string
	// Err is the classified failure cause when Status is failed.
	Err error
	// Skipped marks operations removed from the list while the batch ran.
	Skipped bool
}

// Succeeded reports whether the operation completed.
func (o Outcome) Succeeded() bool {
	return !o.Skipped && o.Status == operation.StatusCompleted
}

// Report summarizes a batch.
type Report struct {
	Kind      operation.Kind
	Mode      string
	Target    string
	Processed []Outcome
	// StoppedAt is the id of the operation that ended the batch early, either
	// by failing or by being the target.
	StoppedAt string
	Halted    bool
	Completed int
	Failed    int
	Skipped   int
	Duration  time.Duration
}

func (r *Report) add(o Outcome) {
	r.Processed = append(r.Processed, o)
	switch {
	case o.Skipped:
		r.Skipped++
	case o.Status == operation.StatusCompleted:
		r.Completed++
	case o.Status == operation.StatusFailed:
		r.Failed++
	}
}

// Last returns the most recently processed outcome.
func (r Report) Last() (Outcome, bool) {
	if len(r.Processed) == 0 {
		return Outcome{}, false
	}
	return r.Processed[len(r.Processed)-1], true
}
