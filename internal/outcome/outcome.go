// Package outcome defines the immutable result of running a step or a scenario.
//
// An Outcome carries a Status, an optional error and an optional duration.
// Outcomes are plain values: every "mutator" returns a modified copy.
//
// Aggregation across steps is max-severity:
//
//	passed < skipped < undefined < pending < failed
package outcome

import (
	"encoding/json"
	"time"
)

// Outcome is the classified result of an execution attempt.
type Outcome struct {
	status   Status
	err      error
	duration time.Duration
	timed    bool
}

// New creates an Outcome with no duration recorded.
func New(status Status, err error) Outcome {
	return Outcome{status: status, err: err}
}

// Passed is the outcome of an action that returned without error.
func Passed() Outcome {
	return New(StatusPassed, nil)
}

// Skipped is the outcome of a step that was dry-run successfully.
func Skipped() Outcome {
	return New(StatusSkipped, nil)
}

// WithDuration returns a copy of o carrying the measured duration.
func (o Outcome) WithDuration(d time.Duration) Outcome {
	o.duration = d
	o.timed = true
	return o
}

// Status returns the classification.
func (o Outcome) Status() Status {
	return o.status
}

// Err returns the failure behind a pending, undefined or failed outcome.
func (o Outcome) Err() error {
	return o.err
}

// Duration returns the measured time and whether any was recorded.
func (o Outcome) Duration() (time.Duration, bool) {
	return o.duration, o.timed
}

// IsPassed reports whether the status is StatusPassed.
func (o Outcome) IsPassed() bool {
	return o.status == StatusPassed
}

// IsOK reports whether the outcome does not count as a failure.
// Strict mode treats pending and undefined as failures too.
func (o Outcome) IsOK(strict bool) bool {
	if strict {
		return o.status <= StatusSkipped
	}
	return o.status < StatusFailed
}

// outcomeJSON is the wire form consumed by reporters.
type outcomeJSON struct {
	Status     Status `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationNS *int64 `json:"duration_ns,omitempty"`
}

// MarshalJSON encodes the outcome for reporters.
// Fails for an invalid status (see Status.MarshalText).
func (o Outcome) MarshalJSON() ([]byte, error) {
	w := outcomeJSON{Status: o.status}
	if o.err != nil {
		w.Error = o.err.Error()
	}
	if o.timed {
		ns := o.duration.Nanoseconds()
		w.DurationNS = &ns
	}
	return json.Marshal(w)
}
