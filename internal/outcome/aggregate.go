package outcome

import "time"

// Aggregate folds step outcomes into a scenario outcome.
//
// The zero value is ready to use and aggregates to passed with no duration.
//
// Folding rules:
//   - status is the most severe status seen
//   - error is the error of the first outcome that reached that status
//   - duration is the sum of every timed outcome; absent if none was timed
type Aggregate struct {
	worst Outcome
	seen  bool
	total time.Duration
	timed bool
	count int
}

// Add folds one outcome into the aggregate.
func (a *Aggregate) Add(o Outcome) {
	a.count++
	if d, ok := o.Duration(); ok {
		a.total += d
		a.timed = true
	}
	if !a.seen || o.status.MoreSevereThan(a.worst.status) {
		a.worst = o
		a.seen = true
	}
}

// Len returns how many outcomes were folded.
func (a *Aggregate) Len() int {
	return a.count
}

// Status returns the most severe status so far (passed when empty).
func (a *Aggregate) Status() Status {
	if !a.seen {
		return StatusPassed
	}
	return a.worst.status
}

// Outcome returns the aggregated outcome.
func (a *Aggregate) Outcome() Outcome {
	if !a.seen {
		return Passed()
	}
	o := New(a.worst.status, a.worst.err)
	if a.timed {
		o = o.WithDuration(a.total)
	}
	return o
}

// Worst returns the more severe of the two statuses, preferring a on ties.
func Worst(a, b Status) Status {
	if b.MoreSevereThan(a) {
		return b
	}
	return a
}
