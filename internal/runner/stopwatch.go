package runner

import "time"

// StopWatch measures how long an operation takes.
//
// Measure must return fn's error unchanged. The duration is returned in
// every case; it only means something paired with the step's outcome.
type StopWatch interface {
	Measure(fn func() error) (time.Duration, error)
}

// SystemStopWatch measures with the monotonic wall clock.
//
// Thread-safety: SystemStopWatch is stateless and safe for concurrent use.
type SystemStopWatch struct{}

// Measure runs fn and returns the elapsed time.
func (SystemStopWatch) Measure(fn func() error) (time.Duration, error) {
	start := time.Now()
	err := fn()
	return time.Since(start), err
}
