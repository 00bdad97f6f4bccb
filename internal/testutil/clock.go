// Package testutil holds deterministic stand-ins for the runner's clocks,
// identifiers and event bus.
package testutil

import (
	"sync"
	"time"
)

// Epoch is the fixed wall-clock time reported by FixedNow.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// FixedNow always returns Epoch. Pass it to event.WithNow for golden output.
func FixedNow() time.Time {
	return Epoch
}

// DeterministicClock provides a thread-safe monotonic logical clock for tests.
//
// Unlike event.Clock, DeterministicClock can be reset for test reuse.
// This enables the same scenario to run multiple times with identical seq values.
// It satisfies event.Sequencer.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a new deterministic clock starting at 0.
//
// The first call to Next() returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next increments and returns the next sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset resets the clock to 0.
//
// After Reset(), the next call to Next() returns 1.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}

// StubStopWatch reports the same duration for every measurement, however
// long the operation took. It satisfies runner.StopWatch.
//
// Thread-safety: StubStopWatch is immutable and safe for concurrent use.
type StubStopWatch struct {
	Duration time.Duration
}

// NewStubStopWatch creates a stop watch that always reports d.
func NewStubStopWatch(d time.Duration) StubStopWatch {
	return StubStopWatch{Duration: d}
}

// Measure runs fn and returns the fixed duration with fn's error.
func (w StubStopWatch) Measure(fn func() error) (time.Duration, error) {
	return w.Duration, fn()
}
