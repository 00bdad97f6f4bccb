package event

import "sync/atomic"

// Clock is the monotonic logical clock used to stamp envelopes.
//
// Every delivered event gets a strictly increasing seq from Next().
// Seq, not wall time, is the ordering key for stored and golden traces.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// The Dispatcher only calls Next() while holding its delivery lock.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
