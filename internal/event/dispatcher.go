// Package event defines the lifecycle events published by the execution
// engine and the bus that delivers them to reporters.
//
// ORDERING:
//
// The engine relies on one guarantee from the bus: Send delivers the event to
// every subscriber before it returns. Because a Case publishes from a single
// goroutine, each subscriber observes one Case's events in program order:
//
//	scenario_started, (step_started, step_finished)*, scenario_finished
//
// Cases running concurrently share the bus; their events may interleave with
// each other but never reorder within a Case.
//
// The Dispatcher serializes all deliveries under one lock, so every subscriber
// sees the same global order and Envelope.Seq increases with it.
package event

import (
	"sync"
	"time"
)

// Bus is the publishing side consumed by the engine.
type Bus interface {
	// Send delivers ev synchronously to all current subscribers.
	Send(ev Event)
}

// Handler receives delivered envelopes.
//
// Handlers run on the publisher's goroutine while the dispatcher lock is
// held. They must not call Send or Subscribe on the same dispatcher.
// Slow consumers should hand off through a Queue.
type Handler func(Envelope)

// Sequencer hands out envelope sequence numbers.
// Implemented by Clock (production) and testutil.DeterministicClock (tests).
type Sequencer interface {
	Next() int64
}

type subscription struct {
	id      int
	handler Handler
}

// Dispatcher is a thread-safe synchronous fan-out Bus.
//
// Thread-safety model:
//   - Send(): safe from any goroutine; deliveries are serialized
//   - Subscribe()/unsubscribe: safe from any goroutine, takes effect for the next Send
type Dispatcher struct {
	mu     sync.Mutex
	subs   []subscription
	nextID int
	seq    Sequencer
	now    func() time.Time
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithSequencer replaces the default logical clock.
func WithSequencer(s Sequencer) DispatcherOption {
	return func(d *Dispatcher) {
		d.seq = s
	}
}

// WithNow replaces the wall clock used for Envelope.At.
func WithNow(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// NewDispatcher creates a dispatcher with no subscribers.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		seq: NewClock(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Subscribe registers h and returns a function that removes it.
// Subscribers are called in registration order.
func (d *Dispatcher) Subscribe(h Handler) (unsubscribe func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	d.subs = append(d.subs, subscription{id: id, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			for i, s := range d.subs {
				if s.id == id {
					// Copy so an in-flight range over the old slice is unaffected
					subs := make([]subscription, 0, len(d.subs)-1)
					subs = append(subs, d.subs[:i]...)
					d.subs = append(subs, d.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Send stamps ev and delivers it to every subscriber before returning.
func (d *Dispatcher) Send(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	env := Envelope{
		Seq:   d.seq.Next(),
		At:    d.now(),
		Event: ev,
	}
	for _, s := range d.subs {
		s.handler(env)
	}
}

// Len returns the number of subscribers.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}
