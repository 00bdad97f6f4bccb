package event

import "sync"

// Queue is a thread-safe unbounded FIFO of envelopes.
//
// It decouples a Dispatcher (whose handlers run under the delivery lock) from
// a slow consumer such as the SQLite recorder: Push is the Handler, and one
// goroutine drains with TryDequeue/Wait.
//
// The queue is unbounded so publishers never block on a consumer.
// The signal channel (buffered, size 1) enables context-aware waiting.
type Queue struct {
	mu     sync.Mutex
	items  []Envelope
	closed bool
	signal chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		items:  make([]Envelope, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Push appends env to the back of the queue. It has the Handler signature
// so the queue can be subscribed directly.
// Returns false if the queue is closed.
func (q *Queue) Push(env Envelope) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, env)

	// Non-blocking: buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// Handler adapts Push to the dispatcher's Handler type.
func (q *Queue) Handler() Handler {
	return func(env Envelope) {
		q.Push(env)
	}
}

// TryDequeue removes and returns the front envelope without blocking.
// Returns (Envelope{}, false) if the queue is empty.
func (q *Queue) TryDequeue() (Envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Envelope{}, false
	}

	env := q.items[0]
	// Nil out the slot so the backing array does not pin the event
	q.items[0] = Envelope{}

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return env, true
}

// Wait returns a channel that signals when envelopes may be available.
// The channel is closed by Close, which wakes every waiter.
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-q.Wait():
//	    // Try TryDequeue
//	}
func (q *Queue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more envelopes will be pushed.
// Items already queued stay available to TryDequeue.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
