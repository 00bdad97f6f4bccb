package store

import (
	"context"
	"log/slog"

	"github.com/roach88/steprun/internal/event"
)

// Recorder writes a run's envelopes to the store from a single goroutine.
//
// Subscribe Handler() to the dispatcher, start Run in a goroutine, and call
// Close once every case has finished. Run returns after the queue is drained.
//
// Thread-safety model:
//   - Handler(): safe from any goroutine (it only enqueues)
//   - Run(): exactly one goroutine
type Recorder struct {
	store  *Store
	runID  string
	queue  *event.Queue
	logger *slog.Logger
}

// NewRecorder creates a recorder for runID. A nil logger uses slog.Default().
func NewRecorder(s *Store, runID string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:  s,
		runID:  runID,
		queue:  event.NewQueue(),
		logger: logger,
	}
}

// Handler returns the dispatcher subscription.
func (r *Recorder) Handler() event.Handler {
	return r.queue.Handler()
}

// Close stops accepting envelopes. Queued envelopes are still written.
func (r *Recorder) Close() {
	r.queue.Close()
}

// Run writes envelopes until Close is called and the queue is drained, or
// ctx is cancelled.
//
// A failed write is logged and skipped so one bad envelope does not lose the
// rest of the run; the first such error is returned at the end.
func (r *Recorder) Run(ctx context.Context) error {
	var firstErr error
	for {
		for {
			env, ok := r.queue.TryDequeue()
			if !ok {
				break
			}
			if err := r.store.WriteEvent(ctx, r.runID, env); err != nil {
				r.logger.Error("failed to record event",
					"run", r.runID,
					"seq", env.Seq,
					"error", err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}

		// Closed is checked before Len: a stale coalesced signal must not end
		// the loop while envelopes are still queued.
		if r.queue.Closed() && r.queue.Len() == 0 {
			return firstErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.queue.Wait():
		}
	}
}
