package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/steprun/internal/event"
)

// Run describes one invocation of the runner.
type Run struct {
	ID        string
	StartedAt time.Time
	Dialect   string
	DryRun    bool
	Workers   int
}

// WriteRun inserts a run record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, dialect, dry_run, workers)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		marshalTime(run.StartedAt),
		run.Dialect,
		run.DryRun,
		run.Workers,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteEvent inserts one envelope into the run's event log.
// Uses ON CONFLICT DO NOTHING for idempotency - rewriting a seq is a no-op.
//
// Note: The run referenced by runID must exist (foreign key constraint).
func (s *Store) WriteEvent(ctx context.Context, runID string, env event.Envelope) error {
	if env.Event == nil {
		return fmt.Errorf("write event: seq %d has no event", env.Seq)
	}

	var cols outcomeColumns
	if o, ok := env.Outcome(); ok {
		var err error
		cols, err = marshalOutcome(o)
		if err != nil {
			return fmt.Errorf("write event seq %d: %w", env.Seq, err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events
		(run_id, seq, kind, scenario_id, step_id, label, status, error, duration_ns, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		runID,
		env.Seq,
		env.Event.Kind().String(),
		env.Event.Scenario(),
		env.StepID(),
		env.Label(),
		cols.status,
		cols.err,
		cols.duration,
		marshalTime(env.At),
	)
	if err != nil {
		return fmt.Errorf("write event seq %d: %w", env.Seq, err)
	}
	return nil
}
