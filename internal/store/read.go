package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/steprun/internal/event"
	"github.com/roach88/steprun/internal/outcome"
)

// Record is one stored event.
type Record struct {
	Seq        int64
	Kind       event.Kind
	ScenarioID string
	StepID     string
	Label      string
	// Status is 0 for started events.
	Status   outcome.Status
	Error    string
	Duration time.Duration
	Timed    bool
	At       time.Time
}

// ReadRun returns a run record. Returns sql.ErrNoRows (wrapped) if absent.
func (s *Store) ReadRun(ctx context.Context, runID string) (Run, error) {
	var run Run
	var startedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, dialect, dry_run, workers
		FROM runs WHERE id = ?
	`, runID).Scan(&run.ID, &startedAt, &run.Dialect, &run.DryRun, &run.Workers)
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", runID, err)
	}

	run.StartedAt, err = unmarshalTime(startedAt)
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", runID, err)
	}
	return run, nil
}

// Events returns a run's events ordered by seq.
//
// Returns an empty slice (not nil) if the run has no events.
func (s *Store) Events(ctx context.Context, runID string) ([]Record, error) {
	return s.queryRecords(ctx, `
		SELECT seq, kind, scenario_id, step_id, label, status, error, duration_ns, at
		FROM events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
}

// ScenarioEvents returns one scenario's events ordered by seq.
func (s *Store) ScenarioEvents(ctx context.Context, runID, scenarioID string) ([]Record, error) {
	return s.queryRecords(ctx, `
		SELECT seq, kind, scenario_id, step_id, label, status, error, duration_ns, at
		FROM events
		WHERE run_id = ? AND scenario_id = ?
		ORDER BY seq ASC
	`, runID, scenarioID)
}

// StatusCounts counts finished events of kind by status.
// kind must be KindStepFinished or KindScenarioFinished.
// Fails if a stored status code is unknown.
func (s *Store) StatusCounts(ctx context.Context, runID string, kind event.Kind) (map[outcome.Status]int, error) {
	if kind != event.KindStepFinished && kind != event.KindScenarioFinished {
		return nil, fmt.Errorf("status counts: %s events carry no status", kind)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM events
		WHERE run_id = ? AND kind = ?
		GROUP BY status
		ORDER BY status ASC
	`, runID, kind.String())
	if err != nil {
		return nil, fmt.Errorf("query status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[outcome.Status]int)
	for rows.Next() {
		var code sql.NullString
		var n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		status, err := unmarshalStatus(code)
		if err != nil {
			return nil, err
		}
		if status == 0 {
			return nil, fmt.Errorf("status counts: %s event without status", kind)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}

// SlowestSteps returns the n step-finished records with the longest duration,
// slowest first. Ties are broken by seq.
func (s *Store) SlowestSteps(ctx context.Context, runID string, n int) ([]Record, error) {
	return s.queryRecords(ctx, `
		SELECT seq, kind, scenario_id, step_id, label, status, error, duration_ns, at
		FROM events
		WHERE run_id = ? AND kind = ? AND duration_ns IS NOT NULL
		ORDER BY duration_ns DESC, seq ASC
		LIMIT ?
	`, runID, event.KindStepFinished.String(), n)
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		rec      Record
		kind     string
		status   sql.NullString
		errText  sql.NullString
		duration sql.NullInt64
		at       string
	)
	if err := rows.Scan(&rec.Seq, &kind, &rec.ScenarioID, &rec.StepID, &rec.Label, &status, &errText, &duration, &at); err != nil {
		return Record{}, fmt.Errorf("scan event: %w", err)
	}

	var err error
	if rec.Kind, err = event.ParseKind(kind); err != nil {
		return Record{}, fmt.Errorf("event seq %d: %w", rec.Seq, err)
	}
	if rec.Status, err = unmarshalStatus(status); err != nil {
		return Record{}, fmt.Errorf("event seq %d: %w", rec.Seq, err)
	}
	if rec.At, err = unmarshalTime(at); err != nil {
		return Record{}, fmt.Errorf("event seq %d: %w", rec.Seq, err)
	}
	rec.Error = errText.String
	if duration.Valid {
		rec.Duration = time.Duration(duration.Int64)
		rec.Timed = true
	}
	return rec, nil
}
