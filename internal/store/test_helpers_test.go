package store

import (
	"context"
	"testing"
	"time"

	"github.com/roach88/steprun/internal/event"
	"github.com/roach88/steprun/internal/outcome"
	"github.com/roach88/steprun/internal/testutil"
)

// createTestStore creates a new in-memory store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun writes a run record with fixed fields.
func createTestRun(t *testing.T, s *Store, id string) {
	t.Helper()
	err := s.WriteRun(context.Background(), Run{
		ID:        id,
		StartedAt: testutil.Epoch,
		Dialect:   "en",
		Workers:   2,
	})
	if err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
}

// scenarioEnvelopes builds the envelopes of a scenario with the given step outcomes.
// Seq numbering starts at first.
func scenarioEnvelopes(id string, first int64, steps ...outcome.Outcome) []event.Envelope {
	seq := first
	next := func(ev event.Event) event.Envelope {
		env := event.Envelope{Seq: seq, At: testutil.Epoch.Add(time.Duration(seq) * time.Millisecond), Event: ev}
		seq++
		return env
	}

	var agg outcome.Aggregate
	envs := []event.Envelope{next(event.ScenarioStarted{ScenarioID: id, Name: "scenario " + id})}
	for i, o := range steps {
		stepID := id + "/" + string(rune('1'+i))
		envs = append(envs,
			next(event.StepStarted{ScenarioID: id, StepID: stepID, Text: "Given step"}),
			next(event.StepFinished{ScenarioID: id, StepID: stepID, Text: "Given step", Outcome: o}),
		)
		agg.Add(o)
	}
	envs = append(envs, next(event.ScenarioFinished{ScenarioID: id, Name: "scenario " + id, Outcome: agg.Outcome()}))
	return envs
}
