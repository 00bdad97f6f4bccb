package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/roach88/steprun/internal/event"
	"github.com/roach88/steprun/internal/outcome"
)

// jsonEvent is the wire form of one envelope.
type jsonEvent struct {
	Seq        int64            `json:"seq"`
	At         time.Time        `json:"at"`
	Kind       string           `json:"kind"`
	ScenarioID string           `json:"scenario_id"`
	StepID     string           `json:"step_id,omitempty"`
	Label      string           `json:"label,omitempty"`
	Outcome    *outcome.Outcome `json:"outcome,omitempty"`
}

// JSONLines writes one JSON object per envelope, newline-delimited.
type JSONLines struct {
	mu  sync.Mutex
	enc *json.Encoder
	err error
}

// NewJSONLines creates a reporter writing to w.
func NewJSONLines(w io.Writer) *JSONLines {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLines{enc: enc}
}

// Handler returns the dispatcher subscription.
func (j *JSONLines) Handler() event.Handler {
	return func(env event.Envelope) {
		j.Handle(env)
	}
}

// Handle writes one envelope. Errors are kept; see Err.
func (j *JSONLines) Handle(env event.Envelope) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.err != nil {
		return
	}

	line := jsonEvent{
		Seq:        env.Seq,
		At:         env.At.UTC(),
		Kind:       env.Event.Kind().String(),
		ScenarioID: env.Event.Scenario(),
		StepID:     env.StepID(),
		Label:      env.Label(),
	}
	if o, ok := env.Outcome(); ok {
		line.Outcome = &o
	}

	if err := j.enc.Encode(line); err != nil {
		j.err = fmt.Errorf("encode event seq %d: %w", env.Seq, err)
	}
}

// Err returns the first error hit while writing.
func (j *JSONLines) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}
