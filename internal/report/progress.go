package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/roach88/steprun/internal/event"
	"github.com/roach88/steprun/internal/outcome"
)

// symbols maps each status to its progress glyph.
var symbols = map[outcome.Status]string{
	outcome.StatusPassed:    "✓",
	outcome.StatusSkipped:   "-",
	outcome.StatusUndefined: "?",
	outcome.StatusPending:   "~",
	outcome.StatusFailed:    "✗",
}

// Symbol returns the glyph for s, or an *outcome.UnknownStatusError.
func Symbol(s outcome.Status) (string, error) {
	sym, ok := symbols[s]
	if !ok {
		return "", &outcome.UnknownStatusError{Code: s.String()}
	}
	return sym, nil
}

// Progress prints one block per scenario:
//
//	✗ checkout
//	  ✓ Given the cart has items
//	  ✗ When the user pays
//	      card declined
//	  - Then a receipt is sent
//
// Step lines are buffered per scenario and written when the scenario
// finishes, so concurrent scenarios never interleave.
type Progress struct {
	mu        sync.Mutex
	w         io.Writer
	durations bool
	pending   map[string]*bytes.Buffer
	err       error
}

// ProgressOption configures a Progress reporter.
type ProgressOption func(*Progress)

// WithDurations appends each outcome's duration to its line.
func WithDurations() ProgressOption {
	return func(p *Progress) {
		p.durations = true
	}
}

// NewProgress creates a reporter writing to w.
func NewProgress(w io.Writer, opts ...ProgressOption) *Progress {
	p := &Progress{
		w:       w,
		pending: make(map[string]*bytes.Buffer),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handler returns the dispatcher subscription.
func (p *Progress) Handler() event.Handler {
	return func(env event.Envelope) {
		p.Handle(env)
	}
}

// Handle renders one envelope. Errors are kept; see Err.
func (p *Progress) Handle(env event.Envelope) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.handle(env); err != nil && p.err == nil {
		p.err = err
	}
}

// Err returns the first error hit while rendering.
func (p *Progress) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Progress) handle(env event.Envelope) error {
	switch ev := env.Event.(type) {
	case event.ScenarioStarted:
		p.pending[ev.ScenarioID] = &bytes.Buffer{}

	case event.StepFinished:
		buf := p.buffer(ev.ScenarioID)
		line, err := p.line(ev.Outcome, ev.Text)
		if err != nil {
			return fmt.Errorf("step %s: %w", ev.StepID, err)
		}
		fmt.Fprintf(buf, "  %s\n", line)
		if e := ev.Outcome.Err(); e != nil && ev.Outcome.Status() == outcome.StatusFailed {
			for _, l := range strings.Split(strings.TrimRight(e.Error(), "\n"), "\n") {
				fmt.Fprintf(buf, "      %s\n", l)
			}
		}

	case event.ScenarioFinished:
		buf := p.buffer(ev.ScenarioID)
		delete(p.pending, ev.ScenarioID)

		header, err := p.line(ev.Outcome, ev.Name)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", ev.ScenarioID, err)
		}
		if _, err := fmt.Fprintf(p.w, "%s\n%s", header, buf.String()); err != nil {
			return fmt.Errorf("write progress: %w", err)
		}
	}
	return nil
}

func (p *Progress) buffer(scenarioID string) *bytes.Buffer {
	buf, ok := p.pending[scenarioID]
	if !ok {
		buf = &bytes.Buffer{}
		p.pending[scenarioID] = buf
	}
	return buf
}

func (p *Progress) line(o outcome.Outcome, label string) (string, error) {
	sym, err := Symbol(o.Status())
	if err != nil {
		return "", err
	}
	if p.durations {
		if d, ok := o.Duration(); ok {
			return fmt.Sprintf("%s %s (%s)", sym, label, FormatDuration(d)), nil
		}
	}
	return fmt.Sprintf("%s %s", sym, label), nil
}

// FormatDuration renders d with millisecond precision ("1.234s", "12ms").
// Sub-millisecond durations are printed unrounded ("1.234µs", "850ns").
func FormatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.String()
	}
	return d.Round(time.Millisecond).String()
}
