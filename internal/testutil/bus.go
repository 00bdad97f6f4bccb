package testutil

import (
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/steprun/internal/event"
)

// RecordingBus is an event.Bus that keeps every event it is sent.
//
// Thread-safety: safe for concurrent Send from many cases.
type RecordingBus struct {
	mu     sync.Mutex
	events []event.Event
}

// NewRecordingBus creates an empty bus.
func NewRecordingBus() *RecordingBus {
	return &RecordingBus{}
}

// Send records ev.
func (b *RecordingBus) Send(ev event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

// Events returns a copy of the recorded events in send order.
func (b *RecordingBus) Events() []event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]event.Event(nil), b.events...)
}

// ForScenario returns the recorded events of one scenario in send order.
func (b *RecordingBus) ForScenario(id string) []event.Event {
	var out []event.Event
	for _, ev := range b.Events() {
		if ev.Scenario() == id {
			out = append(out, ev)
		}
	}
	return out
}

// Kinds returns the kinds of the recorded events in send order.
func (b *RecordingBus) Kinds() []event.Kind {
	events := b.Events()
	kinds := make([]event.Kind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind()
	}
	return kinds
}

// Count returns how many events of kind were recorded.
func (b *RecordingBus) Count(kind event.Kind) int {
	n := 0
	for _, ev := range b.Events() {
		if ev.Kind() == kind {
			n++
		}
	}
	return n
}

// Trace renders the recorded events one per line for golden comparison:
//
//	scenario_started case-1
//	step_started case-1/1
//	step_finished case-1/1 passed
func (b *RecordingBus) Trace() string {
	var sb strings.Builder
	for _, ev := range b.Events() {
		switch e := ev.(type) {
		case event.ScenarioStarted:
			fmt.Fprintf(&sb, "%s %s\n", e.Kind(), e.ScenarioID)
		case event.StepStarted:
			fmt.Fprintf(&sb, "%s %s\n", e.Kind(), e.StepID)
		case event.StepFinished:
			fmt.Fprintf(&sb, "%s %s %s\n", e.Kind(), e.StepID, e.Outcome.Status())
		case event.ScenarioFinished:
			fmt.Fprintf(&sb, "%s %s %s\n", e.Kind(), e.ScenarioID, e.Outcome.Status())
		}
	}
	return sb.String()
}
