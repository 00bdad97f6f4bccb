package event

import (
	"fmt"
	"time"

	"github.com/roach88/steprun/internal/outcome"
)

// Kind distinguishes the four lifecycle events.
type Kind int

const (
	// KindScenarioStarted is published before the first step of a scenario.
	KindScenarioStarted Kind = iota + 1
	// KindStepStarted is published before a step's action is invoked.
	KindStepStarted
	// KindStepFinished is published after a step's action returned.
	KindStepFinished
	// KindScenarioFinished is published after the last step of a scenario.
	KindScenarioFinished
)

var kindNames = map[Kind]string{
	KindScenarioStarted:  "scenario_started",
	KindStepStarted:      "step_started",
	KindStepFinished:     "step_finished",
	KindScenarioFinished: "scenario_finished",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind converts a wire name back into a Kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", name)
}

// Event is implemented by the four lifecycle event types.
// The set is closed: no other package may add event shapes.
type Event interface {
	// Kind identifies the event shape.
	Kind() Kind
	// Scenario returns the ID of the scenario the event belongs to.
	Scenario() string

	eventMarker()
}

// ScenarioStarted opens a scenario's event stream.
type ScenarioStarted struct {
	ScenarioID string
	Name       string
}

// ScenarioFinished closes a scenario's event stream.
type ScenarioFinished struct {
	ScenarioID string
	Name       string
	Outcome    outcome.Outcome
}

// StepStarted precedes the invocation of a step's action.
type StepStarted struct {
	ScenarioID string
	StepID     string
	Text       string
}

// StepFinished follows a step's action and carries the outcome Step.Run returned.
type StepFinished struct {
	ScenarioID string
	StepID     string
	Text       string
	Outcome    outcome.Outcome
}

func (ScenarioStarted) Kind() Kind  { return KindScenarioStarted }
func (ScenarioFinished) Kind() Kind { return KindScenarioFinished }
func (StepStarted) Kind() Kind      { return KindStepStarted }
func (StepFinished) Kind() Kind     { return KindStepFinished }

func (e ScenarioStarted) Scenario() string  { return e.ScenarioID }
func (e ScenarioFinished) Scenario() string { return e.ScenarioID }
func (e StepStarted) Scenario() string      { return e.ScenarioID }
func (e StepFinished) Scenario() string     { return e.ScenarioID }

func (ScenarioStarted) eventMarker()  {}
func (ScenarioFinished) eventMarker() {}
func (StepStarted) eventMarker()      {}
func (StepFinished) eventMarker()     {}

// Envelope is an event as delivered to subscribers.
//
// Seq is stamped by the Dispatcher from its logical clock and is strictly
// increasing in delivery order across every scenario sharing the dispatcher.
// At is wall-clock time, informational only. NEVER order by At.
type Envelope struct {
	Seq   int64
	At    time.Time
	Event Event
}

// StepID returns the step ID for step events, "" otherwise.
func (e Envelope) StepID() string {
	switch ev := e.Event.(type) {
	case StepStarted:
		return ev.StepID
	case StepFinished:
		return ev.StepID
	}
	return ""
}

// Outcome returns the outcome carried by finished events.
func (e Envelope) Outcome() (outcome.Outcome, bool) {
	switch ev := e.Event.(type) {
	case StepFinished:
		return ev.Outcome, true
	case ScenarioFinished:
		return ev.Outcome, true
	}
	return outcome.Outcome{}, false
}

// Label returns the human-readable name carried by the event:
// the scenario name for scenario events, the step text for step events.
func (e Envelope) Label() string {
	switch ev := e.Event.(type) {
	case ScenarioStarted:
		return ev.Name
	case ScenarioFinished:
		return ev.Name
	case StepStarted:
		return ev.Text
	case StepFinished:
		return ev.Text
	}
	return ""
}
