package runner

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/roach88/steprun/internal/dialect"
	"github.com/roach88/steprun/internal/event"
	"github.com/roach88/steprun/internal/outcome"
)

// Step binds one Action to the engine's execution semantics.
//
// A Step holds no mutable state; the same Step value is run once per Case run.
type Step struct {
	id     string
	text   string
	action Action
	watch  StopWatch
}

// NewStep creates a step. A nil watch uses SystemStopWatch.
// Panics with *InvariantError if action is nil.
func NewStep(id, text string, action Action, watch StopWatch) *Step {
	if action == nil {
		panic(&InvariantError{
			Code:    ErrCodeNilAction,
			Message: "step " + id + " has no action",
		})
	}
	if watch == nil {
		watch = SystemStopWatch{}
	}
	return &Step{id: id, text: text, action: action, watch: watch}
}

// ID returns the step identifier.
func (s *Step) ID() string { return s.id }

// Text returns the step text.
func (s *Step) Text() string { return s.text }

// Run executes the step and returns its outcome.
//
// StepStarted is published before anything else and StepFinished, carrying
// the returned outcome, after everything else. With skip set the Action's
// DryRun is invoked instead of Run. The dialect is passed through untouched.
//
// Failures from the Action never escape: they are classified into the outcome.
// Panics with *InvariantError if sc is nil; nothing is published then.
func (s *Step) Run(ctx context.Context, bus event.Bus, d *dialect.Dialect, sc *Scenario, skip bool) outcome.Outcome {
	if sc == nil {
		panic(&InvariantError{
			Code:    ErrCodeNilScenario,
			Message: fmt.Sprintf("step %s run without a scenario", s.id),
		})
	}
	bus.Send(event.StepStarted{ScenarioID: sc.ID(), StepID: s.id, Text: s.text})

	elapsed, err := s.watch.Measure(func() error {
		return s.invoke(ctx, d, sc, skip)
	})
	result := classify(err, skip).WithDuration(elapsed)

	bus.Send(event.StepFinished{ScenarioID: sc.ID(), StepID: s.id, Text: s.text, Outcome: result})
	return result
}

// invoke calls the Action, turning a panic into a *PanicError.
func (s *Step) invoke(ctx context.Context, d *dialect.Dialect, sc *Scenario, skip bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	if skip {
		return s.action.DryRun(ctx, d, sc)
	}
	return s.action.Run(ctx, d, sc)
}

func classify(err error, skip bool) outcome.Outcome {
	switch {
	case err == nil && skip:
		return outcome.Skipped()
	case err == nil:
		return outcome.Passed()
	case IsPending(err):
		return outcome.New(outcome.StatusPending, err)
	case IsUndefined(err):
		return outcome.New(outcome.StatusUndefined, err)
	default:
		return outcome.New(outcome.StatusFailed, err)
	}
}
