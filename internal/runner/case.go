package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/steprun/internal/dialect"
	"github.com/roach88/steprun/internal/event"
	"github.com/roach88/steprun/internal/outcome"
)

// Case is one executable scenario instance: identity plus ordered steps.
//
// The step sequence is fixed at construction. Run may be called once.
type Case struct {
	id     string
	name   string
	tags   []string
	source string
	steps  []*Step
	dryRun bool
	logger *slog.Logger

	ran      atomic.Bool
	scenario atomic.Pointer[Scenario]
}

// CaseOption configures a Case.
type CaseOption func(*Case)

// WithDryRun makes every step run in dry-run mode.
func WithDryRun() CaseOption {
	return func(c *Case) {
		c.dryRun = true
	}
}

// WithTags sets the tags exposed through the Scenario context.
func WithTags(tags ...string) CaseOption {
	return func(c *Case) {
		c.tags = append([]string(nil), tags...)
	}
}

// WithSource records where the scenario was loaded from (a file path).
func WithSource(source string) CaseOption {
	return func(c *Case) {
		c.source = source
	}
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(logger *slog.Logger) CaseOption {
	return func(c *Case) {
		c.logger = logger
	}
}

// NewCase creates a case over steps.
// Panics with *InvariantError if any step is nil.
func NewCase(id, name string, steps []*Step, opts ...CaseOption) *Case {
	for i, s := range steps {
		if s == nil {
			panic(&InvariantError{
				Code:    ErrCodeNilStep,
				Message: fmt.Sprintf("step %d is nil", i+1),
				CaseID:  id,
			})
		}
	}

	c := &Case{
		id:     id,
		name:   name,
		steps:  append([]*Step(nil), steps...),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the case identifier.
func (c *Case) ID() string { return c.id }

// Name returns the scenario name.
func (c *Case) Name() string { return c.name }

// Source returns where the scenario came from, if recorded.
func (c *Case) Source() string { return c.source }

// Steps returns a copy of the step sequence.
func (c *Case) Steps() []*Step {
	return append([]*Step(nil), c.steps...)
}

// Scenario returns the context of the run, or nil before Run is called.
func (c *Case) Scenario() *Scenario {
	return c.scenario.Load()
}

// Run executes the steps in order and returns the aggregated outcome.
//
// Events, in order: ScenarioStarted, each step's StepStarted/StepFinished
// pair, ScenarioFinished carrying the returned outcome.
//
// After the first step whose outcome is not passed, every remaining step runs
// in dry-run mode. Run never stops early: each step produces one outcome.
//
// CRITICAL: Run panics with *InvariantError when called a second time.
func (c *Case) Run(ctx context.Context, bus event.Bus, d *dialect.Dialect) outcome.Outcome {
	if !c.ran.CompareAndSwap(false, true) {
		panic(&InvariantError{
			Code:    ErrCodeCaseRerun,
			Message: "case already ran",
			CaseID:  c.id,
		})
	}

	sc := NewScenario(c.id, c.name, c.tags)
	c.scenario.Store(sc)

	bus.Send(event.ScenarioStarted{ScenarioID: c.id, Name: c.name})

	skipRemaining := c.dryRun
	var agg outcome.Aggregate
	for _, step := range c.steps {
		result := step.Run(ctx, bus, d, sc, skipRemaining)
		sc.add(result)
		agg.Add(result)

		if !result.IsPassed() && !skipRemaining {
			skipRemaining = true
			c.logger.Debug("skipping remaining steps",
				"case", c.id,
				"step", step.ID(),
				"status", result.Status())
		}
	}

	final := agg.Outcome()
	bus.Send(event.ScenarioFinished{ScenarioID: c.id, Name: c.name, Outcome: final})
	return final
}
