package runner

import (
	"context"

	"github.com/roach88/steprun/internal/dialect"
)

// Action is the executable behavior bound to a step.
//
// The engine treats it as opaque: it never looks at how the Action was
// matched to step text or how arguments were bound. Actions are shared and
// must not keep per-run state; per-run state belongs in the Scenario.
//
// Both methods may return the pending marker, the undefined marker or any
// other error. Panics are recovered by the Step and classified failed.
type Action interface {
	// Run performs the step for real.
	Run(ctx context.Context, d *dialect.Dialect, sc *Scenario) error

	// DryRun resolves and validates the step without real side effects.
	DryRun(ctx context.Context, d *dialect.Dialect, sc *Scenario) error
}

// ActionFunc is the signature of both Action methods.
type ActionFunc func(ctx context.Context, d *dialect.Dialect, sc *Scenario) error

// Funcs adapts two functions to an Action.
// A nil function succeeds without doing anything.
type Funcs struct {
	RunFn    ActionFunc
	DryRunFn ActionFunc
}

// Run calls RunFn.
func (f Funcs) Run(ctx context.Context, d *dialect.Dialect, sc *Scenario) error {
	if f.RunFn == nil {
		return nil
	}
	return f.RunFn(ctx, d, sc)
}

// DryRun calls DryRunFn.
func (f Funcs) DryRun(ctx context.Context, d *dialect.Dialect, sc *Scenario) error {
	if f.DryRunFn == nil {
		return nil
	}
	return f.DryRunFn(ctx, d, sc)
}
