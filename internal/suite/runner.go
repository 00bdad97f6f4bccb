package suite

import (
	"context"
	"errors"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/steprun/internal/event"
	"github.com/roach88/steprun/internal/outcome"
)

// Result is the outcome of one case.
type Result struct {
	Item    *Item
	Outcome outcome.Outcome
	// Lines is the output the case's actions wrote.
	Lines []string
}

// Runner executes cases concurrently against one shared bus.
//
// Thread-safety model:
//   - each case runs on its own pool goroutine, steps sequentially
//   - cases share nothing but the bus
type Runner struct {
	bus     event.Bus
	workers int
	logger  *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithWorkers bounds how many cases run at once. Values < 1 mean GOMAXPROCS.
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) {
		r.workers = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a runner publishing to bus.
func NewRunner(bus event.Bus, opts ...RunnerOption) *Runner {
	r := &Runner{
		bus:    bus,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers < 1 {
		r.workers = runtime.GOMAXPROCS(0)
	}
	return r
}

// Run executes every item and returns results in item order.
//
// Case outcomes are results, not errors: a failing scenario does not fail Run.
// Run returns an error only when ctx is cancelled; items not started by then
// have no result (their Outcome is the zero value and Item is nil).
func (r *Runner) Run(ctx context.Context, items []*Item) ([]Result, error) {
	results := make([]Result, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			r.logger.Debug("case started", "case", item.Case.ID(), "name", item.Doc.Name)
			o := item.Case.Run(gctx, r.bus, item.Dialect)
			r.logger.Debug("case finished", "case", item.Case.ID(), "status", o.Status())

			results[i] = Result{
				Item:    item,
				Outcome: o,
				Lines:   item.Case.Scenario().Lines(),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// BuildAll builds every document. All build errors are reported together.
func BuildAll(docs []*Document, opts BuildOptions) ([]*Item, error) {
	items := make([]*Item, 0, len(docs))
	var errs []error
	for _, doc := range docs {
		item, err := Build(doc, opts)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		items = append(items, item)
	}
	return items, errors.Join(errs...)
}

// Worst returns the most severe status across results. Passed when empty.
func Worst(results []Result) outcome.Status {
	var agg outcome.Aggregate
	for _, res := range results {
		if res.Item != nil {
			agg.Add(res.Outcome)
		}
	}
	return agg.Status()
}
