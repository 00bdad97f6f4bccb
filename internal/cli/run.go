package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/steprun/internal/event"
	"github.com/roach88/steprun/internal/metrics"
	"github.com/roach88/steprun/internal/outcome"
	"github.com/roach88/steprun/internal/report"
	"github.com/roach88/steprun/internal/runner"
	"github.com/roach88/steprun/internal/store"
	"github.com/roach88/steprun/internal/suite"
)

// slowestStepCount is how many steps --verbose lists after a run.
const slowestStepCount = 3

// RunOptions holds flags for the run and validate commands.
type RunOptions struct {
	*RootOptions
	Filter     string
	Dialect    string
	Workers    int
	DryRun     bool
	Strict     bool
	Config     string
	MetricsOut string
	EventsOut  string
	Shell      string
	Durations  bool
	Color      bool

	// validate reports dry-run results as validation results
	validate bool

	// IDs overrides the run and case ID generator (for testing).
	// The first ID is the run's, the rest go to cases. Nil means UUIDv7.
	IDs runner.IDGenerator

	// Watch overrides the step stop watch (for testing).
	Watch runner.StopWatch

	// Sequencer and Now override envelope stamping (for testing).
	Sequencer event.Sequencer
	Now       func() time.Time
}

// RunResult is the JSON payload of run and validate.
//
// DurationNS sums the scenario durations, so with several workers it exceeds
// WallNS, the elapsed time of the whole run.
type RunResult struct {
	RunID      string           `json:"run_id"`
	DryRun     bool             `json:"dry_run"`
	Status     outcome.Status   `json:"status"`
	Scenarios  map[string]int   `json:"scenarios"`
	Steps      map[string]int   `json:"steps"`
	DurationNS int64            `json:"duration_ns"`
	WallNS     int64            `json:"wall_ns"`
	Results    []ScenarioResult `json:"results"`
}

// ScenarioResult is one scenario's entry in RunResult.
type ScenarioResult struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Path    string          `json:"path,omitempty"`
	Dialect string          `json:"dialect"`
	Outcome outcome.Outcome `json:"outcome"`
	Lines   []string        `json:"lines,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

// newRunCommand creates the run command around opts, so tests can set hooks.
func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenarios-dir>",
		Short: "Run every scenario in a directory",
		Long: `Run the scenarios found under a directory.

Scenario files (*.yaml, *.yml) are loaded recursively and run concurrently.
Each scenario's steps run in order; after the first step that does not pass,
the rest are only dry-run and reported as skipped.

Configuration is read from <scenarios-dir>/steprun.toml when present, or from
--config. Flags override the file.

Exit codes:
  0 - every scenario passed (or was pending/undefined without --strict)
  1 - a scenario failed (or was pending/undefined with --strict)
  2 - command error (missing directory, invalid scenario file, bad config)

Example:
  steprun run ./scenarios
  steprun run ./scenarios --filter 'checkout*' --workers 4 --strict
  steprun run ./scenarios --format json --events-out events.jsonl`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args[0], cmd)
		},
	}

	addRunFlags(cmd, opts)
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "validate steps without running them")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "treat undefined and pending steps as failures")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "scenarios to run at once (0 = GOMAXPROCS)")
	cmd.Flags().StringVar(&opts.MetricsOut, "metrics-out", "", "write Prometheus metrics to this textfile")
	cmd.Flags().StringVar(&opts.EventsOut, "events-out", "", "write every event as JSON lines to this file")
	cmd.Flags().BoolVar(&opts.Durations, "durations", false, "show step durations in progress output")

	return cmd
}

// addRunFlags registers the flags shared by run and validate.
func addRunFlags(cmd *cobra.Command, opts *RunOptions) {
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only load scenario files whose name matches this glob")
	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", "dialect for scenarios that do not set one (default en)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "config file (default <scenarios-dir>/steprun.toml)")
	cmd.Flags().StringVar(&opts.Shell, "shell", "", "shell used to run step commands (default "+suite.DefaultShell+")")
	cmd.Flags().BoolVar(&opts.Color, "color", false, "color the summary table by the worst status")
}

func runScenarios(opts *RunOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfgPath, err := findConfig(opts.Config, dir)
	if err == nil && cfgPath != "" {
		var cfg *Config
		cfg, err = LoadConfig(cfgPath)
		if err == nil {
			formatter.VerboseLog("Using config %s", cfgPath)
			cfg.apply(opts, cmd.Flags().Changed)
		}
	}
	if err != nil {
		return outputCommandError(formatter, ErrCodeConfig, err)
	}

	ids := opts.IDs
	if ids == nil {
		ids = runner.UUIDv7Generator{}
	}
	runID := ids.Generate()

	items, err := loadItems(dir, loadOptions{
		Filter:  opts.Filter,
		Dialect: opts.Dialect,
		Shell:   opts.Shell,
		DryRun:  opts.DryRun,
		IDs:     ids,
		Watch:   opts.Watch,
	})
	if err != nil {
		return outputCommandError(formatter, loadErrorCode(err), err)
	}
	formatter.VerboseLog("Loaded %d scenario(s) from %s", len(items), dir)

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return outputCommandError(formatter, ErrCodeWriteFailed, err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing store", "error", closeErr)
		}
	}()

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	run := store.Run{
		ID:        runID,
		StartedAt: now(),
		Dialect:   dialectCode(opts.Dialect),
		DryRun:    opts.DryRun,
		Workers:   opts.Workers,
	}
	if err := st.WriteRun(parentCtx, run); err != nil {
		return outputCommandError(formatter, ErrCodeWriteFailed, err)
	}

	dispatcherOpts := []event.DispatcherOption{event.WithNow(now)}
	if opts.Sequencer != nil {
		dispatcherOpts = append(dispatcherOpts, event.WithSequencer(opts.Sequencer))
	}
	bus := event.NewDispatcher(dispatcherOpts...)

	// Store writes happen on one goroutine behind a queue
	recorder := store.NewRecorder(st, runID, slog.Default())
	bus.Subscribe(recorder.Handler())
	recorderDone := make(chan error, 1)
	go func() {
		recorderDone <- recorder.Run(parentCtx)
	}()

	var progress *report.Progress
	if !formatter.JSON() {
		var progressOpts []report.ProgressOption
		if opts.Durations {
			progressOpts = append(progressOpts, report.WithDurations())
		}
		progress = report.NewProgress(formatter.Writer, progressOpts...)
		bus.Subscribe(progress.Handler())
	}

	collector := metrics.NewCollector()
	bus.Subscribe(collector.Handler())

	var jsonLines *report.JSONLines
	if opts.EventsOut != "" {
		f, err := os.Create(opts.EventsOut)
		if err != nil {
			recorder.Close()
			<-recorderDone
			return outputCommandError(formatter, ErrCodeWriteFailed, err)
		}
		defer f.Close()
		jsonLines = report.NewJSONLines(f)
		bus.Subscribe(jsonLines.Handler())
	}

	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Debug("run starting", "run", runID, "scenarios", len(items), "workers", opts.Workers, "dry_run", opts.DryRun)
	watch := opts.Watch
	if watch == nil {
		watch = runner.SystemStopWatch{}
	}
	var results []suite.Result
	wall, runErr := watch.Measure(func() error {
		var err error
		results, err = suite.NewRunner(bus,
			suite.WithWorkers(opts.Workers),
			suite.WithLogger(slog.Default()),
		).Run(ctx, items)
		return err
	})

	recorder.Close()
	recordErr := <-recorderDone

	// Store and reporter write failures are command errors
	writeErrs := []error{recordErr, collector.Err()}
	if progress != nil {
		writeErrs = append(writeErrs, progress.Err())
	}
	if jsonLines != nil {
		writeErrs = append(writeErrs, jsonLines.Err())
	}
	if err := errors.Join(writeErrs...); err != nil {
		return outputCommandError(formatter, ErrCodeWriteFailed, err)
	}

	if runErr != nil {
		slog.Info("run interrupted", "run", runID, "error", runErr)
		_ = formatter.Error(ErrCodeInterrupted, "run interrupted", runErr.Error())
		return WrapExitError(ExitFailure, "run interrupted", runErr)
	}

	result, err := buildRunResult(parentCtx, st, runID, opts.DryRun, results)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err)
	}
	result.WallNS = wall.Nanoseconds()

	if opts.MetricsOut != "" {
		if err := collector.WriteTextfile(opts.MetricsOut); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, err)
		}
		formatter.VerboseLog("Wrote metrics to %s", opts.MetricsOut)
	}

	if formatter.Verbose {
		if err := logSlowestSteps(parentCtx, st, runID, formatter.GetErrWriter()); err != nil {
			slog.Warn("could not read slowest steps", "error", err)
		}
	}

	failed := 0
	for _, res := range results {
		if !res.Outcome.IsOK(opts.Strict) {
			failed++
		}
	}
	return outputRunResult(formatter, result, failed, opts)
}

// buildRunResult collects totals from the store and outcomes from results.
func buildRunResult(ctx context.Context, st *store.Store, runID string, dryRun bool, results []suite.Result) (RunResult, error) {
	scenarioCounts, err := st.StatusCounts(ctx, runID, event.KindScenarioFinished)
	if err != nil {
		return RunResult{}, err
	}
	stepCounts, err := st.StatusCounts(ctx, runID, event.KindStepFinished)
	if err != nil {
		return RunResult{}, err
	}

	var agg outcome.Aggregate
	out := RunResult{
		RunID:     runID,
		DryRun:    dryRun,
		Scenarios: statusKeys(scenarioCounts),
		Steps:     statusKeys(stepCounts),
		Results:   make([]ScenarioResult, 0, len(results)),
	}
	for _, res := range results {
		if res.Item == nil {
			continue
		}
		agg.Add(res.Outcome)
		out.Results = append(out.Results, ScenarioResult{
			ID:      res.Item.Case.ID(),
			Name:    res.Item.Doc.Name,
			Path:    res.Item.Doc.Path,
			Dialect: res.Item.Dialect.Code(),
			Outcome: res.Outcome,
			Lines:   res.Lines,
		})
	}

	total := agg.Outcome()
	out.Status = total.Status()
	if d, ok := total.Duration(); ok {
		out.DurationNS = d.Nanoseconds()
	}
	return out, nil
}

// totals converts the JSON result back into summary totals.
func (r RunResult) totals() (report.Totals, error) {
	t := report.Totals{
		Scenarios: make(map[outcome.Status]int, len(r.Scenarios)),
		Steps:     make(map[outcome.Status]int, len(r.Steps)),
		Duration:  time.Duration(r.DurationNS),
	}
	for code, n := range r.Scenarios {
		s, err := outcome.ParseStatus(code)
		if err != nil {
			return report.Totals{}, err
		}
		t.Scenarios[s] = n
	}
	for code, n := range r.Steps {
		s, err := outcome.ParseStatus(code)
		if err != nil {
			return report.Totals{}, err
		}
		t.Steps[s] = n
	}
	return t, nil
}

func statusKeys(counts map[outcome.Status]int) map[string]int {
	out := make(map[string]int, len(counts))
	for s, n := range counts {
		out[s.String()] = n
	}
	return out
}

// logSlowestSteps lists the run's slowest timed steps.
func logSlowestSteps(ctx context.Context, st *store.Store, runID string, w io.Writer) error {
	records, err := st.SlowestSteps(ctx, runID, slowestStepCount)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	fmt.Fprintln(w, "Slowest steps:")
	for _, r := range records {
		fmt.Fprintf(w, "  %8s  %s\n", report.FormatDuration(r.Duration), r.Label)
	}
	return nil
}

// outputRunResult prints the summary and maps failures to exit code 1.
func outputRunResult(formatter *OutputFormatter, result RunResult, failed int, opts *RunOptions) error {
	okMessage := "All scenarios passed"
	var exitErr error
	if opts.validate {
		okMessage = "All scenarios valid"
		if failed > 0 {
			exitErr = NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) invalid", failed))
		}
	} else if failed > 0 {
		exitErr = NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) did not pass", failed))
	}

	if formatter.JSON() {
		if exitErr != nil {
			if err := formatter.Failure(result.RunID, ErrCodeScenarioFailed, exitErr.Error(), result); err != nil {
				return err
			}
			return exitErr
		}
		return formatter.SuccessForRun(result.RunID, result)
	}

	totals, err := result.totals()
	if err != nil {
		return err
	}
	fmt.Fprintln(formatter.Writer)
	if err := report.WriteSummary(formatter.Writer, totals, report.SummaryOptions{
		Title:   "Run " + result.RunID,
		Colored: opts.Color,
	}); err != nil {
		return WrapExitError(ExitCommandError, "failed to write summary", err)
	}

	if exitErr != nil {
		fmt.Fprintf(formatter.Writer, "✗ %s\n", exitErr.Error())
		return exitErr
	}
	fmt.Fprintf(formatter.Writer, "✓ %s\n", okMessage)
	return nil
}

// outputCommandError outputs an error and maps it to exit code 2.
func outputCommandError(formatter *OutputFormatter, code string, err error) error {
	_ = formatter.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, code, err)
}

// dialectCode is the run-wide dialect recorded with the run.
func dialectCode(code string) string {
	d, err := resolveRunDialect(code)
	if err != nil {
		return code
	}
	return d.Code()
}
