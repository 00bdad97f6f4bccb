package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/steprun/internal/dialect"
	"github.com/roach88/steprun/internal/runner"
	"github.com/roach88/steprun/internal/suite"
)

// Error codes for CLI output.
const (
	// Command errors (exit 2)
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNoFiles     = "E003" // No scenario files found
	ErrCodeLoadFailed  = "E004" // Scenario file unreadable or invalid
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // Step text does not match the dialect
	ErrCodeWriteFailed = "E007" // Report, store, or export write error
	ErrCodeConfig      = "E008" // Config file invalid
	ErrCodeDialect     = "E009" // Unknown dialect

	// Run results (exit 1)
	ErrCodeScenarioFailed = "E101" // At least one scenario did not pass
	ErrCodeInterrupted    = "E102" // Run cancelled before every scenario ran
)

// LoadError is a failure to turn a scenarios directory into runnable items.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// loadOptions select and build scenarios.
type loadOptions struct {
	Filter  string
	Dialect string
	Shell   string
	DryRun  bool
	IDs     runner.IDGenerator
	Watch   runner.StopWatch
}

// loadItems finds, parses, and builds every scenario under dir.
// All parse errors (or all build errors) are reported together.
func loadItems(dir string, opts loadOptions) ([]*suite.Item, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("scenarios directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: "error accessing scenarios directory", Err: err}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	d, err := resolveRunDialect(opts.Dialect)
	if err != nil {
		return nil, err
	}

	docs, err := suite.LoadDir(dir, opts.Filter)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "invalid scenario files", Err: err}
	}
	if len(docs) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no scenario files found in %s", dir)}
	}

	items, err := suite.BuildAll(docs, suite.BuildOptions{
		Dialect: d,
		IDs:     opts.IDs,
		Watch:   opts.Watch,
		DryRun:  opts.DryRun,
		Shell:   opts.Shell,
	})
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: "invalid steps", Err: err}
	}
	return items, nil
}

// resolveRunDialect returns the run-wide dialect. Empty means English.
func resolveRunDialect(code string) (*dialect.Dialect, error) {
	if code == "" {
		return dialect.Default(), nil
	}
	d, err := dialect.Lookup(code)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDialect, Message: "unknown dialect", Err: err}
	}
	return d, nil
}

// loadErrorCode returns the code carried by a *LoadError or *ConfigError.
func loadErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return ErrCodeConfig
	}
	return ErrCodeGeneric
}
