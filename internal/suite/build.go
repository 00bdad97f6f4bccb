package suite

import (
	"fmt"
	"strconv"

	"github.com/roach88/steprun/internal/dialect"
	"github.com/roach88/steprun/internal/runner"
)

// Item is a built case ready to run, with the dialect it runs in.
type Item struct {
	Doc     *Document
	Case    *runner.Case
	Dialect *dialect.Dialect
}

// BuildOptions control how documents become cases.
type BuildOptions struct {
	// Dialect is used for documents that do not set one. Nil means English.
	Dialect *dialect.Dialect

	// IDs generates case IDs. Nil means UUIDv7.
	IDs runner.IDGenerator

	// Watch times steps. Nil means the system stop watch.
	Watch runner.StopWatch

	// DryRun builds every case in dry-run mode.
	DryRun bool

	// Shell runs step commands. Empty means DefaultShell.
	Shell string
}

// Build turns a document into a case.
//
// Every step text must start with a keyword of the document's dialect.
func Build(doc *Document, opts BuildOptions) (*Item, error) {
	d, err := resolveDialect(doc, opts.Dialect)
	if err != nil {
		return nil, err
	}

	ids := opts.IDs
	if ids == nil {
		ids = runner.UUIDv7Generator{}
	}
	watch := opts.Watch
	if watch == nil {
		watch = runner.SystemStopWatch{}
	}

	for i, spec := range doc.Steps {
		if _, _, ok := d.Keyword(spec.Text); !ok {
			return nil, fmt.Errorf("%s: steps[%d]: %q does not start with a keyword of dialect %s",
				docLabel(doc), i, spec.Text, d.Code())
		}
	}

	id := ids.Generate()
	steps := make([]*runner.Step, len(doc.Steps))
	for i, spec := range doc.Steps {
		steps[i] = runner.NewStep(id+"/"+strconv.Itoa(i+1), spec.Text, actionFor(doc, spec, opts.Shell), watch)
	}

	caseOpts := []runner.CaseOption{
		runner.WithTags(doc.Tags...),
		runner.WithSource(doc.Path),
	}
	if opts.DryRun {
		caseOpts = append(caseOpts, runner.WithDryRun())
	}

	return &Item{
		Doc:     doc,
		Case:    runner.NewCase(id, doc.Name, steps, caseOpts...),
		Dialect: d,
	}, nil
}

func actionFor(doc *Document, spec StepSpec, shell string) runner.Action {
	switch {
	case spec.Pending:
		return PendingAction{Text: spec.Text}
	case spec.Run != "":
		return ShellAction{Command: spec.Run, Dir: doc.Dir(), Shell: shell}
	default:
		return UndefinedAction{Text: spec.Text}
	}
}

func resolveDialect(doc *Document, fallback *dialect.Dialect) (*dialect.Dialect, error) {
	if doc.Dialect != "" {
		d, err := dialect.Lookup(doc.Dialect)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", docLabel(doc), err)
		}
		return d, nil
	}
	if fallback != nil {
		return fallback, nil
	}
	return dialect.Default(), nil
}

func docLabel(doc *Document) string {
	if doc.Path != "" {
		return doc.Path
	}
	return doc.Name
}
