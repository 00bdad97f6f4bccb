package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/roach88/steprun/internal/outcome"
)

// Totals are the per-status counts of a run.
type Totals struct {
	Scenarios map[outcome.Status]int
	Steps     map[outcome.Status]int
	Duration  time.Duration
}

// Worst returns the most severe status with at least one scenario.
// Passed when there are no scenarios.
func (t Totals) Worst() outcome.Status {
	worst := outcome.StatusPassed
	for s, n := range t.Scenarios {
		if n > 0 {
			worst = outcome.Worst(worst, s)
		}
	}
	return worst
}

// SummaryOptions control the summary table.
type SummaryOptions struct {
	// Title is printed above the table.
	Title string
	// Colored picks a colored style from the worst status.
	Colored bool
}

// WriteSummary renders the totals as a table with one row per status.
// Fails with *outcome.UnknownStatusError if a count uses an unknown status.
func WriteSummary(w io.Writer, totals Totals, opts SummaryOptions) error {
	for _, counts := range []map[outcome.Status]int{totals.Scenarios, totals.Steps} {
		for s := range counts {
			if !s.Valid() {
				return &outcome.UnknownStatusError{Code: s.String()}
			}
		}
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	if opts.Title != "" {
		t.SetTitle(opts.Title)
	}

	t.AppendHeader(table.Row{"Status", "Scenarios", "Steps"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Scenarios", Align: text.AlignRight},
		{Name: "Steps", Align: text.AlignRight},
	})

	var scenarios, steps int
	for _, s := range outcome.AllStatuses {
		sym, _ := Symbol(s)
		t.AppendRow(table.Row{
			fmt.Sprintf("%s %s", sym, s),
			totals.Scenarios[s],
			totals.Steps[s],
		})
		scenarios += totals.Scenarios[s]
		steps += totals.Steps[s]
	}

	worst := totals.Worst()
	t.SetStyle(summaryStyle(worst, opts.Colored))
	t.AppendFooter(table.Row{
		fmt.Sprintf("Total (%s, %s)", worst, FormatDuration(totals.Duration)),
		scenarios,
		steps,
	})

	t.Render()
	return nil
}

func summaryStyle(worst outcome.Status, colored bool) table.Style {
	if !colored {
		return table.StyleLight
	}
	switch {
	case worst >= outcome.StatusFailed:
		return table.StyleColoredBlackOnRedWhite
	case worst > outcome.StatusSkipped:
		return table.StyleColoredBlackOnYellowWhite
	default:
		return table.StyleColoredBlackOnGreenWhite
	}
}
