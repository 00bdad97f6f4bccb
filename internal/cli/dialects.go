package cli

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/steprun/internal/dialect"
)

// DialectInfo is one dialect in the dialects JSON payload.
type DialectInfo struct {
	Code     string              `json:"code"`
	Name     string              `json:"name"`
	Native   string              `json:"native"`
	Keywords map[string][]string `json:"keywords"`
}

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List the languages scenarios can be written in",
		Long: `List every dialect in the catalog with its step keywords.

A scenario picks its dialect with the "dialect" field; --dialect sets the
default for scenarios that do not.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listDialects(newFormatter(rootOpts, cmd))
		},
	}
}

func listDialects(formatter *OutputFormatter) error {
	all, err := dialect.All()
	if err != nil {
		return outputCommandError(formatter, ErrCodeDialect, err)
	}

	if formatter.JSON() {
		infos := make([]DialectInfo, 0, len(all))
		for _, d := range all {
			info := DialectInfo{
				Code:     d.Code(),
				Name:     d.Name(),
				Native:   d.Native(),
				Keywords: make(map[string][]string, len(dialect.KeywordKinds)),
			}
			for _, kind := range dialect.KeywordKinds {
				info.Keywords[string(kind)] = d.Keywords(kind)
			}
			infos = append(infos, info)
		}
		return formatter.Success(infos)
	}

	t := table.NewWriter()
	t.SetOutputMirror(formatter.Writer)
	t.SetStyle(table.StyleLight)

	header := table.Row{"Code", "Language"}
	for _, kind := range dialect.KeywordKinds {
		header = append(header, string(kind))
	}
	t.AppendHeader(header)

	for _, d := range all {
		row := table.Row{d.Code(), d.Name() + " (" + d.Native() + ")"}
		for _, kind := range dialect.KeywordKinds {
			row = append(row, strings.Join(d.Keywords(kind), ", "))
		}
		t.AppendRow(row)
	}
	t.Render()
	return nil
}
