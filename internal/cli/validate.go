package cli

import (
	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return newValidateCommand(&RunOptions{RootOptions: rootOpts})
}

func newValidateCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenarios-dir>",
		Short: "Check scenarios without running them",
		Long: `Validate scenario files without running any step.

Every scenario is loaded, checked against its dialect, and dry-run: each step
command must parse, and a plain leading program must resolve on PATH. Undefined steps count as invalid, as
they would under run --strict. Pending steps are never reached by a dry run
and are reported as skipped.

Faster than run for development feedback, and has no side effects.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.DryRun = true
			opts.Strict = true
			opts.validate = true
			return runScenarios(opts, args[0], cmd)
		},
	}

	addRunFlags(cmd, opts)

	return cmd
}
