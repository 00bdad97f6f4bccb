package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X github.com/roach88/steprun/internal/cli.Version=...".
var Version = "dev"

// VersionInfo is the version JSON payload.
type VersionInfo struct {
	Version string `json:"version"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the steprun version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			if formatter.JSON() {
				return formatter.Success(VersionInfo{Version: Version})
			}
			return formatter.Success(fmt.Sprintf("steprun %s", Version))
		},
	}
}
