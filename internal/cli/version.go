package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/globe-b2b/sf-jsm-sync/internal/version"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the sfjsmsync version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Current)
		},
	}
}
