// Package cli wires the commands for the sfjsmsync binary.
package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose bool
}

// NewRootCommand creates the root command for the sync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sfjsmsync",
		Short: "Sync recently changed CRM accounts into the service desk",
		Long: `sfjsmsync reconciles Salesforce B2B accounts modified today into
Jira Service Management: organizations, desk links, detail fields,
authorized customer contacts, and organization membership.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Best effort; the environment wins over the file.
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}
