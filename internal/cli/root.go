package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tasklens",
	Short: "Company-scoped task lists from Airtable for the Copilot portal",
	Long: `tasklens fetches task records from an Airtable table, scopes them to
the company of a Copilot portal session, and serves them as a searchable
list. The same pipeline is available from the command line.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("source", "", "Task source: airtable or snapshot (overrides TASKLENS_SOURCE)")
	rootCmd.PersistentFlags().String("snapshot", "", "Path to snapshot database (overrides TASKLENS_SNAPSHOT_PATH)")
}
