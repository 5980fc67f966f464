package cli

import (
	"github.com/spf13/cobra"

	"github.com/lherron/tasklens/internal/cli/appctx"
	"github.com/lherron/tasklens/internal/render"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Resolve a portal session token",
	Long: `Resolves a Copilot portal session token to its workspace, client,
company, and internal user. Without --token the anonymous (internal)
identity is printed.`,
	RunE: appctx.WithApp(runWhoami),
}

var (
	whoamiToken string
	whoamiJSON  bool
)

func init() {
	rootCmd.AddCommand(whoamiCmd)
	whoamiCmd.Flags().StringVar(&whoamiToken, "token", "", "Portal session token")
	whoamiCmd.Flags().BoolVar(&whoamiJSON, "json", false, "Output as JSON")
}

func runWhoami(app *appctx.App, cmd *cobra.Command, args []string) error {
	identity, err := app.Resolver.Resolve(cmd.Context(), whoamiToken)
	if err != nil {
		return err
	}

	opts := render.Options{Format: render.FormatTable}
	if whoamiJSON {
		opts.Format = render.FormatJSON
	}
	return render.NewRenderer(cmd.OutOrStdout(), opts).RenderIdentity(identity)
}
