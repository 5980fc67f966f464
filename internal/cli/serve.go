package cli

import (
	"github.com/spf13/cobra"

	"github.com/lherron/tasklens/internal/cli/appctx"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	Long: `Serves the portal page (/), the internal page (/internal), and the JSON
API (/api/tasks, /api/users) until interrupted.`,
	RunE: appctx.WithApp(runServe),
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides TASKLENS_ADDR)")
}

func runServe(app *appctx.App, cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		app.Config.Addr = serveAddr
	}
	return serveApp(app)
}
