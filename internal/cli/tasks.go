package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/tasklens/internal/cli/appctx"
	"github.com/lherron/tasklens/internal/domain"
	"github.com/lherron/tasklens/internal/render"
	"github.com/lherron/tasklens/internal/tasks"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List tasks",
	Long: `Lists tasks from the configured source.

Without --company or --token every task is listed (the internal view).
--token resolves a portal session and shows only its company's tasks;
--company scopes to a company ID directly without contacting Copilot.

Examples:
  tasklens tasks
  tasklens tasks --company cmp_123 -q invoice
  tasklens tasks --token "$PORTAL_TOKEN" --json`,
	RunE: appctx.WithApp(runTasks),
}

var (
	tasksCompany string
	tasksToken   string
	tasksQuery   string
	tasksOutput  outputFlags
)

func init() {
	rootCmd.AddCommand(tasksCmd)

	tasksCmd.Flags().StringVar(&tasksCompany, "company", "", "Only show tasks of this company ID")
	tasksCmd.Flags().StringVar(&tasksToken, "token", "", "Portal session token to scope by")
	tasksCmd.Flags().StringVarP(&tasksQuery, "query", "q", "", "Case-insensitive search over every field")
	tasksCmd.Flags().BoolVar(&tasksOutput.json, "json", false, "Output as JSON")
	tasksCmd.Flags().BoolVar(&tasksOutput.yaml, "yaml", false, "Output as YAML")
	tasksCmd.Flags().BoolVar(&tasksOutput.tsv, "tsv", false, "Output as TSV")
	tasksCmd.Flags().BoolVar(&tasksOutput.porcelain, "porcelain", false, "Machine-readable output")
}

func runTasks(app *appctx.App, cmd *cobra.Command, args []string) error {
	if tasksCompany != "" && tasksToken != "" {
		return fmt.Errorf("--company and --token are mutually exclusive")
	}

	ctx := cmd.Context()
	var records []domain.TaskRecord

	switch {
	case tasksToken != "":
		res, err := tasks.NewBoard(app.Service, app.Resolver).Scoped(ctx, tasksToken)
		if err != nil {
			return err
		}
		records = res.Tasks
	default:
		all, err := app.Service.ListTasks(ctx)
		if err != nil {
			return err
		}
		records = tasks.View(all, &domain.Identity{CompanyID: tasksCompany})
	}

	records = tasks.Filter(records, tasksQuery)

	r := render.NewRenderer(cmd.OutOrStdout(), tasksOutput.options())
	return r.RenderTasks(records)
}
