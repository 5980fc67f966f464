package cli

import (
	"bytes"
	"fmt"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/lherron/tasklens/internal/cli/appctx"
	"github.com/lherron/tasklens/internal/domain"
	"github.com/lherron/tasklens/internal/render"
	"github.com/lherron/tasklens/internal/snapshot"
	"github.com/lherron/tasklens/internal/tasks"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage the offline task snapshot",
	Long: `The snapshot is a SQLite copy of the task table. Set
TASKLENS_SOURCE=snapshot (or --source snapshot) to serve from it instead of
Airtable.`,
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Copy every task from Airtable into the snapshot",
	RunE:  appctx.WithApp(runSnapshotSave),
}

var snapshotDiffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show how the snapshot differs from Airtable",
	Long: `Renders the snapshot and the live table as YAML and prints a unified
diff between them. Prints nothing when they match.`,
	RunE: appctx.WithApp(runSnapshotDiff),
}

var snapshotInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the saved snapshot and its schema state",
	RunE:  appctx.WithApp(runSnapshotInfo),
}

var (
	snapshotInfoPath string
	snapshotInfoJSON bool
	snapshotSaveOut  string
	snapshotSaveJSON bool
	snapshotDiffPath string
	snapshotUnified  int
)

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotSaveCmd)
	snapshotCmd.AddCommand(snapshotDiffCmd)
	snapshotCmd.AddCommand(snapshotInfoCmd)

	snapshotInfoCmd.Flags().StringVar(&snapshotInfoPath, "path", "", "Snapshot path (defaults to TASKLENS_SNAPSHOT_PATH)")
	snapshotInfoCmd.Flags().BoolVar(&snapshotInfoJSON, "json", false, "Output as JSON")

	snapshotSaveCmd.Flags().StringVar(&snapshotSaveOut, "out", "", "Snapshot path (defaults to TASKLENS_SNAPSHOT_PATH)")
	snapshotSaveCmd.Flags().BoolVar(&snapshotSaveJSON, "json", false, "Output as JSON")

	snapshotDiffCmd.Flags().StringVar(&snapshotDiffPath, "path", "", "Snapshot path (defaults to TASKLENS_SNAPSHOT_PATH)")
	snapshotDiffCmd.Flags().IntVar(&snapshotUnified, "unified", 3, "Lines of unified context")
}

// openSnapshot returns the store at path, reusing the App's store when it
// already has that file open. The returned func closes only what was
// opened here.
func openSnapshot(app *appctx.App, path string) (*snapshot.Store, func(), error) {
	if path == "" {
		path = app.Config.SnapshotPath
	}
	if app.Snapshot != nil && app.Snapshot.Path() == path {
		return app.Snapshot, func() {}, nil
	}
	store, err := snapshot.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	return store, func() { store.Close() }, nil
}

// liveTasks lists tasks from Airtable whatever the configured source.
func liveTasks(app *appctx.App, cmd *cobra.Command) ([]domain.TaskRecord, error) {
	return tasks.NewService(app.Airtable, app.Config.AirtableTable, app.Logger).ListTasks(cmd.Context())
}

func runSnapshotSave(app *appctx.App, cmd *cobra.Command, args []string) error {
	records, err := liveTasks(app, cmd)
	if err != nil {
		return err
	}

	store, closeStore, err := openSnapshot(app, snapshotSaveOut)
	if err != nil {
		return err
	}
	defer closeStore()

	table := app.Config.AirtableTable
	if err := store.Save(cmd.Context(), table, records, time.Now()); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	info, err := store.Info(cmd.Context(), table)
	if err != nil {
		return err
	}

	if snapshotSaveJSON {
		return render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: render.FormatJSON}).RenderJSON(map[string]interface{}{
			"path":     store.Path(),
			"snapshot": info,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %d task(s) from %s to %s\n", info.RecordCount, info.Table, store.Path())
	return nil
}

func runSnapshotInfo(app *appctx.App, cmd *cobra.Command, args []string) error {
	store, closeStore, err := openSnapshot(app, snapshotInfoPath)
	if err != nil {
		return err
	}
	defer closeStore()

	applied, pending, err := store.Migrations()
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}
	// A store that was never saved still reports its schema.
	info, infoErr := store.Info(cmd.Context(), app.Config.AirtableTable)

	if snapshotInfoJSON {
		output := map[string]interface{}{
			"path":               store.Path(),
			"applied_migrations": applied,
			"pending_migrations": pending,
		}
		if infoErr == nil {
			output["snapshot"] = info
		}
		return render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: render.FormatJSON}).RenderJSON(output)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Path:       %s\n", store.Path())
	if infoErr == nil {
		fmt.Fprintf(out, "Table:      %s\n", info.Table)
		fmt.Fprintf(out, "Taken at:   %s\n", info.TakenAt.UTC().Format(time.RFC3339))
		fmt.Fprintf(out, "Tasks:      %d\n", info.RecordCount)
	} else {
		fmt.Fprintf(out, "Table:      %s (no snapshot)\n", app.Config.AirtableTable)
	}
	fmt.Fprintf(out, "Migrations: %d applied, %d pending\n", len(applied), len(pending))
	return nil
}

func runSnapshotDiff(app *appctx.App, cmd *cobra.Command, args []string) error {
	store, closeStore, err := openSnapshot(app, snapshotDiffPath)
	if err != nil {
		return err
	}
	defer closeStore()

	table := app.Config.AirtableTable
	info, err := store.Info(cmd.Context(), table)
	if err != nil {
		return err
	}
	saved, err := store.ListRecords(cmd.Context(), table)
	if err != nil {
		return err
	}
	live, err := liveTasks(app, cmd)
	if err != nil {
		return err
	}

	text, err := snapshotDiff(saved, live, info.TakenAt, snapshotUnified)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), text)
	return err
}

// snapshotDiff returns a unified diff of the YAML renderings of saved and
// live, or "" when they are equal.
func snapshotDiff(saved, live []domain.TaskRecord, takenAt time.Time, context int) (string, error) {
	var a, b bytes.Buffer
	if err := render.NewRenderer(&a, render.Options{Format: render.FormatYAML}).RenderTasks(saved); err != nil {
		return "", err
	}
	if err := render.NewRenderer(&b, render.Options{Format: render.FormatYAML}).RenderTasks(live); err != nil {
		return "", err
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(a.String()),
		B:        difflib.SplitLines(b.String()),
		FromFile: "snapshot",
		FromDate: takenAt.UTC().Format(time.RFC3339),
		ToFile:   "airtable",
		Context:  context,
	}
	return difflib.GetUnifiedDiffString(diff)
}
