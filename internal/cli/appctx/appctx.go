// Package appctx provides a shared bootstrap helper for CLI commands.
// It centralizes config loading, logger setup, and wiring of the task
// source and session resolver.
package appctx

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/lherron/tasklens/internal/airtable"
	"github.com/lherron/tasklens/internal/config"
	"github.com/lherron/tasklens/internal/copilot"
	"github.com/lherron/tasklens/internal/logging"
	"github.com/lherron/tasklens/internal/session"
	"github.com/lherron/tasklens/internal/snapshot"
	"github.com/lherron/tasklens/internal/tasks"
)

// App holds the shared application context for commands.
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	Logger *slog.Logger

	// Airtable is the live source, built regardless of Config.Source so
	// snapshot commands can read from it.
	Airtable *airtable.Client

	// Snapshot is the opened snapshot store (nil unless Config.Source is
	// "snapshot")
	Snapshot *snapshot.Store

	// Service lists tasks from the configured source
	Service *tasks.Service

	// Resolver resolves session tokens against Copilot
	Resolver *session.Resolver
}

// Close releases resources held by the App.
// Safe to call multiple times.
func (a *App) Close() {
	if a.Snapshot != nil {
		a.Snapshot.Close()
		a.Snapshot = nil
	}
}

// RunFunc is the signature for command run functions.
type RunFunc func(app *App, cmd *cobra.Command, args []string) error

// WithApp wraps a command's run function with shared bootstrap logic.
// The App is closed automatically when the wrapped function returns.
func WithApp(fn RunFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := Bootstrap(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		return fn(app, cmd, args)
	}
}

// Bootstrap loads configuration, applies the global --source and
// --snapshot flags, and builds the App.
// Callers are responsible for calling App.Close() when done.
func Bootstrap(cmd *cobra.Command) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if f := cmd.Flag("source"); f != nil {
		if v := f.Value.String(); v != "" {
			cfg.Source = v
		}
	}
	if f := cmd.Flag("snapshot"); f != nil {
		if v := f.Value.String(); v != "" {
			cfg.SnapshotPath = v
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return New(cfg, cmd.ErrOrStderr())
}

// New builds an App from an already loaded config. Logs go to logOut.
func New(cfg *config.Config, logOut io.Writer) (*App, error) {
	logger := logging.NewLogger(logging.Options{
		Level:     cfg.LogLevel,
		Writer:    logOut,
		Component: "tasklens",
	})

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	app := &App{
		Config: cfg,
		Logger: logger,
		Airtable: airtable.NewClient(airtable.Config{
			BaseURL:    cfg.AirtableBaseURL,
			BaseID:     cfg.AirtableBaseID,
			APIKey:     cfg.AirtableAPIKey,
			ConfigErr:  cfg.RequireAirtable(),
			HTTPClient: httpClient,
			Logger:     logger,
		}),
	}

	var source tasks.Source = app.Airtable
	if cfg.Source == config.SourceSnapshot {
		store, err := snapshot.Open(cfg.SnapshotPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot: %w", err)
		}
		app.Snapshot = store
		source = store
	}
	app.Service = tasks.NewService(source, cfg.AirtableTable, logger)

	copilotClient := copilot.NewClient(copilot.Config{
		BaseURL:    cfg.CopilotBaseURL,
		APIKey:     cfg.CopilotAPIKey,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	app.Resolver = session.NewResolver(copilotClient, cfg.RequireCopilot(), logger)

	return app, nil
}
