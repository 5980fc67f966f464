package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lherron/tasklens/internal/cli/appctx"
	"github.com/lherron/tasklens/internal/config"
	"github.com/lherron/tasklens/internal/web"
)

// DaemonOptions configures the tasklensd daemon. Empty fields keep the
// configured values.
type DaemonOptions struct {
	Addr   string
	Env    string
	Source string
}

// ServeDaemon loads configuration and serves the web app until SIGINT or
// SIGTERM.
func ServeDaemon(opts DaemonOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}
	if opts.Env != "" {
		cfg.Env = opts.Env
	}
	if opts.Source != "" {
		cfg.Source = opts.Source
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	app, err := appctx.New(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer app.Close()

	return serveApp(app)
}

func serveApp(app *appctx.App) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := web.NewServer(app.Config, app.Service, app.Resolver, app.Logger)
	return server.ListenAndServe(ctx, app.Config.Addr)
}
