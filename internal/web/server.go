// Package web serves the task pages and the JSON API.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lherron/tasklens/internal/config"
	"github.com/lherron/tasklens/internal/tasks"
)

// IdentityResolver resolves a bearer token. session.Resolver implements it.
type IdentityResolver = tasks.Resolver

// Server holds the handlers' dependencies.
type Server struct {
	cfg      *config.Config
	service  *tasks.Service
	resolver IdentityResolver
	board    *tasks.Board
	pages    *pageRenderer
	logger   *slog.Logger
}

// NewServer wires a Server. All dependencies are required.
func NewServer(cfg *config.Config, service *tasks.Service, resolver IdentityResolver, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		service:  service,
		resolver: resolver,
		board:    tasks.NewBoard(service, resolver),
		pages:    newPageRenderer(),
		logger:   logger,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(s.contentSecurityPolicy)

	r.Get("/v1/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/tasks", s.handleTasks)
		r.Get("/users", s.handleUsers)
	})

	r.Get("/", s.handlePortal)
	r.Get("/internal", s.handleInternal)

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.cfg.HTTPTimeout + 30*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", listener.Addr().String(), "env", s.cfg.Env, "source", s.cfg.Source)
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}
