// Package session resolves a portal session token to the caller's
// identity.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/lherron/tasklens/internal/domain"
)

// Source is the identity provider the Resolver talks to.
// copilot.Client implements it.
type Source interface {
	RetrieveWorkspace(ctx context.Context) (*domain.Workspace, error)
	TokenPayload(ctx context.Context, token string) (*domain.TokenPayload, error)
	RetrieveClient(ctx context.Context, id string) (*domain.Client, error)
	RetrieveCompany(ctx context.Context, id string) (*domain.Company, error)
	RetrieveInternalUser(ctx context.Context, id string) (*domain.InternalUser, error)
}

// Resolver turns bearer tokens into identities.
type Resolver struct {
	source Source
	// configErr is returned for every call when the source is unusable.
	configErr error
	logger    *slog.Logger
}

// NewResolver returns a Resolver backed by source. A non-nil configErr
// (typically from Config.RequireCopilot) makes every Resolve fail with it,
// including calls without a token.
func NewResolver(source Source, configErr error, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{source: source, configErr: configErr, logger: logger}
}

// Resolve returns the identity for token. An empty token yields the
// anonymous identity without contacting the source.
func (r *Resolver) Resolve(ctx context.Context, token string) (*domain.Identity, error) {
	if r.configErr != nil {
		r.logger.Error("session source not configured", "stage", "config", "error", r.configErr)
		return nil, r.configErr
	}
	if token == "" {
		return domain.Anonymous(), nil
	}

	workspace, err := r.source.RetrieveWorkspace(ctx)
	if err != nil {
		return nil, r.fail("workspace", err)
	}

	payload, err := r.source.TokenPayload(ctx, token)
	if err != nil {
		return nil, r.fail("token", err)
	}

	id := &domain.Identity{
		Workspace:      workspace,
		WorkspaceID:    workspace.ID,
		ClientID:       payload.ClientID,
		CompanyID:      payload.CompanyID,
		InternalUserID: payload.InternalUserID,
	}
	if payload.WorkspaceID != "" {
		id.WorkspaceID = payload.WorkspaceID
	}

	// The three lookups are independent; each writes only its own field.
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	record := func(stage string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = r.fail(stage, err)
		}
	}

	if payload.ClientID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client, err := r.source.RetrieveClient(ctx, payload.ClientID)
			if err != nil {
				record("client", err)
				return
			}
			id.Client = client
		}()
	}
	if payload.CompanyID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			company, err := r.source.RetrieveCompany(ctx, payload.CompanyID)
			if err != nil {
				record("company", err)
				return
			}
			id.Company = company
		}()
	}
	if payload.InternalUserID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user, err := r.source.RetrieveInternalUser(ctx, payload.InternalUserID)
			if err != nil {
				record("internal-user", err)
				return
			}
			id.InternalUser = user
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return id, nil
}

// fail wraps err as a SessionError unless it is already a configuration
// problem, which must stay distinguishable.
func (r *Resolver) fail(stage string, err error) error {
	r.logger.Error("session resolution failed", "stage", stage, "error", err)
	if isConfigError(err) {
		return err
	}
	return &domain.SessionError{Stage: stage, Err: err}
}

func isConfigError(err error) bool {
	var cfgErr *domain.ConfigurationError
	return errors.As(err, &cfgErr)
}
