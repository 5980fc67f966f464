// Package copilot is a small client for the Copilot customer-portal REST
// API: it retrieves the workspace and the client, company and internal-user
// entities named by a portal session token.
package copilot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/lherron/tasklens/internal/domain"
)

const (
	upstreamName     = "copilot"
	maxResponseBytes = 4 << 20
)

// Config holds what NewClient needs.
type Config struct {
	BaseURL string
	APIKey  string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client talks to the Copilot API with a single API key. Safe for
// concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client from cfg.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     logger.With("upstream", upstreamName),
	}
}

// RetrieveWorkspace returns the workspace that owns the API key.
func (c *Client) RetrieveWorkspace(ctx context.Context) (*domain.Workspace, error) {
	var ws domain.Workspace
	if err := c.get(ctx, "workspace", "/workspaces", &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

// RetrieveClient returns the client with the given ID.
func (c *Client) RetrieveClient(ctx context.Context, id string) (*domain.Client, error) {
	var client domain.Client
	if err := c.get(ctx, "client", "/clients/"+url.PathEscape(id), &client); err != nil {
		return nil, err
	}
	return &client, nil
}

// RetrieveCompany returns the company with the given ID.
func (c *Client) RetrieveCompany(ctx context.Context, id string) (*domain.Company, error) {
	var company domain.Company
	if err := c.get(ctx, "company", "/companies/"+url.PathEscape(id), &company); err != nil {
		return nil, err
	}
	return &company, nil
}

// RetrieveInternalUser returns the internal user with the given ID.
func (c *Client) RetrieveInternalUser(ctx context.Context, id string) (*domain.InternalUser, error) {
	var user domain.InternalUser
	if err := c.get(ctx, "internal-user", "/internal-users/"+url.PathEscape(id), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// TokenPayload decodes a portal session token with the client's API key.
// No request is made.
func (c *Client) TokenPayload(ctx context.Context, token string) (*domain.TokenPayload, error) {
	if c.apiKey == "" {
		return nil, &domain.ConfigurationError{Name: "COPILOT_API_KEY"}
	}
	return DecodeToken(c.apiKey, token)
}

func (c *Client) get(ctx context.Context, stage, path string, dst any) error {
	if c.apiKey == "" {
		return &domain.ConfigurationError{Name: "COPILOT_API_KEY"}
	}

	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("copilot: build request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("request failed", "stage", stage, "url", endpoint, "error", err)
		return &domain.UpstreamError{Upstream: upstreamName, Stage: stage, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &domain.UpstreamError{Upstream: upstreamName, Stage: stage, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("non-success response", "stage", stage, "url", endpoint, "status", resp.StatusCode, "body", string(body))
		return &domain.UpstreamError{Upstream: upstreamName, Stage: stage, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, dst); err != nil {
		c.logger.Error("unparseable response", "stage", stage, "url", endpoint, "body", string(body), "error", err)
		return &domain.UpstreamError{Upstream: upstreamName, Stage: stage, StatusCode: resp.StatusCode, Body: string(body), Err: fmt.Errorf("parse response: %w", err)}
	}
	return nil
}
