// Package airtable is a minimal read-only client for the Airtable REST API.
// It lists every record of a table, following Airtable's offset pagination.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/oauth2"

	"github.com/lherron/tasklens/internal/domain"
)

const (
	upstreamName = "airtable"

	// pageSize is the largest page Airtable serves.
	pageSize = 100

	// maxResponseBytes bounds a single page read.
	maxResponseBytes = 32 << 20
)

// Config holds what NewClient needs.
type Config struct {
	BaseURL string
	BaseID  string
	APIKey  string

	// ConfigErr is returned by ListRecords before any I/O when set. Callers
	// pass config.Config.RequireAirtable() so missing credentials surface
	// as a ConfigurationError.
	ConfigErr error

	// HTTPClient supplies the timeout and base transport. The API key is
	// attached by an oauth2 transport layered on top. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client lists Airtable records. Safe for concurrent use.
type Client struct {
	baseURL    string
	baseID     string
	configErr  error
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client from cfg.
func NewClient(cfg Config) *Client {
	base := cfg.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := &http.Client{
		Timeout: base.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey, TokenType: "Bearer"}),
			Base:   base.Transport,
		},
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		baseID:     cfg.BaseID,
		configErr:  cfg.ConfigErr,
		httpClient: httpClient,
		logger:     logger.With("upstream", upstreamName),
	}
}

type listResponse struct {
	Records *[]apiRecord `json:"records"`
	Offset  string       `json:"offset"`
}

type apiRecord struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime"`
	Fields      map[string]any `json:"fields"`
}

// ListRecords returns every record of table in upstream order. Records
// repeated across pages are dropped after their first occurrence. An
// offset that comes back a second time fails the listing.
func (c *Client) ListRecords(ctx context.Context, table string) ([]domain.TaskRecord, error) {
	if c.configErr != nil {
		return nil, c.configErr
	}

	tableURL := c.baseURL + "/" + url.PathEscape(c.baseID) + "/" + url.PathEscape(table)

	records := []domain.TaskRecord{}
	seen := make(map[string]struct{})
	offsets := make(map[string]struct{})
	offset := ""
	for page := 1; ; page++ {
		resp, err := c.fetchPage(ctx, tableURL, offset)
		if err != nil {
			return nil, err
		}
		for _, r := range *resp.Records {
			if _, dup := seen[r.ID]; dup {
				c.logger.Warn("dropping duplicate record", "stage", "list", "table", table, "id", r.ID)
				continue
			}
			seen[r.ID] = struct{}{}
			fields := r.Fields
			if fields == nil {
				fields = map[string]any{}
			}
			records = append(records, domain.TaskRecord{ID: r.ID, CreatedTime: r.CreatedTime, Fields: fields})
		}
		c.logger.Debug("fetched page", "stage", "list", "table", table, "page", page, "records", len(*resp.Records))

		if resp.Offset == "" {
			break
		}
		if _, repeated := offsets[resp.Offset]; repeated {
			c.logger.Error("pagination did not advance", "stage", "list", "table", table, "page", page, "offset", resp.Offset)
			return nil, &domain.UpstreamError{Upstream: upstreamName, Stage: "list", Err: errors.New("pagination did not advance")}
		}
		offsets[resp.Offset] = struct{}{}
		offset = resp.Offset
	}
	return records, nil
}

func (c *Client) fetchPage(ctx context.Context, tableURL, offset string) (*listResponse, error) {
	query := url.Values{}
	query.Set("pageSize", strconv.Itoa(pageSize))
	if offset != "" {
		query.Set("offset", offset)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tableURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("airtable: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("request failed", "stage", "list", "url", tableURL, "error", err)
		return nil, &domain.UpstreamError{Upstream: upstreamName, Stage: "list", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &domain.UpstreamError{Upstream: upstreamName, Stage: "list", StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("non-success response", "stage", "list", "url", tableURL, "status", resp.StatusCode, "body", string(body))
		return nil, &domain.UpstreamError{Upstream: upstreamName, Stage: "list", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var page listResponse
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&page); err != nil {
		c.logger.Error("unparseable response", "stage", "list", "url", tableURL, "status", resp.StatusCode, "body", string(body), "error", err)
		return nil, &domain.UpstreamError{Upstream: upstreamName, Stage: "list", StatusCode: resp.StatusCode, Body: string(body), Err: fmt.Errorf("parse response: %w", err)}
	}
	if page.Records == nil {
		c.logger.Error("response missing records", "stage", "list", "url", tableURL, "body", string(body))
		return nil, &domain.UpstreamError{Upstream: upstreamName, Stage: "list", StatusCode: resp.StatusCode, Body: string(body), Err: errors.New("parse response: no records field")}
	}
	return &page, nil
}
