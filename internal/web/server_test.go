package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/lherron/tasklens/internal/airtable"
	"github.com/lherron/tasklens/internal/config"
	"github.com/lherron/tasklens/internal/copilot"
	"github.com/lherron/tasklens/internal/domain"
	"github.com/lherron/tasklens/internal/logging"
	"github.com/lherron/tasklens/internal/session"
	"github.com/lherron/tasklens/internal/tasks"
	"github.com/lherron/tasklens/internal/testutil"
)

const copilotKey = "copilot-test-key"

type harness struct {
	cfg      *config.Config
	airtable *testutil.Airtable
	server   *httptest.Server
}

func newHarness(t *testing.T, records []domain.TaskRecord, status int, body string, mutate func(*config.Config)) *harness {
	t.Helper()

	fake := testutil.AirtableServer(t, records, status, body)
	copilotServer := testutil.CopilotServer(t, copilotKey)

	cfg := config.Default()
	cfg.AirtableAPIKey = "airtable-test-key"
	cfg.AirtableBaseID = "appTest"
	cfg.AirtableBaseURL = fake.URL()
	cfg.CopilotAPIKey = copilotKey
	cfg.CopilotBaseURL = copilotServer.URL + "/v1"
	if mutate != nil {
		mutate(cfg)
	}

	logger := logging.Discard()
	source := airtable.NewClient(airtable.Config{
		BaseURL:   cfg.AirtableBaseURL,
		BaseID:    cfg.AirtableBaseID,
		APIKey:    cfg.AirtableAPIKey,
		ConfigErr: cfg.RequireAirtable(),
		Logger:    logger,
	})
	service := tasks.NewService(source, cfg.AirtableTable, logger)
	resolver := session.NewResolver(copilot.NewClient(copilot.Config{
		BaseURL: cfg.CopilotBaseURL,
		APIKey:  cfg.CopilotAPIKey,
		Logger:  logger,
	}), cfg.RequireCopilot(), logger)

	srv := httptest.NewServer(NewServer(cfg, service, resolver, logger).Handler())
	t.Cleanup(srv.Close)
	return &harness{cfg: cfg, airtable: fake, server: srv}
}

func (h *harness) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(h.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func (h *harness) token(t *testing.T, companyID string) string {
	t.Helper()
	return url.QueryEscape(testutil.MintToken(t, copilotKey, domain.TokenPayload{
		WorkspaceID: "ws1",
		ClientID:    "c1",
		CompanyID:   companyID,
	}))
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil, http.StatusOK, "", nil)

	resp, body := h.get(t, "/v1/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["ok"] != true {
		t.Errorf("ok = %v, want true", out["ok"])
	}
}

func TestAPITasks_ReturnsAllRecords(t *testing.T) {
	h := newHarness(t, testutil.TwoCompanies(), http.StatusOK, "", nil)

	resp, body := h.get(t, "/api/tasks")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var out struct {
		Tasks []map[string]any `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(out.Tasks))
	}
	if out.Tasks[0]["id"] != "1" || out.Tasks[0]["Company"] != "Acme" {
		t.Errorf("first task = %v", out.Tasks[0])
	}
}

func TestAPITasks_EmptyTable(t *testing.T) {
	h := newHarness(t, nil, http.StatusOK, "", nil)

	resp, body := h.get(t, "/api/tasks")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if strings.TrimSpace(body) != `{"tasks":[]}` {
		t.Errorf("body = %s, want empty task list", body)
	}
}

func TestAPITasks_MissingAPIKey(t *testing.T) {
	h := newHarness(t, testutil.TwoCompanies(), http.StatusOK, "", func(cfg *config.Config) {
		cfg.AirtableAPIKey = ""
	})

	resp, body := h.get(t, "/api/tasks")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["message"] != "AIRTABLE_API_KEY is not set" {
		t.Errorf("message = %q", out["message"])
	}
	if h.airtable.Calls != 0 {
		t.Errorf("airtable called %d times, want 0", h.airtable.Calls)
	}
}

func TestAPITasks_UpstreamFailure(t *testing.T) {
	h := newHarness(t, nil, http.StatusForbidden, `{"error":"NOT_AUTHORIZED"}`, nil)

	resp, body := h.get(t, "/api/tasks")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	testutil.AssertStringContains(t, out["message"], "403")
	testutil.AssertStringContains(t, out["message"], "NOT_AUTHORIZED")
}

func TestAPIUsers_Anonymous(t *testing.T) {
	h := newHarness(t, nil, http.StatusOK, "", nil)

	resp, body := h.get(t, "/api/users")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, body)
	}
	if strings.TrimSpace(body) != `{}` {
		t.Errorf("body = %s, want {}", body)
	}
}

func TestAPIUsers_WithToken(t *testing.T) {
	h := newHarness(t, nil, http.StatusOK, "", nil)

	resp, body := h.get(t, "/api/users?token="+h.token(t, "Acme"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, body)
	}
	var out domain.Identity
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Workspace == nil || out.Workspace.ID != "ws1" {
		t.Errorf("workspace = %+v", out.Workspace)
	}
	if out.Company == nil || out.Company.ID != "Acme" {
		t.Errorf("company = %+v", out.Company)
	}
	if out.InternalUser != nil {
		t.Errorf("internalUser = %+v, want absent", out.InternalUser)
	}
	testutil.AssertStringNotContains(t, body, "internalUser")
}

func TestAPIUsers_BearerHeader(t *testing.T) {
	h := newHarness(t, nil, http.StatusOK, "", nil)

	token, _ := url.QueryUnescape(h.token(t, "Acme"))
	req, _ := http.NewRequest(http.MethodGet, h.server.URL+"/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAPIUsers_BadToken(t *testing.T) {
	h := newHarness(t, nil, http.StatusOK, "", nil)

	resp, body := h.get(t, "/api/users?token=zz")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["error"] != "Failed to fetch session data" {
		t.Errorf("error = %q", out["error"])
	}
	if out["details"] == "" {
		t.Error("details is empty")
	}
}

func TestAPIUsers_MissingCopilotKey(t *testing.T) {
	h := newHarness(t, nil, http.StatusOK, "", func(cfg *config.Config) {
		cfg.CopilotAPIKey = ""
	})

	_, body := h.get(t, "/api/users")
	testutil.AssertStringContains(t, body, "COPILOT_API_KEY is not set")
}

func TestPortal_ScopesToCompany(t *testing.T) {
	h := newHarness(t, testutil.TwoCompanies(), http.StatusOK, "", nil)

	resp, body := h.get(t, "/?token="+h.token(t, "Acme"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	testutil.AssertStringContains(t, body, "Ship")
	testutil.AssertStringNotContains(t, body, "Globex")
	testutil.AssertStringNotContains(t, body, `class="error"`)
}

func TestPortal_Query(t *testing.T) {
	records := append(testutil.TwoCompanies(), domain.TaskRecord{
		ID: "3", Fields: map[string]any{"Company": "Acme", "Task": "Invoice"},
	})
	h := newHarness(t, records, http.StatusOK, "", nil)

	_, body := h.get(t, "/?q=SHIP&token="+h.token(t, "Acme"))
	testutil.AssertStringContains(t, body, "Ship")
	testutil.AssertStringNotContains(t, body, "Invoice")
	testutil.AssertStringContains(t, body, `value="SHIP"`)
}

func TestPortal_MissingToken(t *testing.T) {
	h := newHarness(t, testutil.TwoCompanies(), http.StatusOK, "", nil)

	resp, body := h.get(t, "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	testutil.AssertStringContains(t, body, "client portal")
	testutil.AssertStringNotContains(t, body, "Ship")
}

func TestPortal_UpstreamBodyNotShown(t *testing.T) {
	h := newHarness(t, nil, http.StatusForbidden, `{"error":"NOT_AUTHORIZED"}`, nil)

	_, body := h.get(t, "/?token="+h.token(t, "Acme"))
	testutil.AssertStringContains(t, body, `class="error"`)
	testutil.AssertStringNotContains(t, body, "NOT_AUTHORIZED")
	testutil.AssertStringNotContains(t, body, "search-input")
}

func TestInternal_EmptyTable(t *testing.T) {
	h := newHarness(t, nil, http.StatusOK, "", nil)

	resp, body := h.get(t, "/internal")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	testutil.AssertStringNotContains(t, body, `class="error"`)
	testutil.AssertStringContains(t, body, "search-input")
	testutil.AssertStringContains(t, body, "No tasks")
}

func TestInternal_ShowsEveryCompany(t *testing.T) {
	h := newHarness(t, testutil.TwoCompanies(), http.StatusOK, "", nil)

	_, body := h.get(t, "/internal")
	testutil.AssertStringContains(t, body, "Acme")
	testutil.AssertStringContains(t, body, "Globex")
}

func TestInternal_MissingAPIKeyShowsMessage(t *testing.T) {
	h := newHarness(t, nil, http.StatusOK, "", func(cfg *config.Config) {
		cfg.AirtableAPIKey = ""
	})

	_, body := h.get(t, "/internal")
	testutil.AssertStringContains(t, body, "AIRTABLE_API_KEY is not set")
}

func TestContentSecurityPolicy(t *testing.T) {
	t.Run("production", func(t *testing.T) {
		h := newHarness(t, nil, http.StatusOK, "", nil)
		resp, body := h.get(t, "/internal")
		csp := resp.Header.Get("Content-Security-Policy")
		testutil.AssertStringContains(t, csp, "frame-ancestors "+config.DefaultFrameAncestors+";")
		testutil.AssertStringContains(t, body, `nonce="`)
	})

	t.Run("development", func(t *testing.T) {
		h := newHarness(t, nil, http.StatusOK, "", func(cfg *config.Config) {
			cfg.Env = config.EnvDevelopment
		})
		resp, body := h.get(t, "/internal")
		if csp := resp.Header.Get("Content-Security-Policy"); csp != "" {
			t.Errorf("CSP = %q, want none", csp)
		}
		testutil.AssertStringNotContains(t, body, `nonce="`)
	})
}

func TestContentSecurityPolicyValue_SingleLine(t *testing.T) {
	got := contentSecurityPolicyValue("https://example.com")
	if strings.Contains(got, "\n") {
		t.Errorf("policy spans lines: %q", got)
	}
	testutil.AssertStringContains(t, got, "frame-ancestors https://example.com;")
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		target string
		header string
		want   string
	}{
		{"query", "/?token=abc", "", "abc"},
		{"header", "/", "Bearer xyz", "xyz"},
		{"query wins", "/?token=abc", "Bearer xyz", "abc"},
		{"other scheme", "/", "Basic xyz", ""},
		{"none", "/", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := bearerToken(r); got != tt.want {
				t.Errorf("bearerToken = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewTaskView(t *testing.T) {
	view := newTaskView(domain.TaskRecord{
		ID: "rec1",
		Fields: map[string]any{
			"Company": "Acme",
			"Task":    "Ship",
			"Notes":   "hidden but searchable",
		},
	})
	if len(view.Fields) != len(domain.DisplayFields) {
		t.Fatalf("got %d fields, want %d", len(view.Fields), len(domain.DisplayFields))
	}
	for _, f := range view.Fields {
		if f.Key == "Notes" {
			t.Error("Notes displayed")
		}
	}
	testutil.AssertStringContains(t, view.Search, "hidden but searchable")
	testutil.AssertStringContains(t, view.Search, "rec1")
}

func TestNewTaskView_DescriptionMarkdown(t *testing.T) {
	view := newTaskView(domain.TaskRecord{
		ID: "rec1",
		Fields: map[string]any{
			"Task":        "**not markdown**",
			"Description": "Ship **today**<script>alert(1)</script>",
		},
	})
	for _, f := range view.Fields {
		switch f.Key {
		case "Description":
			testutil.AssertStringContains(t, string(f.HTML), "<strong>today</strong>")
			testutil.AssertStringNotContains(t, string(f.HTML), "<script>")
		case "Task":
			if f.HTML != "" {
				t.Errorf("Task rendered as HTML: %q", f.HTML)
			}
		}
	}
}

func TestPortal_RendersDescriptionMarkdown(t *testing.T) {
	records := []domain.TaskRecord{
		{ID: "1", Fields: map[string]any{"Company": "Acme", "Task": "Ship", "Description": "see *notes*"}},
	}
	h := newHarness(t, records, http.StatusOK, "", nil)

	_, body := h.get(t, "/internal")
	testutil.AssertStringContains(t, body, "<em>notes</em>")
}
