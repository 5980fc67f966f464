// Package testutil holds fakes and helpers shared by package tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/lherron/tasklens/internal/copilot"
	"github.com/lherron/tasklens/internal/domain"
	"github.com/lherron/tasklens/internal/snapshot"
)

// TempStore opens a snapshot store in a temporary directory.
func TempStore(t *testing.T) *snapshot.Store {
	t.Helper()

	store, err := snapshot.Open(filepath.Join(t.TempDir(), "snapshot.db"))
	if err != nil {
		t.Fatalf("Failed to create snapshot store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Airtable is a fake Airtable API serving one table.
type Airtable struct {
	*httptest.Server
	Calls int32
}

// AirtableServer serves records for any table under /v0/. When status is
// not 200 it answers every request with status and body instead.
func AirtableServer(t *testing.T, records []domain.TaskRecord, status int, body string) *Airtable {
	t.Helper()
	fake := &Airtable{}
	fake.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fake.Calls, 1)
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(body))
			return
		}
		type apiRecord struct {
			ID          string         `json:"id"`
			CreatedTime string         `json:"createdTime"`
			Fields      map[string]any `json:"fields"`
		}
		out := struct {
			Records []apiRecord `json:"records"`
		}{Records: []apiRecord{}}
		for _, rec := range records {
			out.Records = append(out.Records, apiRecord{ID: rec.ID, CreatedTime: rec.CreatedTime, Fields: rec.Fields})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(fake.Close)
	return fake
}

// URL returns the base URL to configure as AIRTABLE_BASE_URL.
func (a *Airtable) URL() string {
	return a.Server.URL + "/v0"
}

// CopilotServer is a fake Copilot API. Every entity ID resolves to an
// entity with that ID; the workspace is "ws1".
func CopilotServer(t *testing.T, apiKey string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != apiKey {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"invalid api key"}`))
			return
		}
		path := strings.TrimPrefix(r.URL.Path, "/v1")
		var entity any
		switch {
		case path == "/workspaces":
			entity = domain.Workspace{ID: "ws1", Name: "Test Workspace"}
		case strings.HasPrefix(path, "/clients/"):
			entity = domain.Client{ID: strings.TrimPrefix(path, "/clients/"), GivenName: "Ada"}
		case strings.HasPrefix(path, "/companies/"):
			id := strings.TrimPrefix(path, "/companies/")
			entity = domain.Company{ID: id, Name: id + " Inc"}
		case strings.HasPrefix(path, "/internal-users/"):
			entity = domain.InternalUser{ID: strings.TrimPrefix(path, "/internal-users/")}
		default:
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(entity)
	}))
	t.Cleanup(server.Close)
	return server
}

// MintToken returns a session token for payload, as the portal would
// issue it for apiKey.
func MintToken(t *testing.T, apiKey string, payload domain.TokenPayload) string {
	t.Helper()
	token, err := copilot.EncodeToken(apiKey, payload, bytes.Repeat([]byte{1}, 16))
	if err != nil {
		t.Fatalf("Failed to mint token: %v", err)
	}
	return token
}

// TwoCompanies returns two tasks belonging to different companies.
func TwoCompanies() []domain.TaskRecord {
	return []domain.TaskRecord{
		{ID: "1", CreatedTime: "2024-01-01T00:00:00.000Z", Fields: map[string]any{"Company": "Acme", "Task": "Ship", "Status": "Todo"}},
		{ID: "2", CreatedTime: "2024-01-02T00:00:00.000Z", Fields: map[string]any{"Company": "Globex", "Task": "Sign", "Status": "Done"}},
	}
}

// AssertNoError asserts that an error is nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

// AssertStringContains asserts that a string contains a substring
func AssertStringContains(t *testing.T, str, substr string) {
	t.Helper()
	if !strings.Contains(str, substr) {
		t.Fatalf("Expected string to contain %q, got %q", substr, str)
	}
}

// AssertStringNotContains asserts that a string does not contain a substring
func AssertStringNotContains(t *testing.T, str, substr string) {
	t.Helper()
	if strings.Contains(str, substr) {
		t.Fatalf("Expected string not to contain %q, got %q", substr, str)
	}
}
