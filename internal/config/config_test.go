package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lherron/tasklens/internal/domain"
)

// isolate points HOME and cwd at fresh temp dirs and clears every variable
// Load reads, so the developer's own environment cannot leak in.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, name := range []string{
		"AIRTABLE_API_KEY", "AIRTABLE_API_KEY_FILE", "AIRTABLE_BASE_ID", "AIRTABLE_TABLE",
		"AIRTABLE_BASE_URL", "COPILOT_API_KEY", "COPILOT_API_KEY_FILE", "COPILOT_BASE_URL",
		"TASKLENS_ADDR", "TASKLENS_ENV", "TASKLENS_LOG_LEVEL", "TASKLENS_SOURCE",
		"TASKLENS_SNAPSHOT_PATH", "TASKLENS_FRAME_ANCESTORS", "TASKLENS_HTTP_TIMEOUT",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}

	work := filepath.Join(home, "work")
	if err := os.MkdirAll(work, 0755); err != nil {
		t.Fatal(err)
	}
	oldCwd, _ := os.Getwd()
	t.Cleanup(func() { os.Chdir(oldCwd) })
	if err := os.Chdir(work); err != nil {
		t.Fatal(err)
	}
	return home
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AirtableTable != "Tasks" {
		t.Errorf("expected default table Tasks, got %q", cfg.AirtableTable)
	}
	if cfg.AirtableBaseURL != DefaultAirtableBaseURL {
		t.Errorf("expected default base URL, got %q", cfg.AirtableBaseURL)
	}
	if cfg.Source != SourceAirtable {
		t.Errorf("expected airtable source, got %q", cfg.Source)
	}
	if cfg.HTTPTimeout != DefaultHTTPTimeout {
		t.Errorf("expected default timeout, got %s", cfg.HTTPTimeout)
	}
	want := filepath.Join(home, ".local", "share", "tasklens", "snapshot.db")
	if cfg.SnapshotPath != want {
		t.Errorf("expected snapshot path %s, got %s", want, cfg.SnapshotPath)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".config", "tasklens")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	yamlConfig := "airtable_base_id: appFromYAML\nairtable_table: Backlog\nhttp_timeout: 3s\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yamlConfig), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AIRTABLE_BASE_ID", "appFromEnv")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AirtableBaseID != "appFromEnv" {
		t.Errorf("expected env to win, got %q", cfg.AirtableBaseID)
	}
	if cfg.AirtableTable != "Backlog" {
		t.Errorf("expected YAML table, got %q", cfg.AirtableTable)
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Errorf("expected YAML timeout 3s, got %s", cfg.HTTPTimeout)
	}
}

func TestLoad_EnvLocal(t *testing.T) {
	home := isolate(t)
	envLocal := "AIRTABLE_API_KEY=patFromDotenv\nCOPILOT_API_KEY=cpFromDotenv\n"
	if err := os.WriteFile(filepath.Join(home, ".env.local"), []byte(envLocal), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AirtableAPIKey != "patFromDotenv" {
		t.Errorf("expected key from .env.local, got %q", cfg.AirtableAPIKey)
	}
	if cfg.CopilotAPIKey != "cpFromDotenv" {
		t.Errorf("expected copilot key from .env.local, got %q", cfg.CopilotAPIKey)
	}
}

func TestLoad_KeyFromFile(t *testing.T) {
	home := isolate(t)
	keyPath := filepath.Join(home, "airtable.key")
	if err := os.WriteFile(keyPath, []byte("patFromFile\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AIRTABLE_API_KEY_FILE", keyPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AirtableAPIKey != "patFromFile" {
		t.Errorf("expected trimmed key from file, got %q", cfg.AirtableAPIKey)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	isolate(t)
	t.Setenv("TASKLENS_SOURCE", "postgres")
	if _, err := Load(); err == nil {
		t.Error("expected error for unknown source")
	}

	t.Setenv("TASKLENS_SOURCE", "")
	os.Unsetenv("TASKLENS_SOURCE")
	t.Setenv("TASKLENS_HTTP_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Error("expected error for unparseable timeout")
	}
}

func TestRequireAirtable(t *testing.T) {
	cfg := Default()

	var cfgErr *domain.ConfigurationError
	err := cfg.RequireAirtable()
	if !errors.As(err, &cfgErr) || err.Error() != "AIRTABLE_API_KEY is not set" {
		t.Fatalf("expected missing API key, got %v", err)
	}

	cfg.AirtableAPIKey = "pat"
	err = cfg.RequireAirtable()
	if !errors.As(err, &cfgErr) || err.Error() != "AIRTABLE_BASE_ID is not set" {
		t.Fatalf("expected missing base ID, got %v", err)
	}

	cfg.AirtableBaseID = "app"
	if err := cfg.RequireAirtable(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRequireCopilot(t *testing.T) {
	cfg := Default()
	if err := cfg.RequireCopilot(); err == nil || err.Error() != "COPILOT_API_KEY is not set" {
		t.Errorf("expected missing copilot key, got %v", err)
	}
	cfg.CopilotAPIKey = "cp"
	if err := cfg.RequireCopilot(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFindEnvLocal_InParentDir(t *testing.T) {
	tmpDir := t.TempDir()
	childDir := filepath.Join(tmpDir, "child")
	if err := os.Mkdir(childDir, 0755); err != nil {
		t.Fatal(err)
	}
	envPath := filepath.Join(tmpDir, ".env.local")
	if err := os.WriteFile(envPath, []byte("TEST=parent"), 0644); err != nil {
		t.Fatal(err)
	}

	oldCwd, _ := os.Getwd()
	defer os.Chdir(oldCwd)
	if err := os.Chdir(childDir); err != nil {
		t.Fatal(err)
	}

	result := findEnvLocal()
	// Resolve symlinks for comparison (macOS /var -> /private/var)
	expectedResolved, _ := filepath.EvalSymlinks(envPath)
	resultResolved, _ := filepath.EvalSymlinks(result)
	if resultResolved != expectedResolved {
		t.Errorf("expected %s, got %s", expectedResolved, resultResolved)
	}
}
