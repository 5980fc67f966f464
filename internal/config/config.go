package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/lherron/tasklens/internal/domain"
)

const (
	DefaultAirtableBaseURL = "https://api.airtable.com/v0"
	DefaultAirtableTable   = "Tasks"
	DefaultCopilotBaseURL  = "https://api.copilot.com/v1"
	DefaultAddr            = "127.0.0.1:3000"
	DefaultFrameAncestors  = "https://dashboard.copilot.com/ https://*.copilot.app/"
	DefaultHTTPTimeout     = 15 * time.Second

	SourceAirtable = "airtable"
	SourceSnapshot = "snapshot"

	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config represents the application configuration. It is built once at
// startup and passed by reference to every component.
type Config struct {
	AirtableAPIKey  string        `yaml:"airtable_api_key"`
	AirtableBaseID  string        `yaml:"airtable_base_id"`
	AirtableTable   string        `yaml:"airtable_table"`
	AirtableBaseURL string        `yaml:"airtable_base_url"`
	CopilotAPIKey   string        `yaml:"copilot_api_key"`
	CopilotBaseURL  string        `yaml:"copilot_base_url"`
	Addr            string        `yaml:"addr"`
	Env             string        `yaml:"env"`
	LogLevel        string        `yaml:"log_level"`
	Source          string        `yaml:"source"`
	SnapshotPath    string        `yaml:"snapshot_path"`
	FrameAncestors  string        `yaml:"frame_ancestors"`
	HTTPTimeout     time.Duration `yaml:"http_timeout"`
}

// Default returns a Config with every optional setting filled in and no
// credentials.
func Default() *Config {
	return &Config{
		AirtableTable:   DefaultAirtableTable,
		AirtableBaseURL: DefaultAirtableBaseURL,
		CopilotBaseURL:  DefaultCopilotBaseURL,
		Addr:            DefaultAddr,
		Env:             EnvProduction,
		LogLevel:        "info",
		Source:          SourceAirtable,
		FrameAncestors:  DefaultFrameAncestors,
		HTTPTimeout:     DefaultHTTPTimeout,
	}
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. ~/.config/tasklens/config.yaml (YAML)
//
// Missing credentials are not an error here; they surface as
// ConfigurationError from the component that needs them.
func Load() (*Config, error) {
	cfg := Default()

	// godotenv never overrides variables already set in the environment.
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	// YAML config is optional
	_ = loadYAMLConfig(cfg)

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.SnapshotPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.SnapshotPath = filepath.Join(homeDir, ".local", "share", "tasklens", "snapshot.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := getEnvOrFile("AIRTABLE_API_KEY", "AIRTABLE_API_KEY_FILE"); v != "" {
		cfg.AirtableAPIKey = v
	}
	if v := os.Getenv("AIRTABLE_BASE_ID"); v != "" {
		cfg.AirtableBaseID = v
	}
	if v := os.Getenv("AIRTABLE_TABLE"); v != "" {
		cfg.AirtableTable = v
	}
	if v := os.Getenv("AIRTABLE_BASE_URL"); v != "" {
		cfg.AirtableBaseURL = v
	}
	if v := getEnvOrFile("COPILOT_API_KEY", "COPILOT_API_KEY_FILE"); v != "" {
		cfg.CopilotAPIKey = v
	}
	if v := os.Getenv("COPILOT_BASE_URL"); v != "" {
		cfg.CopilotBaseURL = v
	}
	if v := os.Getenv("TASKLENS_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("TASKLENS_ENV"); v != "" {
		cfg.Env = v
	}
	if v := os.Getenv("TASKLENS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TASKLENS_SOURCE"); v != "" {
		cfg.Source = v
	}
	if v := os.Getenv("TASKLENS_SNAPSHOT_PATH"); v != "" {
		cfg.SnapshotPath = v
	}
	if v := os.Getenv("TASKLENS_FRAME_ANCESTORS"); v != "" {
		cfg.FrameAncestors = v
	}
	if v := os.Getenv("TASKLENS_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TASKLENS_HTTP_TIMEOUT %q: %w", v, err)
		}
		cfg.HTTPTimeout = d
	}
	return nil
}

// Validate checks settings that have a fixed set of legal values.
// Credentials are checked lazily by RequireAirtable and RequireCopilot.
func (c *Config) Validate() error {
	switch c.Source {
	case SourceAirtable, SourceSnapshot:
	default:
		return fmt.Errorf("invalid source %q: must be one of: %s, %s", c.Source, SourceAirtable, SourceSnapshot)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("invalid http timeout %s: must be positive", c.HTTPTimeout)
	}
	return nil
}

// RequireAirtable returns a ConfigurationError naming the first missing
// Airtable credential.
func (c *Config) RequireAirtable() error {
	if c.AirtableAPIKey == "" {
		return &domain.ConfigurationError{Name: "AIRTABLE_API_KEY"}
	}
	if c.AirtableBaseID == "" {
		return &domain.ConfigurationError{Name: "AIRTABLE_BASE_ID"}
	}
	return nil
}

// RequireCopilot returns a ConfigurationError when the Copilot API key is
// missing.
func (c *Config) RequireCopilot() error {
	if c.CopilotAPIKey == "" {
		return &domain.ConfigurationError{Name: "COPILOT_API_KEY"}
	}
	return nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, EnvDevelopment)
}

// loadYAMLConfig loads configuration from ~/.config/tasklens/config.yaml
func loadYAMLConfig(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(homeDir, ".config", "tasklens", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// getEnvOrFile gets an environment variable value, or reads it from a file
// if the _FILE variant is set
func getEnvOrFile(envVar, fileVar string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}

	if filePath := os.Getenv(fileVar); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}

	return ""
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
// Returns the path to .env.local if found, empty string otherwise.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}

		if dir == homeDir {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}
