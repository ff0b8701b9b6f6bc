// Package config loads facetforge configuration from a YAML file, an
// optional .env file and environment variables, in that order of increasing
// precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"facetforge/internal/llm"
	"facetforge/internal/logging"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "facetforge.yaml"

// DefaultEnvFile is the dotenv file loaded before environment overrides.
const DefaultEnvFile = ".env"

// Config holds all facetforge configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM configures the Gemini backend.
	LLM LLMConfig `yaml:"llm"`

	// Generation configures pacing and retries of the resilient client.
	Generation GenerationConfig `yaml:"generation"`

	// Server configures the MCP server.
	Server ServerConfig `yaml:"server"`

	Journal JournalConfig `yaml:"journal"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`

	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the generative backend.
type LLMConfig struct {
	APIKey      string  `yaml:"api_key" env:"GEMINI_API_KEY"`
	Model       string  `yaml:"model" env:"GEMINI_MODEL"`
	BaseURL     string  `yaml:"base_url" env:"GEMINI_BASE_URL"`
	Timeout     string  `yaml:"timeout"`
	Temperature float32 `yaml:"temperature"`
	JSONMode    bool    `yaml:"json_mode"`
}

// GenerationConfig configures the resilient client.
type GenerationConfig struct {
	// MinInterval spaces backend calls; the default is 5s. An explicit 0s
	// disables pacing and is meant for tests against a fake backend only:
	// against the real API it invites rate limiting.
	MinInterval    string `yaml:"min_interval"`
	RetryBaseDelay string `yaml:"retry_base_delay"`
	MaxRetries     int    `yaml:"max_retries"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	// MaxConcurrentCalls bounds in-flight tool calls.
	MaxConcurrentCalls int64 `yaml:"max_concurrent_calls"`
}

// JournalConfig configures the SQLite run journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" env:"FACETFORGE_JOURNAL_PATH"`
}

// MetricsConfig configures the Prometheus endpoint. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" env:"FACETFORGE_METRICS_ADDR"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled bool   `yaml:"enabled"`
	File    string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "facetforge",
		Version: "0.1.0",

		LLM: LLMConfig{
			Model:       llm.DefaultGeminiModel,
			Timeout:     "120s",
			Temperature: 0.7,
			JSONMode:    true,
		},

		Generation: GenerationConfig{
			MinInterval:    "5s",
			RetryBaseDelay: "2s",
			MaxRetries:     3,
		},

		Server: ServerConfig{
			MaxConcurrentCalls: 1,
		},

		Journal: JournalConfig{
			Enabled: true,
			Path:    filepath.Join(".facetforge", "runs.db"),
		},

		Tracing: TracingConfig{
			File: filepath.Join(".facetforge", "traces.jsonl"),
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at path, then DefaultEnvFile, then the process
// environment. A missing file at either path is not an error.
func Load(path string) (*Config, error) {
	return LoadFiles(path, DefaultEnvFile)
}

// LoadFiles is Load with an explicit dotenv file. An empty envFile skips it.
func LoadFiles(path, envFile string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if envFile != "" {
		// godotenv never overrides variables already set in the process.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML. The API key is never written.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := *c
	out.LLM.APIKey = ""
	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides copies set, non-empty environment variables over the
// loaded values.
func (c *Config) applyEnvOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	return nil
}

// Validate validates the configuration. A missing API key yields
// llm.ErrMissingAPIKey.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return llm.ErrMissingAPIKey
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %w", err)
	}
	if c.Generation.MaxRetries < 0 {
		return fmt.Errorf("invalid generation.max_retries: %d", c.Generation.MaxRetries)
	}
	if c.Server.MaxConcurrentCalls < 0 {
		return fmt.Errorf("invalid server.max_concurrent_calls: %d", c.Server.MaxConcurrentCalls)
	}
	return nil
}

// GetLLMTimeout returns the per-call backend timeout.
func (c *Config) GetLLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 120*time.Second)
}

// GetMinInterval returns the minimum spacing between backend calls.
func (c *Config) GetMinInterval() time.Duration {
	return parseDuration(c.Generation.MinInterval, 5*time.Second)
}

// GetRetryBaseDelay returns the retry backoff unit.
func (c *Config) GetRetryBaseDelay() time.Duration {
	return parseDuration(c.Generation.RetryBaseDelay, 2*time.Second)
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}

// PacingDisabled reports whether min_interval is explicitly zero.
func (c *Config) PacingDisabled() bool {
	d, err := time.ParseDuration(c.Generation.MinInterval)
	return err == nil && d == 0
}

// ClientConfig returns the resilient client settings.
func (c *Config) ClientConfig() llm.ClientConfig {
	interval := c.GetMinInterval()
	if c.PacingDisabled() {
		interval = -1
	}
	return llm.ClientConfig{
		MinInterval:    interval,
		RetryBaseDelay: c.GetRetryBaseDelay(),
		MaxRetries:     c.Generation.MaxRetries,
	}
}

// GeminiConfig returns the backend settings.
func (c *Config) GeminiConfig() llm.GeminiConfig {
	g := llm.DefaultGeminiConfig(c.LLM.APIKey)
	if c.LLM.Model != "" {
		g.Model = c.LLM.Model
	}
	g.BaseURL = c.LLM.BaseURL
	g.Timeout = c.GetLLMTimeout()
	if c.LLM.Temperature > 0 {
		g.Temperature = c.LLM.Temperature
	}
	g.JSONMode = c.LLM.JSONMode
	return g
}
