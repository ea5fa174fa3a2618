package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override secrets from the config file
const (
	EnvAPIToken = "LEADFLOW_API_TOKEN"
	EnvAIAPIKey = "LEADFLOW_AI_API_KEY"
)

// AI providers
const (
	ProviderBackend = "backend"
	ProviderGemini  = "gemini"
)

// Config is the main configuration structure
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Storage StorageConfig `yaml:"storage"`
	Preview PreviewConfig `yaml:"preview"`
	Metrics MetricsConfig `yaml:"metrics"`
	AI      AIConfig      `yaml:"ai"`
	Logging LoggingConfig `yaml:"logging"`
}

// BackendConfig describes the outreach REST backend
type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`   // Bearer token, overridden by LEADFLOW_API_TOKEN
	Timeout time.Duration `yaml:"timeout"` // Default: 30s
}

// StorageConfig contains local draft storage settings
type StorageConfig struct {
	Path string `yaml:"path"`
}

// PreviewConfig contains preview server settings
type PreviewConfig struct {
	ListenAddr   string        `yaml:"listen_addr"` // Default: 127.0.0.1:8090
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	AllowedIPs   []string      `yaml:"allowed_ips"` // Empty allows everyone
}

// MetricsConfig contains Prometheus metrics settings
type MetricsConfig struct {
	Enabled    bool     `yaml:"enabled"`
	ListenAddr string   `yaml:"listen_addr"` // Default: :9090
	Path       string   `yaml:"path"`        // Default: /metrics
	AllowedIPs []string `yaml:"allowed_ips"` // IP addresses/CIDRs allowed to access metrics
}

// AIConfig selects the content enhancement provider
type AIConfig struct {
	Provider string        `yaml:"provider"` // backend, gemini
	APIKey   string        `yaml:"api_key"`  // Gemini only
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIToken); v != "" {
		c.Backend.Token = v
	}
	if v := os.Getenv(EnvAIAPIKey); v != "" {
		c.AI.APIKey = v
	}
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = 30 * time.Second
	}

	if c.Storage.Path == "" {
		c.Storage.Path = defaultStoragePath()
	}

	if c.Preview.ListenAddr == "" {
		c.Preview.ListenAddr = "127.0.0.1:8090"
	}
	if c.Preview.ReadTimeout == 0 {
		c.Preview.ReadTimeout = 30 * time.Second
	}
	if c.Preview.WriteTimeout == 0 {
		// Submissions run inside the request and may chain many backend calls
		c.Preview.WriteTimeout = 5 * time.Minute
	}

	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9090"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	if c.AI.Provider == "" {
		c.AI.Provider = ProviderBackend
	}
	if c.AI.Provider == ProviderGemini && c.AI.Model == "" {
		c.AI.Model = "gemini-2.5-flash"
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 60 * time.Second
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "leadflow", "drafts.db")
	}
	return filepath.Join(dir, "leadflow", "drafts.db")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.base_url must be an absolute URL: %q", c.Backend.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.base_url must use http or https, got %q", u.Scheme)
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout must not be negative")
	}

	switch c.AI.Provider {
	case ProviderBackend:
	case ProviderGemini:
		if c.AI.APIKey == "" {
			return fmt.Errorf("ai.api_key is required when ai.provider is gemini (or set %s)", EnvAIAPIKey)
		}
	default:
		return fmt.Errorf("invalid ai.provider: %s (must be backend or gemini)", c.AI.Provider)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging.format: %s (must be json or text)", c.Logging.Format)
	}

	return nil
}
