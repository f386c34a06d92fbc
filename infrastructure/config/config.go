// Package config provides configuration loading and parsing for rundigest.
package config

import (
	"errors"
	"time"
)

// Config is the top-level application configuration.
type Config struct {
	// API configures the Portia Cloud record source.
	API APIConfig `yaml:"api"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Analyze tunes the metrics engine.
	Analyze AnalyzeConfig `yaml:"analyze"`

	// Digest configures digest rendering.
	Digest DigestConfig `yaml:"digest"`
}

// APIConfig configures the Portia Cloud API client.
type APIConfig struct {
	// BaseURL is the API root.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates requests. Supports ${VAR} expansion.
	APIKey string `yaml:"api_key"`

	// OrgID scopes requests to one organization.
	OrgID string `yaml:"org_id"`

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the retry budget per query.
	MaxRetries int `yaml:"max_retries"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `yaml:"level"`

	// Format is the output format (json or console).
	Format string `yaml:"format"`
}

// AnalyzeConfig tunes the metrics engine.
type AnalyzeConfig struct {
	// FetchLimit is the per-query record limit.
	FetchLimit int `yaml:"fetch_limit"`

	// TopRuns is the fastest/slowest run listing length.
	TopRuns int `yaml:"top_runs"`

	// TopPlans is the fastest/slowest plan listing length.
	TopPlans int `yaml:"top_plans"`
}

// DigestConfig configures digest rendering.
type DigestConfig struct {
	// SubjectPrefix leads the digest email subject.
	SubjectPrefix string `yaml:"subject_prefix"`
}

// Configuration errors.
var (
	// ErrConfigNotFound is returned when the config file does not exist.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidFormat is returned for unparseable configuration.
	ErrInvalidFormat = errors.New("invalid config format")

	// ErrMissingCredentials is returned when API credentials are absent.
	ErrMissingCredentials = errors.New("missing API credentials")
)

// Default returns a configuration with sensible defaults.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:    "https://api.portialabs.ai",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Analyze: AnalyzeConfig{
			FetchLimit: 1000,
			TopRuns:    5,
			TopPlans:   5,
		},
		Digest: DigestConfig{
			SubjectPrefix: "Portia Daily Digest",
		},
	}
}

// Validate checks that the configuration can drive the API source.
func (c *Config) Validate() error {
	if c.API.APIKey == "" {
		return errors.Join(ErrMissingCredentials, errors.New("api.api_key is required (or set PORTIA_API_KEY)"))
	}
	if c.API.OrgID == "" {
		return errors.Join(ErrMissingCredentials, errors.New("api.org_id is required (or set PORTIA_ORG_ID)"))
	}
	return nil
}
