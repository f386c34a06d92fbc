package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader loads application configuration from files.
type Loader struct {
	// ExpandEnv enables environment variable expansion.
	ExpandEnv bool
	// StrictEnv fails if referenced env vars are missing.
	StrictEnv bool
}

// NewLoader creates a new configuration loader with default settings.
func NewLoader() *Loader {
	return &Loader{
		ExpandEnv: true,
		StrictEnv: false,
	}
}

// LoaderOption configures the loader.
type LoaderOption func(*Loader)

// WithEnvExpansion enables or disables environment variable expansion.
func WithEnvExpansion(enabled bool) LoaderOption {
	return func(l *Loader) {
		l.ExpandEnv = enabled
	}
}

// WithStrictEnv enables strict environment variable checking.
func WithStrictEnv(enabled bool) LoaderOption {
	return func(l *Loader) {
		l.StrictEnv = enabled
	}
}

// NewLoaderWithOptions creates a loader with the specified options.
func NewLoaderWithOptions(opts ...LoaderOption) *Loader {
	l := NewLoader()
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFile loads configuration from a YAML file path, overlaying defaults
// and finally environment credentials for any value still unset.
func (l *Loader) LoadFile(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to access config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	return l.Load(f)
}

// Load loads configuration from a reader.
func (l *Loader) Load(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if l.ExpandEnv {
		expanded, err := (&envExpander{strict: l.StrictEnv}).Expand(string(data))
		if err != nil {
			return nil, err
		}
		data = []byte(expanded)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	cfg.applyEnvCredentials()
	return &cfg, nil
}

// FromEnv builds a configuration from defaults and environment variables
// alone, for running without a config file.
func FromEnv() *Config {
	cfg := Default()
	cfg.applyEnvCredentials()
	return &cfg
}

// applyEnvCredentials fills unset credential and digest values from the
// conventional environment variables.
func (c *Config) applyEnvCredentials() {
	if c.API.APIKey == "" {
		c.API.APIKey = os.Getenv("PORTIA_API_KEY")
	}
	if c.API.OrgID == "" {
		c.API.OrgID = os.Getenv("PORTIA_ORG_ID")
	}
	if v := os.Getenv("PORTIA_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("DIGEST_SUBJECT_PREFIX"); v != "" {
		c.Digest.SubjectPrefix = v
	}
}
