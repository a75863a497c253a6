// ABOUTME: Configuration file handling for pluginsync
// ABOUTME: Loads <home>/config.yaml and layers GRAFANA_* environment overrides on top
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// YesFlag skips confirmation prompts
var YesFlag bool

// Environment variables read by ApplyEnv
const (
	EnvURL      = "GRAFANA_URL"
	EnvToken    = "GRAFANA_TOKEN"
	EnvUser     = "GRAFANA_USER"
	EnvPassword = "GRAFANA_PASSWORD"
)

// Config is the on-disk configuration
type Config struct {
	Target    TargetConfig    `yaml:"target"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Rules     RulesConfig     `yaml:"rules"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// TargetConfig locates and authenticates against the instance
type TargetConfig struct {
	URL       string        `yaml:"url"`
	Token     string        `yaml:"token,omitempty"`
	BasicAuth string        `yaml:"basicAuth,omitempty"` // user:password
	Timeout   time.Duration `yaml:"timeout,omitempty"`
}

// CatalogConfig selects where desired plugins come from
type CatalogConfig struct {
	URL      string `yaml:"url,omitempty"`
	Manifest string `yaml:"manifest,omitempty"`
}

// RulesConfig holds default include/exclude rules
type RulesConfig struct {
	Include map[string][]string `yaml:"include,omitempty"`
	Exclude map[string][]string `yaml:"exclude,omitempty"`
}

// ReconcileConfig tunes the run loop
type ReconcileConfig struct {
	Delay   time.Duration `yaml:"delay"`
	Workers int           `yaml:"workers"`
}

// MetricsConfig lists metric names to collect
type MetricsConfig struct {
	Names []string `yaml:"names,omitempty"`
}

// Default returns a config with default values
func Default() *Config {
	return &Config{
		Target: TargetConfig{
			URL:     "http://localhost:3000",
			Timeout: 30 * time.Second,
		},
		Reconcile: ReconcileConfig{
			Delay:   time.Second,
			Workers: 1,
		},
	}
}

// Load reads the config at path. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Credentials may be present
	return os.WriteFile(path, data, 0600)
}

// ApplyEnv overlays GRAFANA_* variables read through getenv
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvURL); v != "" {
		c.Target.URL = v
	}
	if v := getenv(EnvToken); v != "" {
		c.Target.Token = v
	}
	user, password := getenv(EnvUser), getenv(EnvPassword)
	if user != "" {
		c.Target.BasicAuth = user + ":" + password
	}
}

// Credentials splits BasicAuth into user and password
func (t TargetConfig) Credentials() (user, password string) {
	user, password, _ = strings.Cut(t.BasicAuth, ":")
	return user, password
}

// Validate checks values that would otherwise fail deep inside a run
func (c *Config) Validate() error {
	if c.Reconcile.Delay < 0 {
		return errors.New("reconcile.delay must not be negative")
	}
	if c.Reconcile.Workers < 0 {
		return errors.New("reconcile.workers must not be negative")
	}
	if c.Target.Timeout < 0 {
		return errors.New("target.timeout must not be negative")
	}
	return nil
}
