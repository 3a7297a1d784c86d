// Package config loads govrec settings from an optional YAML file overlaid
// by GOVREC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix is prepended to every environment variable name.
	EnvPrefix = "govrec"

	// DefaultConfigPath is read when no --config flag is given. A missing
	// file at this path is not an error.
	DefaultConfigPath = ".govrec/config.yaml"
)

// Config holds all runtime settings
type Config struct {
	// DatabasePath is the SQLite file. Empty means discover .govrec/*.db in
	// the working directory.
	DatabasePath string `yaml:"database_path" envconfig:"DB_PATH"`

	// BusyTimeout is how long a writer waits for the database lock
	// Default: 5s, Range: 100ms-1m
	BusyTimeout time.Duration `yaml:"busy_timeout" envconfig:"BUSY_TIMEOUT"`

	// ListenAddr is the HTTP API address for `govrec serve`
	// Default: 127.0.0.1:8080
	ListenAddr string `yaml:"listen_addr" envconfig:"LISTEN_ADDR"`

	// ShutdownTimeout bounds graceful HTTP shutdown
	// Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`

	// RateLimit is the sustained mutations per second allowed per actor.
	// 0 disables limiting.
	// Default: 10
	RateLimit float64 `yaml:"rate_limit" envconfig:"RATE_LIMIT"`

	// RateBurst is the mutation burst allowed per actor
	// Default: 20
	RateBurst int `yaml:"rate_burst" envconfig:"RATE_BURST"`

	// PolicyPath is a YAML capability policy. Empty uses the built-in policy.
	PolicyPath string `yaml:"policy_path" envconfig:"POLICY_PATH"`

	// OverdueInterval is how often `govrec serve` checks for overdue review
	// flags. 0 disables the check.
	// Default: 1h
	OverdueInterval time.Duration `yaml:"overdue_interval" envconfig:"OVERDUE_INTERVAL"`

	Logging Logging `yaml:"logging"`
}

// Logging selects the slog handler. Environment overrides are
// GOVREC_LOGGING_LEVEL and GOVREC_LOGGING_FORMAT.
type Logging struct {
	// Level: debug, info, warn or error
	Level string `yaml:"level" envconfig:"LEVEL"`

	// Format: text or json
	Format string `yaml:"format" envconfig:"FORMAT"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		BusyTimeout:     5 * time.Second,
		ListenAddr:      "127.0.0.1:8080",
		ShutdownTimeout: 10 * time.Second,
		RateLimit:       10,
		RateBurst:       20,
		OverdueInterval: time.Hour,
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds a Config from defaults, then the YAML file at path (if it
// exists), then GOVREC_* environment variables, and validates the result.
// An explicitly named file that does not exist is an error; the default
// path is allowed to be absent.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// No config file: defaults plus environment
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration has valid values
func (c *Config) Validate() error {
	if c.BusyTimeout < 100*time.Millisecond || c.BusyTimeout > time.Minute {
		return fmt.Errorf("busy_timeout must be between 100ms and 1m (got %s)", c.BusyTimeout)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive (got %s)", c.ShutdownTimeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit cannot be negative (got %v)", c.RateLimit)
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("rate_burst must be at least 1 when rate_limit is set (got %d)", c.RateBurst)
	}
	if c.OverdueInterval < 0 {
		return fmt.Errorf("overdue_interval cannot be negative (got %s)", c.OverdueInterval)
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be 'text' or 'json' (got %q)", c.Logging.Format)
	}
	return nil
}

// String returns a human-readable representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{DatabasePath: %q, BusyTimeout: %s, ListenAddr: %s, RateLimit: %v/s burst %d, "+
			"PolicyPath: %q, Logging: %s/%s}",
		c.DatabasePath, c.BusyTimeout, c.ListenAddr, c.RateLimit, c.RateBurst,
		c.PolicyPath, c.Logging.Level, c.Logging.Format,
	)
}

// NewLogger builds the slog logger described by l, writing to w
func (l Logging) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(l.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("logging.level must be debug, info, warn or error (got %q)", s)
	}
	return level, nil
}
