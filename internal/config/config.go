// Package config provides configuration loading and validation for the
// goshape service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	goshape "github.com/reoring/goshape"
)

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Schemas SchemasConfig `yaml:"schemas"`
	Input   InputConfig   `yaml:"input"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SchemasConfig configures the schema registry.
type SchemasConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"` // Reload when files in Dir change
}

// InputConfig bounds decoding of documents submitted for validation.
type InputConfig struct {
	MaxDepth      int    `yaml:"max_depth"`
	MaxBytes      int64  `yaml:"max_bytes"`
	DuplicateKeys string `yaml:"duplicate_keys"` // "error", "warn" or "ignore"
	Numbers       string `yaml:"numbers"`        // "float64" or "json_number"
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // default: /metrics
}

// DecodeOpt projects the input limits onto goshape decoding options.
func (in InputConfig) DecodeOpt() goshape.DecodeOpt {
	opt := goshape.DefaultDecodeOpt()
	opt.MaxDepth = in.MaxDepth
	opt.MaxBytes = in.MaxBytes
	switch in.DuplicateKeys {
	case "warn":
		opt.Strictness.OnDuplicateKey = goshape.Warn
	case "ignore":
		opt.Strictness.OnDuplicateKey = goshape.Ignore
	default:
		opt.Strictness.OnDuplicateKey = goshape.Error
	}
	if in.Numbers == "json_number" {
		opt.NumberMode = goshape.NumberJSONNumber
	}
	return opt
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadFromEnv creates configuration from defaults and environment variables.
//
// Environment variables:
//
//	GOSHAPE_SERVER_ADDR         - Listen address (default: :8080)
//	GOSHAPE_SCHEMAS_DIR         - Schema directory (default: schemas)
//	GOSHAPE_SCHEMAS_WATCH       - Reload schemas on change (default: false)
//	GOSHAPE_INPUT_MAX_DEPTH     - Nesting limit (default: 512)
//	GOSHAPE_INPUT_MAX_BYTES     - Body size limit (default: 1 MiB)
//	GOSHAPE_INPUT_DUPLICATE_KEYS - error, warn or ignore (default: error)
//	GOSHAPE_LOG_LEVEL           - debug, info, warn, error (default: info)
//	GOSHAPE_LOG_FORMAT          - json or console (default: json)
//	GOSHAPE_METRICS_ENABLED     - Expose the metrics endpoint (default: true)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	cfg.Metrics.Enabled = true

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadWithFallback loads path when it exists and falls back to the
// environment otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies GOSHAPE_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GOSHAPE_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("GOSHAPE_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("GOSHAPE_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	if v := os.Getenv("GOSHAPE_SCHEMAS_DIR"); v != "" {
		cfg.Schemas.Dir = v
	}
	if v := os.Getenv("GOSHAPE_SCHEMAS_WATCH"); v != "" {
		cfg.Schemas.Watch = parseBool(v)
	}

	if v := os.Getenv("GOSHAPE_INPUT_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Input.MaxDepth = n
		}
	}
	if v := os.Getenv("GOSHAPE_INPUT_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Input.MaxBytes = n
		}
	}
	if v := os.Getenv("GOSHAPE_INPUT_DUPLICATE_KEYS"); v != "" {
		cfg.Input.DuplicateKeys = v
	}
	if v := os.Getenv("GOSHAPE_INPUT_NUMBERS"); v != "" {
		cfg.Input.Numbers = v
	}

	if v := os.Getenv("GOSHAPE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("GOSHAPE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("GOSHAPE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("GOSHAPE_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	if cfg.Schemas.Dir == "" {
		cfg.Schemas.Dir = "schemas"
	}

	if cfg.Input.MaxDepth == 0 {
		cfg.Input.MaxDepth = goshape.DefaultMaxDepth
	}
	if cfg.Input.MaxBytes == 0 {
		cfg.Input.MaxBytes = 1 << 20
	}
	if cfg.Input.DuplicateKeys == "" {
		cfg.Input.DuplicateKeys = "error"
	}
	if cfg.Input.Numbers == "" {
		cfg.Input.Numbers = "float64"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	validDup := map[string]bool{"error": true, "warn": true, "ignore": true}
	if !validDup[cfg.Input.DuplicateKeys] {
		return fmt.Errorf("input.duplicate_keys must be 'error', 'warn' or 'ignore', got %q", cfg.Input.DuplicateKeys)
	}
	validNumbers := map[string]bool{"float64": true, "json_number": true}
	if !validNumbers[cfg.Input.Numbers] {
		return fmt.Errorf("input.numbers must be 'float64' or 'json_number', got %q", cfg.Input.Numbers)
	}
	if cfg.Input.MaxDepth < 0 {
		return fmt.Errorf("input.max_depth must not be negative")
	}
	if cfg.Input.MaxBytes < 0 {
		return fmt.Errorf("input.max_bytes must not be negative")
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}
	return nil
}
