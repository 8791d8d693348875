// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Paths    PathsConfig    `yaml:"paths"`
	Watch    WatchConfig    `yaml:"watch"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxUpload    int64         `yaml:"max_upload"` // bytes
}

// DatabaseConfig configures the processed-records database.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "memory"
	DSN    string `yaml:"dsn"`
}

// PathsConfig locates the specification directories and the inbox.
type PathsConfig struct {
	Catalogs string `yaml:"catalogs"`
	Packages string `yaml:"packages"`
	Senders  string `yaml:"senders"` // senders spec file
	Inbox    string `yaml:"inbox"`
}

// WatchConfig configures the inbox watcher.
type WatchConfig struct {
	Enabled bool          `yaml:"enabled"`
	Settle  time.Duration `yaml:"settle"` // quiet period before a file counts as complete
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

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	SAGE_CATALOGS_DIR    - Catalog specs directory (required)
//	SAGE_PACKAGES_DIR    - Package specs directory (required)
//	SAGE_SENDERS_FILE    - Senders spec file
//	SAGE_INBOX_DIR       - Inbox directory to watch
//	SAGE_DATABASE_DSN    - Database path (default: sage.db)
//	SAGE_SERVER_HOST     - Server host (default: 0.0.0.0)
//	SAGE_SERVER_PORT     - Server port (default: 8080)
//	SAGE_WATCH_ENABLED   - Enable the inbox watcher (default: false)
//	SAGE_LOG_LEVEL       - Log level: debug, info, warn, error (default: info)
//	SAGE_LOG_FORMAT      - Log format: json or console (default: json)
//	SAGE_METRICS_ENABLED - Enable /metrics endpoint (default: true)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment variables.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	if os.Getenv("SAGE_CATALOGS_DIR") != "" {
		return LoadFromEnv()
	}

	return nil, fmt.Errorf("no configuration found: provide config file or set SAGE_CATALOGS_DIR")
}

// applyEnvOverrides applies SAGE_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SAGE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SAGE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SAGE_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("SAGE_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	if v := os.Getenv("SAGE_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("SAGE_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	if v := os.Getenv("SAGE_CATALOGS_DIR"); v != "" {
		cfg.Paths.Catalogs = v
	}
	if v := os.Getenv("SAGE_PACKAGES_DIR"); v != "" {
		cfg.Paths.Packages = v
	}
	if v := os.Getenv("SAGE_SENDERS_FILE"); v != "" {
		cfg.Paths.Senders = v
	}
	if v := os.Getenv("SAGE_INBOX_DIR"); v != "" {
		cfg.Paths.Inbox = v
	}

	if v := os.Getenv("SAGE_WATCH_ENABLED"); v != "" {
		cfg.Watch.Enabled = parseBool(v)
	}
	if v := os.Getenv("SAGE_WATCH_SETTLE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Watch.Settle = d
		}
	}

	if v := os.Getenv("SAGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SAGE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("SAGE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("SAGE_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 60 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.MaxUpload == 0 {
		cfg.Server.MaxUpload = 64 << 20
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "sage.db"
	}

	if cfg.Watch.Settle == 0 {
		cfg.Watch.Settle = 2 * time.Second
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
	if cfg.Paths.Catalogs == "" {
		return fmt.Errorf("paths.catalogs is required")
	}
	if cfg.Paths.Packages == "" {
		return fmt.Errorf("paths.packages is required")
	}
	if cfg.Watch.Enabled && cfg.Paths.Inbox == "" {
		return fmt.Errorf("paths.inbox is required when watch.enabled is true")
	}
	switch cfg.Database.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("database.driver must be \"sqlite\" or \"memory\", got %q", cfg.Database.Driver)
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", cfg.Logging.Format)
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	return nil
}

// Addr returns the host:port the server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
