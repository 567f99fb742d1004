// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FitTrack Contributors

// Package config loads service configuration.
//
// Sources, lowest precedence first: flag defaults, the YAML config file,
// flags set on the command line, then environment variables.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/fittrack/accounts/internal/logging"
)

// Storage backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Flag defaults.
const (
	DefaultStore         = StoreMemory
	DefaultHTTPAddr      = "127.0.0.1:8080"
	DefaultMetricsAddr   = "127.0.0.1:9100"
	DefaultLogFormat     = "json"
	DefaultLogLevel      = "info"
	DefaultSessionTTL    = 24 * time.Hour
	DefaultMaxBodyBytes  = int64(1 << 20)
	DefaultPurgeInterval = 10 * time.Minute
)

// Config is the resolved service configuration.
type Config struct {
	Store         string        `koanf:"store"          env:"ACCOUNTS_STORE"`
	DatabaseURL   string        `koanf:"database-url"   env:"DATABASE_URL"`
	SQLitePath    string        `koanf:"sqlite-path"    env:"ACCOUNTS_SQLITE_PATH"`
	HTTPAddr      string        `koanf:"http-addr"      env:"ACCOUNTS_HTTP_ADDR"`
	MetricsAddr   string        `koanf:"metrics-addr"   env:"ACCOUNTS_METRICS_ADDR"`
	LogFormat     string        `koanf:"log-format"     env:"ACCOUNTS_LOG_FORMAT"`
	LogLevel      string        `koanf:"log-level"      env:"ACCOUNTS_LOG_LEVEL"`
	SessionTTL    time.Duration `koanf:"session-ttl"    env:"ACCOUNTS_SESSION_TTL"`
	CookieSecure  bool          `koanf:"cookie-secure"  env:"ACCOUNTS_COOKIE_SECURE"`
	MaxBodyBytes  int64         `koanf:"max-body-bytes" env:"ACCOUNTS_MAX_BODY_BYTES"`
	AutoMigrate   bool          `koanf:"auto-migrate"   env:"ACCOUNTS_AUTO_MIGRATE"`
	PurgeInterval time.Duration `koanf:"purge-interval" env:"ACCOUNTS_PURGE_INTERVAL"`
}

// RegisterFlags declares every config key on fs with its default.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("store", DefaultStore, "storage backend (memory, postgres or sqlite)")
	fs.String("database-url", "", "PostgreSQL URL for --store=postgres")
	fs.String("sqlite-path", "", "database file for --store=sqlite")
	fs.String("http-addr", DefaultHTTPAddr, "API listen address")
	fs.String("metrics-addr", DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", DefaultLogFormat, "log format (json or text)")
	fs.String("log-level", DefaultLogLevel, "log level (debug, info, warn or error)")
	fs.Duration("session-ttl", DefaultSessionTTL, "how long a login stays valid")
	fs.Bool("cookie-secure", false, "mark the session cookie Secure")
	fs.Int64("max-body-bytes", DefaultMaxBodyBytes, "request body size limit")
	fs.Bool("auto-migrate", true, "apply pending migrations on startup (postgres)")
	fs.Duration("purge-interval", DefaultPurgeInterval, "expired session sweep interval (0 = disabled)")
}

// Load resolves the configuration. path may be empty. environ replaces the
// process environment when non-nil.
func Load(path string, flags *pflag.FlagSet, environ map[string]string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	// Unchanged flags only fill keys the file left unset.
	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "merged").Wrap(err)
	}

	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "environment").Wrap(err)
	}

	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return invalid("database-url", "database-url (or DATABASE_URL) is required for the postgres store")
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return invalid("sqlite-path", "sqlite-path is required for the sqlite store")
		}
	default:
		return invalid("store", "store must be memory, postgres or sqlite, got %q", c.Store)
	}

	if c.HTTPAddr == "" {
		return invalid("http-addr", "http-addr is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return invalid("log-format", "log-format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return invalid("log-level", "log-level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	if c.SessionTTL <= 0 {
		return invalid("session-ttl", "session-ttl must be positive, got %s", c.SessionTTL)
	}
	if c.MaxBodyBytes <= 0 {
		return invalid("max-body-bytes", "max-body-bytes must be positive, got %d", c.MaxBodyBytes)
	}
	if c.PurgeInterval < 0 {
		return invalid("purge-interval", "purge-interval cannot be negative, got %s", c.PurgeInterval)
	}
	return nil
}

func invalid(key, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
}
