// Package config loads server configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Store modes.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSupabase = "supabase"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Supabase SupabaseConfig `yaml:"supabase"`
	Redis    RedisConfig    `yaml:"redis"`
	Audit    AuditConfig    `yaml:"audit"`
	Logging  LoggingConfig  `yaml:"logging"`

	// DevUsers seeds the static identity resolver in memory and postgres
	// modes. Ignored in supabase mode.
	DevUsers []DevUser `yaml:"dev_users"`
}

// DevUser is a statically configured identity for non-hosted modes.
type DevUser struct {
	Token string `yaml:"token"`
	ID    string `yaml:"id"`
	Email string `yaml:"email"`
}

// ServerConfig tunes the HTTP listener.
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr" env:"LISTEN_ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	CORSOrigins     []string      `yaml:"cors_origins" env:"CORS_ORIGINS"`
	RateLimitPerSec int           `yaml:"rate_limit_per_sec" env:"RATE_LIMIT_PER_SEC"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
}

// StoreConfig selects and configures the asset store backend.
type StoreConfig struct {
	Mode        string `yaml:"mode" env:"STORE_MODE"`
	PostgresDSN string `yaml:"postgres_dsn" env:"DATABASE_URL"`
}

// SupabaseConfig configures the hosted-backend mode.
type SupabaseConfig struct {
	URL        string `yaml:"url" env:"SUPABASE_URL"`
	ServiceKey string `yaml:"service_key" env:"SUPABASE_SERVICE_KEY"`
	JWTSecret  string `yaml:"jwt_secret" env:"SUPABASE_JWT_SECRET"`
}

// RedisConfig enables the catalog cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"REDIS_CACHE_TTL"`
}

// AuditConfig tunes the request audit log and the ledger sweep.
type AuditConfig struct {
	MaxEntries    int    `yaml:"max_entries" env:"AUDIT_MAX_ENTRIES"`
	File          string `yaml:"file" env:"AUDIT_FILE"`
	SweepSchedule string `yaml:"sweep_schedule" env:"AUDIT_SWEEP_SCHEDULE"`
	SweepDisabled bool   `yaml:"sweep_disabled" env:"AUDIT_SWEEP_DISABLED"`
}

// LoggingConfig tunes log output.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimitPerSec: 20,
			RateLimitBurst:  40,
		},
		Store: StoreConfig{Mode: StoreMemory},
		Redis: RedisConfig{CacheTTL: 30 * time.Second},
		Audit: AuditConfig{
			MaxEntries:    200,
			SweepSchedule: "*/5 * * * *",
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads configuration from path (skipped when empty or missing) and
// applies environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Fall through to environment-only configuration.
		default:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := envdecode.Decode(cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, fmt.Errorf("decoding environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	switch c.Store.Mode {
	case StoreMemory:
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("store mode %q requires a postgres DSN", c.Store.Mode)
		}
	case StoreSupabase:
		if c.Supabase.URL == "" || c.Supabase.ServiceKey == "" {
			return fmt.Errorf("store mode %q requires a Supabase URL and service key", c.Store.Mode)
		}
	default:
		return fmt.Errorf("unknown store mode %q", c.Store.Mode)
	}

	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server listen address must not be empty")
	}
	if c.Server.RateLimitPerSec < 0 || c.Server.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit values must not be negative")
	}
	return nil
}
