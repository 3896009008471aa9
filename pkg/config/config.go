// Package config loads the server configuration from defaults and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Snapshot backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendGCS      = "gcs"
	BackendMemory   = "memory"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Profiling     ProfilingConfig     `mapstructure:"profiling"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Snapshot      SnapshotConfig      `mapstructure:"snapshot"`
	Insight       InsightConfig       `mapstructure:"insight"`
}

type ServerConfig struct {
	Host               string `mapstructure:"host"`
	Port               string `mapstructure:"port"`
	RateLimitPerSecond int    `mapstructure:"rate_limit_per_second"`
	RateLimitBurst     int    `mapstructure:"rate_limit_burst"`
	// MaxBodyBytes bounds a single RPC request, uploads included.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

type ProfilingConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    string `mapstructure:"port"`
}

type ObservabilityConfig struct {
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	LogLevel       string `mapstructure:"log_level"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN renders a postgres connection URL.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

type SnapshotConfig struct {
	Backend    string `mapstructure:"backend"`
	FilePath   string `mapstructure:"file_path"`
	SQLitePath string `mapstructure:"sqlite_path"`
	GCSBucket  string `mapstructure:"gcs_bucket"`
	GCSObject  string `mapstructure:"gcs_object"`
	MaxBytes   int64  `mapstructure:"max_bytes"`
	Key        string `mapstructure:"key"`
}

type InsightConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Language string        `mapstructure:"language"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.rate_limit_per_second", 20)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("server.max_body_bytes", 32<<20)

	v.SetDefault("profiling.enabled", false)
	v.SetDefault("profiling.port", "6060")

	v.SetDefault("observability.metrics_enabled", true)
	v.SetDefault("observability.log_level", "info")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "sales_dashboard")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("snapshot.backend", BackendFile)
	v.SetDefault("snapshot.file_path", "data/snapshot.json")
	v.SetDefault("snapshot.sqlite_path", "data/snapshot.db")
	v.SetDefault("snapshot.gcs_bucket", "")
	v.SetDefault("snapshot.gcs_object", "sales-dashboard/snapshot.json")
	v.SetDefault("snapshot.max_bytes", 5<<20)
	v.SetDefault("snapshot.key", "default")

	v.SetDefault("insight.api_key", "")
	v.SetDefault("insight.model", "gemini-2.5-flash")
	v.SetDefault("insight.language", "Hebrew")
	v.SetDefault("insight.timeout", 60*time.Second)
}

// Load reads defaults overridden by environment variables such as
// SERVER_PORT or SNAPSHOT_BACKEND. GEMINI_API_KEY is accepted for the
// insight key.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("insight.api_key", "INSIGHT_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind insight key: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the selected snapshot backend depends on.
func (c *Config) Validate() error {
	switch c.Snapshot.Backend {
	case BackendFile:
		if c.Snapshot.FilePath == "" {
			return errors.New("snapshot.file_path is required for the file backend")
		}
	case BackendSQLite:
		if c.Snapshot.SQLitePath == "" {
			return errors.New("snapshot.sqlite_path is required for the sqlite backend")
		}
	case BackendGCS:
		if c.Snapshot.GCSBucket == "" || c.Snapshot.GCSObject == "" {
			return errors.New("snapshot.gcs_bucket and snapshot.gcs_object are required for the gcs backend")
		}
	case BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("unknown snapshot backend %q", c.Snapshot.Backend)
	}
	if c.Snapshot.MaxBytes < 0 {
		return errors.New("snapshot.max_bytes must not be negative")
	}
	return nil
}
