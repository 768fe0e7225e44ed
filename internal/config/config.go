// Package config provides centralized configuration for the ingestion engine.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig
	Store    StoreConfig
	Import   ImportConfig
	Mapping  MappingConfig
	Suggest  SuggestConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. DB_URL is accepted as a fallback.
	URL string `env:"DATABASE_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" envDefault:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" envDefault:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Backend is postgres or memory (default: postgres)
	Backend string `env:"STORE_BACKEND" envDefault:"postgres"`
}

// ImportConfig holds ingestion limits.
type ImportConfig struct {
	// MaxFileSize is the maximum accepted file size in bytes (default: 50MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" envDefault:"52428800"`

	// MaxConcurrent is the maximum number of imports running at once (default: 4)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" envDefault:"4"`

	// MaxWaitTime is how long to wait for an import slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" envDefault:"30s"`

	HeaderScanRows    int `env:"IMPORT_HEADER_SCAN_ROWS" envDefault:"25"`
	ErrorSampleSize   int `env:"IMPORT_ERROR_SAMPLE" envDefault:"20"`
	StagedSampleSize  int `env:"IMPORT_STAGED_SAMPLE" envDefault:"20"`
	MaxMessageLength  int `env:"IMPORT_MAX_MESSAGE_LENGTH" envDefault:"200"`
	IdentifierRetries int `env:"IMPORT_IDENTIFIER_RETRIES" envDefault:"3"`
}

// MappingConfig holds column mapping settings.
type MappingConfig struct {
	// AliasFile replaces the built-in alias table when set
	AliasFile string `env:"MAPPING_ALIAS_FILE"`

	// CacheBackend is memory or redis (default: memory)
	CacheBackend string `env:"MAPPING_CACHE_BACKEND" envDefault:"memory"`

	RedisURL string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisKey string        `env:"MAPPING_CACHE_KEY" envDefault:"tabingest:mappings"`
	CacheTTL time.Duration `env:"MAPPING_CACHE_TTL" envDefault:"24h"`
}

// SuggestConfig holds settings for the model-backed column suggester.
type SuggestConfig struct {
	// Enabled turns on tier-two suggestions when an API key is present (default: true)
	Enabled bool `env:"SUGGEST_ENABLED" envDefault:"true"`

	APIKey  string        `env:"OPENAI_API_KEY"`
	BaseURL string        `env:"OPENAI_BASE_URL"`
	Model   string        `env:"SUGGEST_MODEL" envDefault:"gpt-4o-mini"`
	Timeout time.Duration `env:"SUGGEST_TIMEOUT" envDefault:"10s"`
}

// Active reports whether the suggester should be wired.
func (c SuggestConfig) Active() bool {
	return c.Enabled && c.APIKey != ""
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// MetricsConfig holds metrics export settings.
type MetricsConfig struct {
	// Textfile is written with the Prometheus registry after each command when set
	Textfile string `env:"METRICS_TEXTFILE"`
}
