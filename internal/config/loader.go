package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DB_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Use this only in main() where early termination is desired.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []string

	// Store validation
	switch strings.ToLower(c.Store.Backend) {
	case "postgres":
		if c.Database.URL == "" {
			errs = append(errs, "DATABASE_URL is required when STORE_BACKEND is postgres")
		}
	case "memory":
	default:
		errs = append(errs, fmt.Sprintf("STORE_BACKEND (%q) must be one of: postgres, memory", c.Store.Backend))
	}

	// Database validation
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}

	// Import validation
	if c.Import.MaxFileSize <= 0 {
		errs = append(errs, "IMPORT_MAX_FILE_SIZE must be positive")
	}
	if c.Import.MaxConcurrent <= 0 {
		errs = append(errs, "IMPORT_MAX_CONCURRENT must be positive")
	}
	if c.Import.MaxWaitTime <= 0 {
		errs = append(errs, "IMPORT_MAX_WAIT_TIME must be positive")
	}
	if c.Import.HeaderScanRows <= 0 {
		errs = append(errs, "IMPORT_HEADER_SCAN_ROWS must be positive")
	}
	if c.Import.IdentifierRetries < 0 {
		errs = append(errs, "IMPORT_IDENTIFIER_RETRIES must be non-negative")
	}

	// Mapping validation
	switch strings.ToLower(c.Mapping.CacheBackend) {
	case "memory":
	case "redis":
		if c.Mapping.RedisURL == "" {
			errs = append(errs, "REDIS_URL is required when MAPPING_CACHE_BACKEND is redis")
		}
	default:
		errs = append(errs, fmt.Sprintf("MAPPING_CACHE_BACKEND (%q) must be one of: memory, redis", c.Mapping.CacheBackend))
	}
	if c.Mapping.CacheTTL < 0 {
		errs = append(errs, "MAPPING_CACHE_TTL must be non-negative")
	}

	// Suggest validation
	if c.Suggest.Active() && c.Suggest.Timeout <= 0 {
		errs = append(errs, "SUGGEST_TIMEOUT must be positive when suggestions are enabled")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Secrets are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Store: %q, ", c.Store.Backend))
	b.WriteString(fmt.Sprintf("Database: {URL: %s, MaxConns: %d, MinConns: %d}, ",
		mask(c.Database.URL), c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("Import: {MaxFileSize: %d, MaxConcurrent: %d, HeaderScanRows: %d}, ",
		c.Import.MaxFileSize, c.Import.MaxConcurrent, c.Import.HeaderScanRows))
	b.WriteString(fmt.Sprintf("Mapping: {AliasFile: %q, Cache: %q, RedisURL: %s}, ",
		c.Mapping.AliasFile, c.Mapping.CacheBackend, mask(c.Mapping.RedisURL)))
	b.WriteString(fmt.Sprintf("Suggest: {Enabled: %v, APIKey: %s, Model: %q}, ",
		c.Suggest.Enabled, mask(c.Suggest.APIKey), c.Suggest.Model))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}

func mask(s string) string {
	if s == "" {
		return `""`
	}
	return "[MASKED]"
}
