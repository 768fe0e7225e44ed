package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/tabingest/internal/config"
	"github.com/JonMunkholm/tabingest/internal/core"
	_ "github.com/JonMunkholm/tabingest/internal/core/entities" // Register all entity kinds
	"github.com/JonMunkholm/tabingest/internal/logging"
	"github.com/JonMunkholm/tabingest/internal/store"
)

// app holds the wired engine for one command invocation.
type app struct {
	cfg     *config.Config
	pool    *pgxpool.Pool
	store   core.Store
	service *core.Service
	closers []func() error
}

// loadConfig reads the dotenv file, the environment and the flag overrides,
// then configures logging.
func loadConfig(opts *globalOptions) (*config.Config, error) {
	if opts.EnvFile != "" {
		// Overload overwrites existing env vars
		if err := godotenv.Overload(opts.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", opts.EnvFile, err)
		}
	}
	if opts.Store != "" {
		os.Setenv("STORE_BACKEND", opts.Store)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())
	return cfg, nil
}

// connect opens the database pool when the postgres backend is selected.
func connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return store.Connect(ctx, store.PoolConfig{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
}

// newApp wires store, mapper, limiter and service from configuration.
func newApp(ctx context.Context, opts *globalOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	switch cfg.Store.Backend {
	case "memory":
		a.store = store.NewMemoryStore()
		slog.Info("using in-memory store, nothing will be persisted")
	default:
		pool, err := connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		a.store = store.NewPostgresStore(pool)
	}

	mapper, err := a.newMapper()
	if err != nil {
		a.close()
		return nil, err
	}

	limiter := core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime)
	a.service = core.NewService(a.store, mapper, limiter, core.ServiceConfig{
		HeaderScanRows:    cfg.Import.HeaderScanRows,
		MaxFileSize:       cfg.Import.MaxFileSize,
		ErrorSampleSize:   cfg.Import.ErrorSampleSize,
		StagedSampleSize:  cfg.Import.StagedSampleSize,
		MaxMessageLength:  cfg.Import.MaxMessageLength,
		IdentifierRetries: cfg.Import.IdentifierRetries,
	})

	slog.Info("engine ready",
		"store", cfg.Store.Backend,
		"kinds", core.KindCount(),
		"suggestions", cfg.Suggest.Active(),
		"cache", cfg.Mapping.CacheBackend,
	)
	return a, nil
}

func (a *app) newMapper() (*core.Mapper, error) {
	table, err := loadAliases(a.cfg.Mapping.AliasFile)
	if err != nil {
		return nil, err
	}

	var opts []core.MapperOption
	if a.cfg.Mapping.CacheBackend == "redis" {
		cache, err := core.NewRedisMappingCache(a.cfg.Mapping.RedisURL, a.cfg.Mapping.RedisKey, a.cfg.Mapping.CacheTTL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, cache.Close)
		opts = append(opts, core.WithMappingCache(cache))
	}
	if a.cfg.Suggest.Active() {
		opts = append(opts,
			core.WithSuggester(core.NewOpenAISuggester(a.cfg.Suggest.APIKey, a.cfg.Suggest.BaseURL, a.cfg.Suggest.Model)),
			core.WithSuggestTimeout(a.cfg.Suggest.Timeout),
		)
	}
	return core.NewMapper(table, opts...), nil
}

func loadAliases(path string) (*core.AliasTable, error) {
	if path == "" {
		return core.DefaultAliasTable()
	}
	return core.LoadAliasFile(path)
}

// close releases connections and writes the metrics textfile if configured.
func (a *app) close() {
	if a.cfg != nil && a.cfg.Metrics.Textfile != "" {
		if err := core.WriteMetricsTextfile(a.cfg.Metrics.Textfile); err != nil {
			slog.Warn("write metrics textfile failed", "path", a.cfg.Metrics.Textfile, "error", err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
}
