package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/cvforge/cvforge/pkg/assistant"
	"github.com/cvforge/cvforge/pkg/cache"
	"github.com/cvforge/cvforge/pkg/cache/memory"
	cachesqlite "github.com/cvforge/cvforge/pkg/cache/sqlite"
	"github.com/cvforge/cvforge/pkg/config"
	"github.com/cvforge/cvforge/pkg/dispatch"
	"github.com/cvforge/cvforge/pkg/history"
	"github.com/cvforge/cvforge/pkg/logging"
	"github.com/cvforge/cvforge/pkg/metrics"
	"github.com/cvforge/cvforge/pkg/models"
	"github.com/cvforge/cvforge/pkg/quota"
	"github.com/cvforge/cvforge/pkg/registry"
	"github.com/cvforge/cvforge/pkg/upstream"
)

// loadConfig reads the config named by --config and builds the logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(level, cfg.Log.Format, os.Stderr), nil
}

// app holds the components every long-running command needs.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	cache      cache.Cache
	history    *history.SQLiteStore
	quota      *quota.Enforcer
	dispatcher *dispatch.Dispatcher
	service    *assistant.Service
}

func buildApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if err := config.ValidateAPIKey(cfg.Upstream.APIKey); err != nil {
		// The dispatcher refuses every request with a config error; the
		// process still starts so health checks can report it.
		logger.Error("upstream API key rejected", "error", err)
	}

	client, err := upstream.New(upstream.Options{
		URL:               cfg.Upstream.URL,
		APIKey:            cfg.Upstream.APIKey,
		Referer:           cfg.Upstream.Referer,
		Title:             cfg.Upstream.Title,
		ConnectTimeout:    cfg.Upstream.ConnectTimeout,
		ReadTimeout:       cfg.Upstream.ReadTimeout,
		RequestsPerSecond: cfg.Upstream.RequestsPerSecond,
	})
	if err != nil {
		return nil, fmt.Errorf("init upstream: %w", err)
	}

	if cfg.Cache.Enabled {
		a.cache, err = openCache(cfg)
		if err != nil {
			return nil, err
		}
	}

	if cfg.History.Enabled {
		a.history, err = history.New(cfg.DBPath, cfg.History.RetentionDays)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init history: %w", err)
		}
		// The enforcer exists whenever history does so a reload can turn
		// quotas on without a restart.
		a.quota = quota.New(quotaPolicies(cfg), a.history)
	} else if cfg.Quota.Enabled {
		logger.Warn("quota requires history; quotas are disabled")
	}

	rec := metrics.NewRecorder(
		metrics.WithMaxSamples(cfg.Metrics.MaxSamples),
		metrics.WithMaxFallbacks(cfg.Metrics.MaxFallbackEvents),
		metrics.WithLogger(logger),
	)
	a.dispatcher = dispatch.New(registry.Default(), client, cfg.Upstream.APIKey,
		dispatch.WithCache(a.cache),
		dispatch.WithMetrics(rec),
		dispatch.WithLogger(logger),
		dispatch.WithMaxRetries(cfg.Dispatch.MaxRetries),
		dispatch.WithBackoff(cfg.Dispatch.Backoff),
	)

	opts := []assistant.Option{
		assistant.WithLanguage(cfg.Dispatch.Language),
		assistant.WithLogger(logger),
	}
	if h := a.historyStore(); h != nil {
		opts = append(opts, assistant.WithHistory(h), assistant.WithQuota(a.quota))
	}
	a.service = assistant.New(a.dispatcher, opts...)
	return a, nil
}

// historyStore returns the history as an interface, nil when disabled.
func (a *app) historyStore() history.Store {
	if a.history == nil {
		return nil
	}
	return a.history
}

// applyConfig updates the settings that can change without a restart.
func (a *app) applyConfig(cfg *config.Config) {
	if a.quota != nil {
		a.quota.SetPolicies(quotaPolicies(cfg))
		a.logger.Info("quota policies updated", "policies", len(a.quota.Policies()))
	}
}

func (a *app) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("close cache", "error", err)
		}
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Warn("close history", "error", err)
		}
	}
}

func quotaPolicies(cfg *config.Config) []models.QuotaPolicy {
	if !cfg.Quota.Enabled {
		return nil
	}
	return cfg.Quota.Policies
}

func openCache(cfg *config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case "", "memory":
		return memory.New(cfg.Cache.TTL, cfg.Cache.Capacity), nil
	case "sqlite":
		c, err := cachesqlite.New(cfg.DBPath, cfg.Cache.TTL, cfg.Cache.Capacity)
		if err != nil {
			return nil, fmt.Errorf("init cache: %w", err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
}

// openPersistentCache opens the on-disk cache for offline inspection.
func openPersistentCache(cfg *config.Config) (*cachesqlite.Cache, error) {
	if cfg.Cache.Backend != "sqlite" {
		return nil, errors.New("the memory cache lives inside the server process; use GET /v1/cache/stats")
	}
	return cachesqlite.New(cfg.DBPath, cfg.Cache.TTL, cfg.Cache.Capacity)
}
