package main

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/cvforge/cvforge/pkg/cache/memory"
	cachesqlite "github.com/cvforge/cvforge/pkg/cache/sqlite"
	"github.com/cvforge/cvforge/pkg/config"
	"github.com/cvforge/cvforge/pkg/models"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "cvforge.db")
	cfg.Upstream.APIKey = "sk-or-v1-0123456789abcdefghij"
	return cfg
}

func TestOpenCache(t *testing.T) {
	cfg := testConfig(t)

	c, err := openCache(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*memory.Cache); !ok {
		t.Errorf("default backend should be memory, got %T", c)
	}

	cfg.Cache.Backend = "sqlite"
	c, err = openCache(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, ok := c.(*cachesqlite.Cache); !ok {
		t.Errorf("expected sqlite cache, got %T", c)
	}

	cfg.Cache.Backend = "redis"
	if _, err := openCache(cfg); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestBuildAppReload(t *testing.T) {
	cfg := testConfig(t)
	a, err := buildApp(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if a.dispatcher.Ready() != nil {
		t.Errorf("dispatcher not ready: %v", a.dispatcher.Ready())
	}
	if a.quota == nil || len(a.quota.Policies()) != 0 {
		t.Fatal("expected an enforcer with no policies")
	}

	next := testConfig(t)
	next.Quota.Enabled = true
	next.Quota.Policies = []models.QuotaPolicy{{Tier: "free", MaxRequests: 3, Period: models.QuotaDaily}}
	a.applyConfig(next)
	if len(a.quota.Policies()) != 1 {
		t.Errorf("reload did not apply policies: %v", a.quota.Policies())
	}
}

func TestBuildAppWithoutHistory(t *testing.T) {
	cfg := testConfig(t)
	cfg.History.Enabled = false
	cfg.Cache.Enabled = false
	a, err := buildApp(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if a.historyStore() != nil || a.quota != nil {
		t.Error("history and quota should be disabled")
	}
	if a.dispatcher.Cache() != nil {
		t.Error("cache should be disabled")
	}
}
