package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Listen != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.Listen)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("expected 1h TTL, got %v", cfg.Cache.TTL)
	}
	if cfg.Cache.Capacity != 100 {
		t.Errorf("expected capacity 100, got %d", cfg.Cache.Capacity)
	}
	if cfg.Dispatch.MaxRetries != 2 {
		t.Errorf("expected 2 retries, got %d", cfg.Dispatch.MaxRetries)
	}
}

func TestLoad(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TEST_API_KEY", "sk-or-v1-0123456789abcdef")

	content := `
listen: ":9090"
db_path: "test.db"
upstream:
  api_key: ${TEST_API_KEY}
  read_timeout: 30s
dispatch:
  max_retries: 3
cache:
  backend: sqlite
  ttl: 30m
  capacity: 50
quota:
  enabled: true
  policies:
    - tier: free
      max_requests: 5
      period: daily
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Listen != ":9090" {
		t.Errorf("expected :9090, got %s", cfg.Listen)
	}
	if cfg.Upstream.APIKey != "sk-or-v1-0123456789abcdef" {
		t.Errorf("env var not expanded: got %s", cfg.Upstream.APIKey)
	}
	if cfg.Upstream.ReadTimeout != 30*time.Second {
		t.Errorf("expected 30s read timeout, got %v", cfg.Upstream.ReadTimeout)
	}
	if cfg.Upstream.ConnectTimeout != 10*time.Second {
		t.Errorf("default connect timeout lost: %v", cfg.Upstream.ConnectTimeout)
	}
	if cfg.Dispatch.MaxRetries != 3 {
		t.Errorf("expected 3 retries, got %d", cfg.Dispatch.MaxRetries)
	}
	if cfg.Cache.Backend != "sqlite" || cfg.Cache.Capacity != 50 {
		t.Errorf("unexpected cache config: %+v", cfg.Cache)
	}
	if !cfg.Quota.Enabled || len(cfg.Quota.Policies) != 1 {
		t.Fatalf("unexpected quota config: %+v", cfg.Quota)
	}
	if cfg.Quota.Policies[0].MaxRequests != 5 {
		t.Errorf("expected 5 max requests, got %d", cfg.Quota.Policies[0].MaxRequests)
	}
}

func TestLoadTOML(t *testing.T) {
	t.Chdir(t.TempDir())

	content := `
listen = ":7070"

[upstream]
read_timeout = "20s"

[cache]
backend = "memory"
capacity = 10

[[quota.policies]]
tier = "free"
task = "cover_letter"
max_requests = 2
period = "monthly"
`
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":7070" {
		t.Errorf("expected :7070, got %s", cfg.Listen)
	}
	if cfg.Upstream.ReadTimeout != 20*time.Second {
		t.Errorf("expected 20s read timeout, got %v", cfg.Upstream.ReadTimeout)
	}
	if cfg.Cache.Capacity != 10 || cfg.Cache.TTL != time.Hour {
		t.Errorf("unexpected cache config: %+v", cfg.Cache)
	}
	if len(cfg.Quota.Policies) != 1 || cfg.Quota.Policies[0].Task != "cover_letter" {
		t.Errorf("unexpected policies: %+v", cfg.Quota.Policies)
	}
}

func TestWatch(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen: \":1\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed := make(chan *Config, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, nil, func(c *Config) {
			select {
			case changed <- c:
			default:
			}
		})
	}()

	// The watcher starts asynchronously, so keep rewriting until it notices.
	deadline := time.After(5 * time.Second)
	for i := 2; ; i++ {
		if err := os.WriteFile(path, []byte(fmt.Sprintf("listen: \":%d\"\n", i)), 0644); err != nil {
			t.Fatal(err)
		}
		select {
		case c := <-changed:
			if c.Listen == ":1" {
				t.Fatalf("reload returned stale config")
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Watch returned %v", err)
			}
			return
		case <-time.After(300 * time.Millisecond):
		case <-deadline:
			t.Fatal("config change not observed")
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("OPENROUTER_API_KEY", "")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("OPENROUTER_API_KEY=sk-or-v1-fromdotenvfile0000\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// godotenv does not override variables that are already set, even empty.
	os.Unsetenv("OPENROUTER_API_KEY")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Upstream.APIKey != "sk-or-v1-fromdotenvfile0000" {
		t.Errorf("expected key from .env, got %q", cfg.Upstream.APIKey)
	}
}

func TestLoadMissing(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		valid bool
	}{
		{"empty", "", false},
		{"whitespace", "   ", false},
		{"placeholder", "YOUR_KEY_HERE_PLEASE_REPLACE", false},
		{"too short", "sk-or-v1-abc", false},
		{"wrong prefix", "sk-proj-0123456789abcdefghij", false},
		{"valid", "sk-or-v1-0123456789abcdefghij", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(tt.key)
			if tt.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.valid {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, ErrInvalidAPIKey) {
					t.Errorf("expected ErrInvalidAPIKey, got %v", err)
				}
			}
		})
	}
}
