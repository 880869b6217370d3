package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cvforge/cvforge/pkg/models"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// APIKeyPrefix is the prefix every upstream router key carries.
const APIKeyPrefix = "sk-or-v1-"

// minAPIKeyLength rejects truncated or placeholder keys.
const minAPIKeyLength = 20

// ErrInvalidAPIKey is returned when the upstream API key fails validation.
var ErrInvalidAPIKey = errors.New("invalid upstream API key")

// Config holds all cvforge configuration.
type Config struct {
	Listen   string         `yaml:"listen" toml:"listen"`
	DBPath   string         `yaml:"db_path" toml:"db_path"`
	Log      LogConfig      `yaml:"log" toml:"log"`
	Upstream UpstreamConfig `yaml:"upstream" toml:"upstream"`
	Dispatch DispatchConfig `yaml:"dispatch" toml:"dispatch"`
	Cache    CacheConfig    `yaml:"cache" toml:"cache"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
	History  HistoryConfig  `yaml:"history" toml:"history"`
	Quota    QuotaConfig    `yaml:"quota" toml:"quota"`
	Server   ServerConfig   `yaml:"server" toml:"server"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // "color" (default) or "json"
}

// UpstreamConfig describes the chat-completions endpoint.
type UpstreamConfig struct {
	URL               string        `yaml:"url" toml:"url"`
	APIKey            string        `yaml:"api_key" toml:"api_key"`
	Referer           string        `yaml:"referer" toml:"referer"`
	Title             string        `yaml:"title" toml:"title"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout" toml:"connect_timeout"`
	ReadTimeout       time.Duration `yaml:"read_timeout" toml:"read_timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" toml:"requests_per_second"`
}

// DispatchConfig controls retry and backoff per model.
type DispatchConfig struct {
	MaxRetries int           `yaml:"max_retries" toml:"max_retries"`
	Backoff    time.Duration `yaml:"backoff" toml:"backoff"`
	Language   string        `yaml:"language" toml:"language"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled" toml:"enabled"`
	Backend  string        `yaml:"backend" toml:"backend"` // "memory" or "sqlite"
	TTL      time.Duration `yaml:"ttl" toml:"ttl"`
	Capacity int           `yaml:"capacity" toml:"capacity"`
}

// MetricsConfig bounds the in-memory metrics windows.
type MetricsConfig struct {
	MaxSamples        int `yaml:"max_samples" toml:"max_samples"`
	MaxFallbackEvents int `yaml:"max_fallback_events" toml:"max_fallback_events"`
}

// HistoryConfig controls the persisted dispatch log.
type HistoryConfig struct {
	Enabled       bool `yaml:"enabled" toml:"enabled"`
	RetentionDays int  `yaml:"retention_days" toml:"retention_days"`
}

// QuotaConfig controls per-user request quotas.
type QuotaConfig struct {
	Enabled  bool                 `yaml:"enabled" toml:"enabled"`
	Policies []models.QuotaPolicy `yaml:"policies" toml:"policies"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	AllowOrigins []string `yaml:"allow_origins" toml:"allow_origins"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		DBPath: "cvforge.db",
		Log: LogConfig{
			Level:  "info",
			Format: "color",
		},
		Upstream: UpstreamConfig{
			URL:            "https://openrouter.ai/api/v1/chat/completions",
			Referer:        "https://cvforge.app/",
			Title:          "cvforge",
			ConnectTimeout: 10 * time.Second,
			ReadTimeout:    45 * time.Second,
		},
		Dispatch: DispatchConfig{
			MaxRetries: 2,
			Backoff:    time.Second,
			Language:   "en",
		},
		Cache: CacheConfig{
			Enabled:  true,
			Backend:  "memory",
			TTL:      time.Hour,
			Capacity: 100,
		},
		Metrics: MetricsConfig{
			MaxSamples:        1000,
			MaxFallbackEvents: 1000,
		},
		History: HistoryConfig{
			Enabled:       true,
			RetentionDays: 30,
		},
	}
}

// Load reads a YAML or TOML config file (chosen by extension) and expands
// environment variables. A .env file in the working directory is loaded
// first when present. An empty path returns the defaults with only the API
// key taken from the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		if err := decode(path, os.ExpandEnv(string(data)), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if cfg.Upstream.APIKey == "" {
		cfg.Upstream.APIKey = strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY"))
	}

	return cfg, nil
}

func decode(path, data string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err := toml.Decode(data, cfg)
		return err
	default:
		return yaml.Unmarshal([]byte(data), cfg)
	}
}

// ValidateAPIKey checks that key looks like a real upstream key. It never
// contacts the network.
func ValidateAPIKey(key string) error {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return fmt.Errorf("%w: not set", ErrInvalidAPIKey)
	case strings.HasPrefix(key, "YOUR_") || strings.HasPrefix(key, "TWÓJ_") || len(key) < minAPIKeyLength:
		return fmt.Errorf("%w: placeholder or truncated value", ErrInvalidAPIKey)
	case !strings.HasPrefix(key, APIKeyPrefix):
		return fmt.Errorf("%w: expected prefix %q", ErrInvalidAPIKey, APIKeyPrefix)
	}
	return nil
}
