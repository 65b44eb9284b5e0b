package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Service.BaseURL != "http://localhost:8000" {
		t.Errorf("baseURL = %q", cfg.Service.BaseURL)
	}
	if cfg.Service.Timeout != 30*time.Second {
		t.Errorf("timeout = %v", cfg.Service.Timeout)
	}
	if cfg.Live.DebounceInterval != 400*time.Millisecond {
		t.Errorf("debounce = %v", cfg.Live.DebounceInterval)
	}
	if cfg.Live.MinLength != 4 {
		t.Errorf("minLength = %d", cfg.Live.MinLength)
	}
	if cfg.History.Cap != 100 {
		t.Errorf("history cap = %d", cfg.History.Cap)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("backend = %q", cfg.Store.Backend)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
service:
  baseURL: https://sentiment.example.com
  timeout: 5s
  mode: graphql
live:
  enabled: false
  debounceInterval: 250ms
store:
  backend: sqlite
  path: /tmp/state.db
logging:
  level: debug
  json: true
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Service.BaseURL != "https://sentiment.example.com" {
		t.Errorf("baseURL = %q", cfg.Service.BaseURL)
	}
	if cfg.Service.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", cfg.Service.Timeout)
	}
	if cfg.Service.Mode != "graphql" {
		t.Errorf("mode = %q", cfg.Service.Mode)
	}
	if cfg.Live.Enabled {
		t.Error("live should be disabled")
	}
	if cfg.Live.DebounceInterval != 250*time.Millisecond {
		t.Errorf("debounce = %v", cfg.Live.DebounceInterval)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Store.Path != "/tmp/state.db" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.JSON {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	// Untouched section keeps its default.
	if cfg.History.Cap != 100 {
		t.Errorf("history cap = %d", cfg.History.Cap)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SENTIMENT_BASE_URL", "http://env.example.com")
	t.Setenv("SENTIMENT_TIMEOUT", "7s")
	t.Setenv("SENTIMENT_MODE", "graphql")
	t.Setenv("SENTIMENT_LIVE_ENABLED", "false")
	t.Setenv("SENTIMENT_LIVE_MIN_LENGTH", "2")
	t.Setenv("SENTIMENT_HISTORY_CAP", "25")
	t.Setenv("SENTIMENT_STORE_BACKEND", "valkey")
	t.Setenv("SENTIMENT_VALKEY_ADDR", "localhost:6379")
	t.Setenv("SENTIMENT_LOG_FORMAT", "json")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Service.BaseURL != "http://env.example.com" {
		t.Errorf("baseURL = %q", cfg.Service.BaseURL)
	}
	if cfg.Service.Timeout != 7*time.Second {
		t.Errorf("timeout = %v", cfg.Service.Timeout)
	}
	if cfg.Service.Mode != "graphql" {
		t.Errorf("mode = %q", cfg.Service.Mode)
	}
	if cfg.Live.Enabled {
		t.Error("live should be disabled via env")
	}
	if cfg.Live.MinLength != 2 {
		t.Errorf("minLength = %d", cfg.Live.MinLength)
	}
	if cfg.History.Cap != 25 {
		t.Errorf("history cap = %d", cfg.History.Cap)
	}
	if cfg.Store.Backend != "valkey" || cfg.Store.Valkey.Addr != "localhost:6379" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if !cfg.Logging.JSON {
		t.Error("expected JSON logging")
	}
}

func TestEnvOverridesIgnoreMalformed(t *testing.T) {
	t.Setenv("SENTIMENT_TIMEOUT", "not-a-duration")
	t.Setenv("SENTIMENT_BATCH_CAP", "lots")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Service.Timeout != 30*time.Second {
		t.Errorf("timeout = %v", cfg.Service.Timeout)
	}
	if cfg.Service.BatchCap != 100 {
		t.Errorf("batchCap = %d", cfg.Service.BatchCap)
	}
}
