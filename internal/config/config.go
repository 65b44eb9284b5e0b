package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config captures the settings the sentiment client recognizes.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Live    LiveConfig    `yaml:"live"`
	History HistoryConfig `yaml:"history"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServiceConfig configures access to the remote inference service.
type ServiceConfig struct {
	BaseURL  string        `yaml:"baseURL"`
	Timeout  time.Duration `yaml:"timeout"`
	Mode     string        `yaml:"mode"`
	BatchCap int           `yaml:"batchCap"`
}

// LiveConfig controls the live-typing pipeline.
type LiveConfig struct {
	Enabled          bool          `yaml:"enabled"`
	DebounceInterval time.Duration `yaml:"debounceInterval"`
	MinLength        int           `yaml:"minLength"`
	Timeout          time.Duration `yaml:"timeout"`
}

// HistoryConfig controls the prediction history log.
type HistoryConfig struct {
	Cap int `yaml:"cap"`
}

// StoreConfig selects the blob store backend persisting client state.
type StoreConfig struct {
	// Backend is one of "memory", "sqlite", "valkey".
	Backend string       `yaml:"backend"`
	Path    string       `yaml:"path"`
	Valkey  ValkeyConfig `yaml:"valkey"`
}

// ValkeyConfig holds connection parameters for the valkey backend.
type ValkeyConfig struct {
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	TLS          bool          `yaml:"tls"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	Address string `yaml:"address"`
}

// Load initialises Config from a YAML file, a .env file when present,
// and environment overrides, in that order of precedence (env wins).
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("SENTIMENT_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Service: ServiceConfig{
			BaseURL:  "http://localhost:8000",
			Timeout:  30 * time.Second,
			Mode:     "rest",
			BatchCap: 100,
		},
		Live: LiveConfig{
			Enabled:          true,
			DebounceInterval: 400 * time.Millisecond,
			MinLength:        4,
			Timeout:          10 * time.Second,
		},
		History: HistoryConfig{Cap: 100},
		Store: StoreConfig{
			Backend: "memory",
			Path:    "sentiment.db",
			Valkey: ValkeyConfig{
				DialTimeout:  2 * time.Second,
				ReadTimeout:  500 * time.Millisecond,
				WriteTimeout: 500 * time.Millisecond,
				MaxRetries:   2,
			},
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SENTIMENT_BASE_URL"); v != "" {
		cfg.Service.BaseURL = v
	}
	if v := os.Getenv("SENTIMENT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Service.Timeout = d
		}
	}
	if v := os.Getenv("SENTIMENT_MODE"); v != "" {
		cfg.Service.Mode = v
	}
	if v := os.Getenv("SENTIMENT_BATCH_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Service.BatchCap = n
		}
	}
	if v := os.Getenv("SENTIMENT_LIVE_ENABLED"); v != "" {
		cfg.Live.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("SENTIMENT_LIVE_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Live.DebounceInterval = d
		}
	}
	if v := os.Getenv("SENTIMENT_LIVE_MIN_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Live.MinLength = n
		}
	}
	if v := os.Getenv("SENTIMENT_LIVE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Live.Timeout = d
		}
	}
	if v := os.Getenv("SENTIMENT_HISTORY_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.History.Cap = n
		}
	}
	if v := os.Getenv("SENTIMENT_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("SENTIMENT_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("SENTIMENT_VALKEY_ADDR"); v != "" {
		cfg.Store.Valkey.Addr = v
	}
	if v := os.Getenv("SENTIMENT_VALKEY_USERNAME"); v != "" {
		cfg.Store.Valkey.Username = v
	}
	if v := os.Getenv("SENTIMENT_VALKEY_PASSWORD"); v != "" {
		cfg.Store.Valkey.Password = v
	}
	if v := os.Getenv("SENTIMENT_VALKEY_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Store.Valkey.DB = n
		}
	}
	if v := os.Getenv("SENTIMENT_VALKEY_TLS"); strings.EqualFold(v, "true") || v == "1" {
		cfg.Store.Valkey.TLS = true
	}
	if v := os.Getenv("SENTIMENT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SENTIMENT_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("SENTIMENT_METRICS_ADDRESS"); v != "" {
		cfg.Metrics.Address = v
	}
}
