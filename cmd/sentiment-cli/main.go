package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/T10nnyy/sentiment-AI/internal/blob"
	"github.com/T10nnyy/sentiment-AI/internal/config"
	"github.com/T10nnyy/sentiment-AI/internal/gateway"
	"github.com/T10nnyy/sentiment-AI/internal/history"
	"github.com/T10nnyy/sentiment-AI/internal/live"
	"github.com/T10nnyy/sentiment-AI/internal/metrics"
	"github.com/T10nnyy/sentiment-AI/internal/settings"
	"github.com/T10nnyy/sentiment-AI/internal/stats"
	"github.com/T10nnyy/sentiment-AI/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting sentiment client", slog.String("service", cfg.Service.BaseURL))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	blobs, err := newBlobProvider(cfg, logger)
	if err != nil {
		logger.Error("failed to open blob store", slog.Any("error", err))
		os.Exit(1)
	}
	defer blobs.Close()

	mode, err := gateway.ParseMode(cfg.Service.Mode)
	if err != nil {
		logger.Error("invalid transport mode", slog.Any("error", err))
		os.Exit(1)
	}

	prefs := settings.NewStore(logger, blobs, settings.DefaultKey, settings.Settings{
		Mode:       mode,
		LiveTyping: cfg.Live.Enabled,
	})
	initial := prefs.Get()

	gw, err := gateway.New(gateway.Options{
		BaseURL:  cfg.Service.BaseURL,
		Timeout:  cfg.Service.Timeout,
		BatchCap: cfg.Service.BatchCap,
		Mode:     initial.Mode,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to create gateway", slog.Any("error", err))
		os.Exit(1)
	}

	histLog := history.NewStore(logger, blobs, history.DefaultKey, cfg.History.Cap)
	agg := stats.NewAggregator(stats.DefaultWindowSize)

	coordinator := live.NewCoordinator(gw, live.Options{
		DebounceInterval: cfg.Live.DebounceInterval,
		MinLength:        cfg.Live.MinLength,
		Timeout:          cfg.Live.Timeout,
		Enabled:          initial.LiveTyping,
		Logger:           logger,
	}, printSnapshot)
	defer coordinator.Close()

	prefs.Subscribe(func(s settings.Settings) {
		gw.SetMode(s.Mode)
		coordinator.SetEnabled(s.LiveTyping)
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Metrics.Address != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Metrics.Address,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Metrics.Address))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	repl := &repl{
		logger:      logger,
		gateway:     gw,
		history:     histLog,
		stats:       agg,
		settings:    prefs,
		coordinator: coordinator,
	}
	repl.run(ctx)

	stop()
	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}
	logger.Info("shutdown complete")
}

func newBlobProvider(cfg *config.Config, logger *slog.Logger) (blob.Provider, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		return blob.NewMemoryProvider(), nil
	case "sqlite":
		return blob.NewSQLiteProvider(cfg.Store.Path)
	case "valkey":
		provider, err := blob.NewValkeyProvider(blob.ValkeyConfig{
			Addr:         cfg.Store.Valkey.Addr,
			Username:     cfg.Store.Valkey.Username,
			Password:     cfg.Store.Valkey.Password,
			DB:           cfg.Store.Valkey.DB,
			TLS:          cfg.Store.Valkey.TLS,
			DialTimeout:  cfg.Store.Valkey.DialTimeout,
			ReadTimeout:  cfg.Store.Valkey.ReadTimeout,
			WriteTimeout: cfg.Store.Valkey.WriteTimeout,
			MaxRetries:   cfg.Store.Valkey.MaxRetries,
		})
		if err != nil {
			logger.Warn("valkey unavailable, falling back to memory", slog.Any("error", err))
			return blob.NewMemoryProvider(), nil
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func printSnapshot(s live.Snapshot) {
	switch {
	case s.Empty():
		fmt.Println("[live] (cleared)")
	case s.ErrKind != "":
		fmt.Printf("[live] %q failed: %s\n", s.Text, s.ErrMessage)
	default:
		fmt.Printf("[live] %q -> %s (%.1f%%)\n", s.Text, s.Result.Label, s.Result.Score*100)
	}
}
