package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/QVF/internal/ahp"
	"github.com/MikeSquared-Agency/QVF/internal/api"
	"github.com/MikeSquared-Agency/QVF/internal/config"
	"github.com/MikeSquared-Agency/QVF/internal/events"
	"github.com/MikeSquared-Agency/QVF/internal/rescorer"
	"github.com/MikeSquared-Agency/QVF/internal/scoring"
	"github.com/MikeSquared-Agency/QVF/internal/store"
	"github.com/MikeSquared-Agency/QVF/internal/tracker"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := store.NewPostgresStore(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	// Event bus (optional)
	var eventsClient events.Client
	if cfg.Events.URL != "" {
		ec, err := events.NewNATSClient(ctx, cfg.Events.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to event bus, running without events", "error", err)
		} else {
			eventsClient = ec
			defer ec.Close()
			logger.Info("connected to event bus")
		}
	}

	// Work-tracking system
	trackerClient := tracker.NewHTTPClient(cfg.Tracker.URL, cfg.Tracker.Token)

	// Weight engine and scorer
	engine := ahp.NewEngine(cfg.Scoring.RandomIndex, cfg.Scoring.ConsistencyThreshold)
	scorer := scoring.NewScorer(scoring.TierThresholds{
		High:   cfg.Scoring.TierHigh,
		Medium: cfg.Scoring.TierMedium,
	}, logger)

	// Rescorer
	var rs *rescorer.Rescorer
	if cfg.Rescorer.Enabled {
		rs = rescorer.New(db, eventsClient, trackerClient, scorer, cfg.RescoreTickInterval(), logger)
		rs.Start(ctx)
		defer rs.Stop()
		rs.SetupSubscriptions()
		logger.Info("rescorer started", "tick_interval", cfg.RescoreTickInterval())
	}

	// API server
	router := api.NewRouter(db, eventsClient, trackerClient, engine, scorer, cfg.Server.AdminToken, logger)
	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Metrics server
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: api.NewMetricsRouter(),
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
