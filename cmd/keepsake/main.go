package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MikeSquared-Agency/keepsake/internal/analysis"
	"github.com/MikeSquared-Agency/keepsake/internal/api"
	"github.com/MikeSquared-Agency/keepsake/internal/config"
	"github.com/MikeSquared-Agency/keepsake/internal/events"
	"github.com/MikeSquared-Agency/keepsake/internal/gemini"
	"github.com/MikeSquared-Agency/keepsake/internal/keypool"
	"github.com/MikeSquared-Agency/keepsake/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("keepsake starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Credential pool
	accounts := keypool.LoadFromEnv(os.Environ())
	keys := keypool.NewRotator(accounts, slog.Default())
	if keys.AccountCount() == 0 {
		slog.Error("no Gemini accounts configured (GEMINI_ACCOUNT_<id>_KEY_<n>)")
		os.Exit(1)
	}
	slog.Info("credential pool ready", "accounts", keys.AccountCount())

	// Database (optional — without it runs are not persisted)
	var db *store.Store
	if cfg.DatabaseURL != "" {
		var err error
		db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			slog.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set — runs will not be persisted")
	}

	// NATS (optional — without it no progress events are published)
	var publisher analysis.Publisher
	if cfg.NatsURL != "" {
		eventsClient, err := events.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer eventsClient.Close()
		publisher = eventsClient
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS_URL not set — running without progress events")
	}

	// Gemini clients: a fast model for extraction, a stronger one for synthesis
	flash := gemini.NewClient(cfg.ExtractModel)
	pro := gemini.NewClient(cfg.SynthesisModel)
	slog.Info("gemini clients ready", "extract_model", cfg.ExtractModel, "synthesis_model", cfg.SynthesisModel)

	// Pipeline
	ext := analysis.NewExtractor(flash, keys, slog.Default())
	synth := analysis.NewSynthesizer(pro, keys, slog.Default())
	pipeline := analysis.NewPipeline(ext, synth, keys, publisher, cfg.BatchSize, slog.Default())

	// HTTP API
	srv := api.NewServer(cfg.Port, pipeline, db, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("keepsake ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("keepsake stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
