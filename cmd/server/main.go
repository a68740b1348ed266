package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"werewolves/internal/app"
	"werewolves/internal/config"
	"werewolves/internal/history"
	"werewolves/internal/narrator"
	"werewolves/internal/telemetry"
	httpTransport "werewolves/internal/transport/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Set up logger
	var logger *slog.Logger
	logOpts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	if cfg.Logging.Format == "json" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, logOpts))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, logOpts))
	}

	slog.SetDefault(logger)

	logger.Info("starting werewolves game server",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"playAgain", cfg.Game.PlayAgainPolicy,
	)

	shutdownTracing, err := telemetry.Setup(context.Background(), cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		logger.Error("telemetry setup failed", "error", err)
		os.Exit(1)
	}

	opts := app.Options{
		Rules: cfg.Rules(),
		Timings: app.Timings{
			AutoStart:   cfg.Game.AutoStartDelay,
			RoleReveal:  cfg.Game.RoleRevealDelay,
			NextNight:   cfg.Game.NextNightDelay,
			NewRound:    cfg.Game.NewRoundDelay,
			GameOverTTL: cfg.Game.GameOverTTL,
		},
		MaxChatLength:   cfg.Game.MaxChatLength,
		NarratorTimeout: cfg.Narrator.Timeout,
	}

	// Game archive
	var archive httpTransport.HistoryReader
	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.DSN, logger.With("component", "history"))
		if err != nil {
			logger.Error("history store unavailable", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		opts.Recorder = store
		archive = store
	}

	// Death narration
	teller, err := narrator.New(cfg.Narrator, logger.With("component", "narrator"))
	if err != nil {
		logger.Error("narrator unavailable", "provider", cfg.Narrator.Provider, "error", err)
		os.Exit(1)
	}
	if teller != nil {
		opts.Narrator = teller
	}

	// Create game hub
	hub := app.NewGameHub(opts, logger)
	defer hub.Close()

	// Create HTTP server
	server := httpTransport.NewServer(cfg, hub, archive, logger, telemetry.Tracer("werewolves/ws"))

	// Start server in goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Error("telemetry shutdown failed", "error", err)
	}

	logger.Info("server stopped")
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
