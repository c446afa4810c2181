// matchpulse — a football match aggregation service that polls redundant
// score and odds feeds, auto-fails-over between them, cross-verifies scores,
// and flags abnormal odds drift as smart-money signals.
//
// Architecture:
//
//	main.go                 — entry point: loads config, starts engine + API, waits for SIGINT/SIGTERM
//	engine/engine.go        — orchestrator: wires pollers → store → reconciler/tracker → alerts
//	engine/poller.go        — one sequential polling task per feed domain (scores, odds)
//	registry/registry.go    — per-feed health state machine with static-priority auto-fallback
//	feed/http.go            — resty adapter mapping upstream payloads to canonical records
//	feed/simulated.go       — deterministic seeded feed for development and demos
//	store/store.go          — in-memory match state: observations, verified scores, odds baselines
//	store/archive.go        — JSON archive for evicted (finished) matches
//	reconcile/reconciler.go — cross-source score verification with priority conflict policy
//	smartmoney/scorer.go    — vig-stripped implied-probability drift scoring (0–100 flow score)
//	alert/emitter.go        — dedup window, signal IDs, Telegram fan-out
//	alert/log.go            — SQLite audit log: signals, discrepancies, router switches
//	api/server.go           — chi HTTP API + WebSocket event stream + Prometheus metrics
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"matchpulse/internal/api"
	"matchpulse/internal/config"
	"matchpulse/internal/engine"
)

func main() {
	// Optional .env for local development; real deployments use PULSE_* env vars
	_ = godotenv.Load()

	cfgPath := "configs/config.yaml"
	if p := os.Getenv("PULSE_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Set up logger
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	eng, err := engine.New(*cfg, logger)
	if err != nil {
		logger.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer = api.NewServer(cfg.API, eng.Store(), eng.Registry(), eng.AlertLog(),
			3*cfg.Poll.ScoresInterval, eng.Metrics().Handler(), logger)
		eng.SetBroadcaster(apiServer.Hub())
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error("api server failed", "error", err)
			}
		}()
		logger.Info("api started", "url", fmt.Sprintf("http://localhost:%d", cfg.API.Port))
	}

	if err := eng.Start(); err != nil {
		logger.Error("failed to start engine", "error", err)
		os.Exit(1)
	}

	logger.Info("matchpulse started",
		"feeds", len(cfg.Feeds),
		"scores_interval", cfg.Poll.ScoresInterval,
		"odds_interval", cfg.Poll.OddsInterval,
		"alert_threshold", cfg.Flow.AlertThreshold,
	)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	if apiServer != nil {
		if err := apiServer.Stop(); err != nil {
			logger.Error("failed to stop api server", "error", err)
		}
	}

	eng.Stop()
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
