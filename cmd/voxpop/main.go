package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/voxpop-labs/voxpop/internal/api"
	"github.com/voxpop-labs/voxpop/internal/config"
	"github.com/voxpop-labs/voxpop/internal/evaluator"
	"github.com/voxpop-labs/voxpop/internal/events"
	"github.com/voxpop-labs/voxpop/internal/generation"
	"github.com/voxpop-labs/voxpop/internal/persona"
	"github.com/voxpop-labs/voxpop/internal/report"
	"github.com/voxpop-labs/voxpop/internal/runner"
	"github.com/voxpop-labs/voxpop/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("voxpop starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Personas are validated up front; a broken definition never simulates.
	defs, err := persona.LoadDir(cfg.PersonaDir)
	if err != nil {
		slog.Error("failed to load personas", "dir", cfg.PersonaDir, "error", err)
		os.Exit(1)
	}
	slog.Info("personas loaded", "count", len(defs), "dir", cfg.PersonaDir)

	// Evaluator under test
	if cfg.EvaluatorURL == "" {
		slog.Error("EVALUATOR_URL is required")
		os.Exit(1)
	}
	eval := evaluator.NewClient(cfg.EvaluatorURL)
	slog.Info("evaluator client ready", "url", cfg.EvaluatorURL)

	// Generation capability
	if cfg.AnthropicAPIKey == "" {
		slog.Error("ANTHROPIC_API_KEY is required")
		os.Exit(1)
	}
	gen := generation.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	slog.Info("generation client ready", "model", cfg.AnthropicModel)

	// Database (optional; results always land in the JSONL file)
	var db *store.Store
	if cfg.DatabaseURL != "" {
		db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set, runs will not be persisted to postgres")
	}

	// NATS (optional)
	var publisher *events.Publisher
	if cfg.NatsURL != "" {
		publisher, err = events.NewPublisher(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS_URL not set, running without event stream")
	}

	results, err := report.NewWriter(cfg.ResultsPath)
	if err != nil {
		slog.Error("failed to open results file", "path", cfg.ResultsPath, "error", err)
		os.Exit(1)
	}
	defer results.Close()

	r := runner.New(eval, gen, slog.Default())
	progress := runner.NewProgressTracker()

	// Progress API while the batch runs
	srv := api.NewServer(cfg.Port, progress)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Graceful cancellation: an abandoned run stops at its next turn
	// boundary, no partial-turn rollback needed.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	batch := r.Batch(ctx, defs, cfg.RunsPerPersona, cfg.Concurrency, progress, func(res *runner.RunResult) {
		if err := results.Write(res); err != nil {
			slog.Error("failed to write result", "run_id", res.RunID, "error", err)
		}
		if db != nil {
			if err := db.InsertRun(ctx, res); err != nil {
				slog.Error("failed to persist run", "run_id", res.RunID, "error", err)
			}
		}
		if publisher != nil {
			if err := publisher.PublishRun(res); err != nil {
				slog.Warn("failed to publish run event", "run_id", res.RunID, "error", err)
			}
		}
	})

	summary := report.Summarize(batch.Runs)
	slog.Info("batch finished",
		"batch_id", batch.BatchID,
		"runs", summary.Runs,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"exit_reasons", summary.ExitReasons,
		"fail_reasons", summary.FailReasons,
	)

	if publisher != nil {
		if err := publisher.PublishBatch(events.BatchEvent{
			BatchID:     batch.BatchID.String(),
			Runs:        summary.Runs,
			Failed:      summary.Failed,
			ExitReasons: summary.ExitReasons,
		}); err != nil {
			slog.Warn("failed to publish batch event", "error", err)
		}
	}

	slog.Info("voxpop stopped")
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
