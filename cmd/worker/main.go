// Package main is the entrypoint for the framemill processing worker.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kiranshivaraju/framemill/internal/classify"
	"github.com/kiranshivaraju/framemill/internal/config"
	"github.com/kiranshivaraju/framemill/internal/media"
	"github.com/kiranshivaraju/framemill/internal/objectstore"
	"github.com/kiranshivaraju/framemill/internal/pipeline"
	"github.com/kiranshivaraju/framemill/internal/progress"
	"github.com/kiranshivaraju/framemill/internal/queue"
	"github.com/kiranshivaraju/framemill/internal/store"
	"github.com/kiranshivaraju/framemill/internal/worker"
)

func main() {
	// Optional .env for local runs; real deployments inject the environment
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "classifier", cfg.Classifier.Provider, "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create progress tracker
	tracker, err := progress.NewRedisTracker(cfg.Redis.URL, cfg.Progress.Partition, cfg.Progress.TTL)
	if err != nil {
		return fmt.Errorf("create progress tracker: %w", err)
	}
	defer tracker.Close()

	if err := tracker.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected", "partition", cfg.Progress.Partition)

	// 5. Connect to the object store
	objects, err := objectstore.NewMinioStore(ctx, cfg.ObjectStore)
	if err != nil {
		return fmt.Errorf("create object store: %w", err)
	}
	slog.Info("object store connected", "bucket", cfg.ObjectStore.Bucket)

	// 6. Attach to the work queue
	q, err := queue.Connect(ctx, cfg.Queue)
	if err != nil {
		return fmt.Errorf("connect queue: %w", err)
	}
	defer q.Close()
	slog.Info("queue attached", "stream", cfg.Queue.Stream, "durable", cfg.Queue.Durable)

	// 7. Create the classifier
	classifier, err := classify.NewClassifier(cfg.Classifier)
	if err != nil {
		return fmt.Errorf("create classifier: %w", err)
	}
	if c, ok := classifier.(interface{ Close() }); ok {
		defer c.Close()
	}
	slog.Info("classifier initialized", "provider", classifier.Name())

	// 8. Check the external tools; missing tools fail jobs, not startup, so a
	// misconfigured node still surfaces the problem in job records
	for _, tool := range []string{cfg.Pipeline.FFmpegPath, cfg.Pipeline.FFprobePath} {
		if _, err := exec.LookPath(tool); err != nil {
			slog.Warn("external tool not found on PATH, jobs will fail", "tool", tool)
		}
	}

	// 9. Build the orchestrator and run the poll loop
	pgStore := store.NewPostgresStore(pool)
	ffmpeg := media.NewFFmpeg(cfg.Pipeline.FFmpegPath, cfg.Pipeline.FFprobePath)
	orch := pipeline.New(objects, tracker, pgStore, ffmpeg, classifier, cfg.Pipeline, slog.Default())

	w := worker.New(q, orch, *cfg, slog.Default())
	if err := w.Run(ctx); err != nil {
		return fmt.Errorf("worker loop: %w", err)
	}

	slog.Info("worker stopped gracefully")
	return nil
}
