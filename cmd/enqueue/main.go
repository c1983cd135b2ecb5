// Package main is the framemill enqueue CLI: submit a video for processing
// or poll the status of a submitted job.
//
// Usage:
//
//	enqueue -file clip.mp4 -user alice
//	enqueue -status <job_id>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kiranshivaraju/framemill/internal/config"
	"github.com/kiranshivaraju/framemill/internal/enqueue"
	"github.com/kiranshivaraju/framemill/internal/objectstore"
	"github.com/kiranshivaraju/framemill/internal/progress"
	"github.com/kiranshivaraju/framemill/internal/queue"
	"github.com/kiranshivaraju/framemill/internal/store"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	file := flag.String("file", "", "path of the video file to submit")
	user := flag.String("user", "", "owner of the submitted job")
	status := flag.String("status", "", "job_id to query instead of submitting")
	flag.Parse()

	if err := run(*file, *user, *status); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(file, user, statusJobID string) error {
	if (file == "") == (statusJobID == "") {
		return errors.New("exactly one of -file or -status is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	tracker, err := progress.NewRedisTracker(cfg.Redis.URL, cfg.Progress.Partition, cfg.Progress.TTL)
	if err != nil {
		return fmt.Errorf("create progress tracker: %w", err)
	}
	defer tracker.Close()

	objects, err := objectstore.NewMinioStore(ctx, cfg.ObjectStore)
	if err != nil {
		return fmt.Errorf("create object store: %w", err)
	}

	q, err := queue.Connect(ctx, cfg.Queue)
	if err != nil {
		return fmt.Errorf("connect queue: %w", err)
	}
	defer q.Close()

	svc := enqueue.New(objects, store.NewPostgresStore(pool), tracker, q, slog.Default())

	if statusJobID != "" {
		return printStatus(ctx, svc, statusJobID)
	}
	return submit(ctx, svc, file, user)
}

func submit(ctx context.Context, svc *enqueue.Service, file, user string) error {
	if user == "" {
		return errors.New("-user is required with -file")
	}
	if _, err := os.Stat(file); err != nil {
		return fmt.Errorf("input file: %w", err)
	}

	sub, err := svc.Submit(ctx, file, user)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"job_id":   sub.JobID,
		"s3_key":   sub.ObjectKey,
		"video_id": sub.VideoID,
	})
}

func printStatus(ctx context.Context, svc *enqueue.Service, jobID string) error {
	status, err := svc.Status(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("job %s not found", jobID)
		}
		return err
	}
	return printJSON(status)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
