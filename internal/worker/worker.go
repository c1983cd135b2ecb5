// Package worker runs the poll loop: pull job descriptors from the queue,
// process them one at a time, acknowledge on completion.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/framemill/internal/config"
	"github.com/kiranshivaraju/framemill/internal/pipeline"
	"github.com/kiranshivaraju/framemill/internal/queue"
	"github.com/kiranshivaraju/framemill/pkg/models"
)

// Processor runs the full pipeline for one job descriptor. pipeline.Orchestrator
// satisfies it.
type Processor interface {
	Process(ctx context.Context, msg models.JobMessage) (pipeline.Outcome, error)
}

// Worker consumes job descriptors sequentially. A message is acknowledged
// after processing reaches a persisted terminal state, whether done or
// failed; malformed messages and persist failures are left for redelivery.
type Worker struct {
	consumer queue.Consumer
	proc     Processor
	cfg      config.Config
	logger   *slog.Logger
}

func New(consumer queue.Consumer, proc Processor, cfg config.Config, logger *slog.Logger) *Worker {
	return &Worker{
		consumer: consumer,
		proc:     proc,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run polls until ctx is cancelled. It returns nil on a clean shutdown. A job
// in flight when ctx is cancelled finishes its current stage calls before the
// loop exits.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started",
		"stream", w.cfg.Queue.Stream,
		"durable", w.cfg.Queue.Durable,
		"batch_size", w.cfg.Queue.BatchSize)

	for {
		if err := ctx.Err(); err != nil {
			w.logger.Info("worker stopping")
			return nil
		}

		deliveries, err := w.consumer.Fetch(ctx, w.cfg.Queue.BatchSize)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			w.logger.Error("fetch from queue failed", "error", err)
			sleepCtx(ctx, w.cfg.Worker.ErrorBackoff)
			continue
		}

		for _, d := range deliveries {
			if ctx.Err() != nil {
				// Unprocessed deliveries stay unacked and are redelivered
				// after the visibility window.
				break
			}
			w.handle(ctx, d)
		}
	}
}

// handle decodes and processes one delivery. The ack decision is driven
// entirely by the processing error: nil means the terminal state was
// persisted and the message is finished.
func (w *Worker) handle(ctx context.Context, d queue.Delivery) {
	msg, err := decodeMessage(d.Data())
	if err != nil {
		// A malformed descriptor can never succeed; leave it unacked so the
		// queue's delivery cap eventually drops it.
		w.logger.Error("discarding fetch of malformed job message",
			"error", err, "attempt", d.Attempt())
		return
	}

	log := w.logger.With("job_id", msg.JobID, "attempt", d.Attempt())

	outcome, err := w.proc.Process(ctx, msg)
	if err != nil {
		log.Error("job outcome not persisted, leaving message for redelivery", "error", err)
		return
	}

	if err := d.Ack(); err != nil {
		// The terminal state is durable; a redelivered copy reruns the
		// pipeline idempotently.
		log.Warn("ack failed after persisted outcome", "error", err)
		return
	}
	log.Info("message acknowledged", "status", outcome.Status)
}

func decodeMessage(data []byte) (models.JobMessage, error) {
	var msg models.JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return models.JobMessage{}, fmt.Errorf("decode job message: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return models.JobMessage{}, fmt.Errorf("invalid job message: %w", err)
	}
	return msg, nil
}

// sleepCtx waits for d or until ctx is cancelled. Reports whether the full
// duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
