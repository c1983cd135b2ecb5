package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/kiranshivaraju/framemill/pkg/models"
	"github.com/redis/go-redis/v9"
)

// Error messages surfaced to polling callers are kept short; full detail
// stays in the worker logs.
const maxErrorMessageLen = 1000

// RedisTracker implements the Tracker interface with one hash per job, keyed
// by (partition, job_id), plus a per-partition index set. Field-level HSET
// writes give the last-writer-wins partial-update semantics.
type RedisTracker struct {
	client    *redis.Client
	partition string
	ttl       time.Duration
}

// NewRedisTracker creates a new RedisTracker from a Redis URL. ttl of zero
// keeps records forever.
func NewRedisTracker(redisURL, partition string, ttl time.Duration) (*RedisTracker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisTracker{client: redis.NewClient(opts), partition: partition, ttl: ttl}, nil
}

func (t *RedisTracker) Close() error {
	return t.client.Close()
}

func (t *RedisTracker) Ping(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}

func (t *RedisTracker) Create(ctx context.Context, jobID string, params CreateParams) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	steps, err := json.Marshal(pendingSteps())
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	fields := map[string]any{
		"job_id":         jobID,
		"owner":          params.Owner,
		"status":         models.ProgressQueued,
		"progress":       0,
		"current_step":   "",
		"total_steps":    len(Plan),
		"steps":          string(steps),
		"video_filename": params.VideoFilename,
		"error_message":  "",
		"created_at":     now,
		"updated_at":     now,
	}

	key := recordKey(t.partition, jobID)
	pipe := t.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.SAdd(ctx, indexKey(t.partition), jobID)
	if t.ttl > 0 {
		pipe.Expire(ctx, key, t.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create progress record: %w", err)
	}
	return nil
}

func (t *RedisTracker) Update(ctx context.Context, jobID string, percent int, stepLabel string, opts ...UpdateOption) error {
	params := &updateParams{}
	for _, opt := range opts {
		opt(params)
	}

	fields := map[string]any{
		"progress":     percent,
		"current_step": stepLabel,
		"updated_at":   time.Now().UTC().Format(time.RFC3339Nano),
	}

	// Steps within the plan also advance the status and the step table;
	// labels outside the plan only move percent and the label.
	if idx := planIndex(stepLabel); idx >= 0 {
		steps, err := json.Marshal(stepsAt(idx))
		if err != nil {
			return fmt.Errorf("marshal steps: %w", err)
		}
		fields["status"] = Plan[idx].Status
		fields["steps"] = string(steps)
	}

	if params.partialResult != nil {
		result, err := json.Marshal(params.partialResult)
		if err != nil {
			return fmt.Errorf("marshal partial result: %w", err)
		}
		fields["result"] = string(result)
	}

	if err := t.client.HSet(ctx, recordKey(t.partition, jobID), fields).Err(); err != nil {
		return fmt.Errorf("update progress record: %w", err)
	}
	return nil
}

func (t *RedisTracker) Complete(ctx context.Context, jobID string, result *models.JobResult) error {
	steps, err := json.Marshal(completedSteps())
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	fields := map[string]any{
		"status":       models.ProgressCompleted,
		"progress":     100,
		"current_step": "complete",
		"steps":        string(steps),
		"updated_at":   time.Now().UTC().Format(time.RFC3339Nano),
	}
	if result != nil {
		raw, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		fields["result"] = string(raw)
	}

	if err := t.client.HSet(ctx, recordKey(t.partition, jobID), fields).Err(); err != nil {
		return fmt.Errorf("complete progress record: %w", err)
	}
	return nil
}

func (t *RedisTracker) Fail(ctx context.Context, jobID string, errorMessage string) error {
	if len(errorMessage) > maxErrorMessageLen {
		errorMessage = errorMessage[:maxErrorMessageLen]
	}

	fields := map[string]any{
		"status":        models.ProgressFailed,
		"error_message": errorMessage,
		"updated_at":    time.Now().UTC().Format(time.RFC3339Nano),
	}

	// Best effort: mark the step that was running as failed. Progress itself
	// is left at its last value.
	if rec, err := t.Get(ctx, jobID); err == nil {
		for idx, st := range rec.Steps {
			if st.Status == models.StepRunning {
				rec.Steps[idx] = models.StepState{Name: st.Name, Status: models.StepFailed}
			}
		}
		if steps, err := json.Marshal(rec.Steps); err == nil {
			fields["steps"] = string(steps)
		}
	}

	if err := t.client.HSet(ctx, recordKey(t.partition, jobID), fields).Err(); err != nil {
		return fmt.Errorf("fail progress record: %w", err)
	}
	return nil
}

func (t *RedisTracker) Get(ctx context.Context, jobID string) (*models.JobProgress, error) {
	raw, err := t.client.HGetAll(ctx, recordKey(t.partition, jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get progress record: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrNotFound
	}
	return parseRecord(raw)
}

func (t *RedisTracker) List(ctx context.Context) ([]*models.JobProgress, error) {
	ids, err := t.client.SMembers(ctx, indexKey(t.partition)).Result()
	if err != nil {
		return nil, fmt.Errorf("list progress records: %w", err)
	}

	records := make([]*models.JobProgress, 0, len(ids))
	for _, id := range ids {
		rec, err := t.Get(ctx, id)
		if err == ErrNotFound {
			// Record expired but index entry remains
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRecord(raw map[string]string) (*models.JobProgress, error) {
	rec := &models.JobProgress{
		JobID:         raw["job_id"],
		Owner:         raw["owner"],
		Status:        raw["status"],
		CurrentStep:   raw["current_step"],
		VideoFilename: raw["video_filename"],
		ErrorMessage:  raw["error_message"],
	}

	rec.Progress, _ = strconv.Atoi(raw["progress"])
	rec.TotalSteps, _ = strconv.Atoi(raw["total_steps"])

	if v := raw["steps"]; v != "" {
		if err := json.Unmarshal([]byte(v), &rec.Steps); err != nil {
			return nil, fmt.Errorf("parse steps: %w", err)
		}
	}
	if v := raw["result"]; v != "" {
		if err := json.Unmarshal([]byte(v), &rec.Result); err != nil {
			return nil, fmt.Errorf("parse result: %w", err)
		}
	}
	if v := raw["created_at"]; v != "" {
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, v)
	}
	if v := raw["updated_at"]; v != "" {
		rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, v)
	}

	return rec, nil
}
