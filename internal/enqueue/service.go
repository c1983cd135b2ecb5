// Package enqueue is the submit side of the pipeline: it stores the input
// video, creates the job and progress records, and publishes the job
// descriptor the worker consumes.
package enqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/framemill/internal/objectstore"
	"github.com/kiranshivaraju/framemill/internal/progress"
	"github.com/kiranshivaraju/framemill/internal/queue"
	"github.com/kiranshivaraju/framemill/internal/store"
	"github.com/kiranshivaraju/framemill/pkg/models"
)

// Service wires the enqueue-time collaborators. It never writes terminal job
// state; that belongs to the worker's orchestrator.
type Service struct {
	objects   objectstore.Store
	store     store.Store
	tracker   progress.Tracker
	publisher queue.Publisher
	logger    *slog.Logger
}

func New(objects objectstore.Store, st store.Store, tracker progress.Tracker,
	publisher queue.Publisher, logger *slog.Logger) *Service {
	return &Service{
		objects:   objects,
		store:     st,
		tracker:   tracker,
		publisher: publisher,
		logger:    logger,
	}
}

// Submission describes one accepted job.
type Submission struct {
	JobID     string
	ObjectKey string
	VideoID   int64
}

// Submit uploads the local video file, records it, and enqueues a processing
// job owned by user. The record writes happen before the publish so a worker
// that races the enqueue always finds the job row.
func (s *Service) Submit(ctx context.Context, localPath, user string) (Submission, error) {
	if user == "" {
		return Submission{}, errors.New("submit: user is required")
	}
	filename := filepath.Base(localPath)
	jobID := uuid.NewString()
	objectKey := objectstore.UploadKey(jobID, filename)
	now := time.Now().UTC()

	ref, err := s.objects.Upload(ctx, localPath, objectKey, "video/mp4")
	if err != nil {
		return Submission{}, fmt.Errorf("upload input video: %w", err)
	}

	video := &models.Video{
		Filename:  filename,
		Owner:     user,
		ObjectKey: ref.Key,
		ObjectURL: ref.URL,
		CreatedAt: now,
	}
	if err := s.store.CreateVideo(ctx, video); err != nil {
		return Submission{}, fmt.Errorf("create video record: %w", err)
	}

	job := &models.Job{
		JobID:          jobID,
		VideoID:        &video.ID,
		Owner:          user,
		Status:         models.JobStatusQueued,
		InputObjectKey: ref.Key,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return Submission{}, fmt.Errorf("create job record: %w", err)
	}

	if err := s.tracker.Create(ctx, jobID, progress.CreateParams{
		Owner:         user,
		VideoFilename: filename,
	}); err != nil {
		// The job row exists and polling falls back to it; a missing progress
		// record just degrades step detail until the worker writes one.
		s.logger.Warn("creating progress record failed", "job_id", jobID, "error", err)
	}

	msg := models.JobMessage{
		JobID:     jobID,
		ObjectKey: ref.Key,
		User:      user,
		Timestamp: now,
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		return Submission{}, fmt.Errorf("publish job message: %w", err)
	}

	s.logger.Info("job enqueued", "job_id", jobID, "object_key", ref.Key, "user", user)
	return Submission{JobID: jobID, ObjectKey: ref.Key, VideoID: video.ID}, nil
}

// JobStatus combines the fast progress view with the authoritative job row.
// Either half may be absent: Progress expires with its TTL, and Job is nil
// only if the caller asked before the enqueue transaction finished.
type JobStatus struct {
	Job      *models.Job
	Progress *models.JobProgress
}

// Status reads both stores for one job. ErrNotFound is returned only when
// neither store knows the job.
func (s *Service) Status(ctx context.Context, jobID string) (JobStatus, error) {
	var status JobStatus

	job, err := s.store.GetJob(ctx, jobID)
	switch {
	case err == nil:
		status.Job = job
	case errors.Is(err, store.ErrNotFound):
		// fall through to the progress read
	default:
		return JobStatus{}, fmt.Errorf("read job record: %w", err)
	}

	prog, err := s.tracker.Get(ctx, jobID)
	switch {
	case err == nil:
		status.Progress = prog
	case errors.Is(err, progress.ErrNotFound):
	default:
		return JobStatus{}, fmt.Errorf("read progress record: %w", err)
	}

	if status.Job == nil && status.Progress == nil {
		return JobStatus{}, store.ErrNotFound
	}
	return status, nil
}
