package store

import (
	"context"
	"errors"

	"github.com/kiranshivaraju/framemill/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidStatus = errors.New("invalid job status")

// JobFilter narrows ListJobs results. Zero values mean "any".
type JobFilter struct {
	Status string
	Owner  string
	Limit  int
	Offset int
}

// Store is the data access interface for the relational system-of-record.
// All database operations go through here. A job row is written twice in its
// lifetime: CreateJob at enqueue (status=queued) and FinalizeJob by the
// worker with the terminal outcome. Only the pipeline orchestrator may call
// FinalizeJob.
type Store interface {
	Ping(ctx context.Context) error

	CreateVideo(ctx context.Context, video *models.Video) error
	GetVideo(ctx context.Context, id int64) (*models.Video, error)

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	GetJobForOwner(ctx context.Context, jobID, owner string) (*models.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, int, error)
	FinalizeJob(ctx context.Context, jobID string, params FinalizeParams) error
}

// FinalizeParams carries the terminal outcome of one job. Status must be
// done or failed.
type FinalizeParams struct {
	Status             string
	Result             *models.JobResult
	OutputObjectKey    *string
	ThumbnailObjectKey *string
	ErrorMessage       *string
}
