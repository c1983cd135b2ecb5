package progress

import (
	"context"
	"errors"

	"github.com/kiranshivaraju/framemill/pkg/models"
)

var ErrNotFound = errors.New("progress record not found")

// CreateParams is the metadata captured when a progress record is created at
// enqueue time.
type CreateParams struct {
	Owner         string
	VideoFilename string
}

// UpdateOption attaches optional fields to an Update call.
type UpdateOption func(*updateParams)

type updateParams struct {
	partialResult *models.JobResult
}

// WithPartialResult attaches an intermediate result to a progress update.
func WithPartialResult(r *models.JobResult) UpdateOption {
	return func(p *updateParams) { p.partialResult = r }
}

// Tracker is the fast, frequently-updated store of in-flight job state.
// Implementations must be safe for concurrent use. All writes are
// last-writer-wins on the fields they supply; partial updates never clobber
// fields they do not mention. Complete and Fail are terminal: callers must
// not issue further writes for that job afterward.
type Tracker interface {
	Create(ctx context.Context, jobID string, params CreateParams) error
	Update(ctx context.Context, jobID string, percent int, stepLabel string, opts ...UpdateOption) error
	Complete(ctx context.Context, jobID string, result *models.JobResult) error
	Fail(ctx context.Context, jobID string, errorMessage string) error
	Get(ctx context.Context, jobID string) (*models.JobProgress, error)
	List(ctx context.Context) ([]*models.JobProgress, error)
	Ping(ctx context.Context) error
}
