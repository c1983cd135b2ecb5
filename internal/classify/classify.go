package classify

import (
	"context"
	"errors"

	"github.com/kiranshivaraju/framemill/internal/classify/onnx"
	"github.com/kiranshivaraju/framemill/pkg/models"
)

var (
	// ErrModelUnavailable is the onnx provider's sentinel, re-exported so
	// callers classify startup failures without importing the provider.
	ErrModelUnavailable = onnx.ErrModelUnavailable
	ErrUnknownProvider  = errors.New("unknown classifier provider")
)

// Classifier scores one frame image against the classification model.
// Implementations load the model once and reuse it across all frames and all
// jobs; they must be safe for concurrent use. Returned labels are sorted by
// descending probability and capped at topK.
type Classifier interface {
	Name() string
	ClassifyFrame(ctx context.Context, framePath string, topK int) ([]models.Label, error)
}
