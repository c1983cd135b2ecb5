package classify

import (
	"fmt"

	"github.com/kiranshivaraju/framemill/internal/classify/mock"
	"github.com/kiranshivaraju/framemill/internal/classify/onnx"
	"github.com/kiranshivaraju/framemill/internal/config"
)

// NewClassifier constructs the configured classifier provider. Called once at
// worker startup; the onnx provider loads the model here and keeps it for the
// process lifetime.
func NewClassifier(cfg config.ClassifierConfig) (Classifier, error) {
	switch cfg.Provider {
	case "mock":
		return mock.NewProvider(), nil
	case "onnx":
		return onnx.NewProvider(cfg)
	default:
		return nil, fmt.Errorf("%w: %q must be one of mock, onnx", ErrUnknownProvider, cfg.Provider)
	}
}
