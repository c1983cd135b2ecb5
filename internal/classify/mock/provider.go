package mock

import (
	"context"
	"hash/fnv"
	"path/filepath"

	"github.com/kiranshivaraju/framemill/pkg/models"
)

// MockProvider is a deterministic classifier for tests and local runs
// without a model file.
type MockProvider struct {
	Name_             string
	ClassifyFrameFunc func(ctx context.Context, framePath string, topK int) ([]models.Label, error)
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) ClassifyFrame(ctx context.Context, framePath string, topK int) ([]models.Label, error) {
	if m.ClassifyFrameFunc != nil {
		return m.ClassifyFrameFunc(ctx, framePath, topK)
	}
	return deterministicLabels(framePath, topK), nil
}

// NewProvider returns a MockProvider producing stable labels derived from the
// frame filename, sorted by descending probability like the real provider.
func NewProvider() *MockProvider {
	return &MockProvider{Name_: "mock"}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		ClassifyFrameFunc: func(_ context.Context, _ string, _ int) ([]models.Label, error) {
			return nil, err
		},
	}
}

var mockLabels = []string{"goldfish", "tabby", "golden retriever", "sports car", "espresso", "park bench"}

func deterministicLabels(framePath string, topK int) []models.Label {
	h := fnv.New32a()
	_, _ = h.Write([]byte(filepath.Base(framePath)))
	seed := int(h.Sum32())

	if topK > len(mockLabels) {
		topK = len(mockLabels)
	}

	labels := make([]models.Label, 0, topK)
	prob := 0.9
	for i := 0; i < topK; i++ {
		idx := (seed + i) % len(mockLabels)
		labels = append(labels, models.Label{
			Index:       idx,
			Label:       mockLabels[idx],
			Probability: prob,
		})
		prob /= 2
	}
	return labels
}
