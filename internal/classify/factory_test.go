package classify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kiranshivaraju/framemill/internal/classify"
	"github.com/kiranshivaraju/framemill/internal/classify/mock"
	"github.com/kiranshivaraju/framemill/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time check that the mock provider satisfies the interface.
var _ classify.Classifier = (*mock.MockProvider)(nil)

func TestNewClassifier_Mock(t *testing.T) {
	c, err := classify.NewClassifier(config.ClassifierConfig{Provider: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "mock", c.Name())
}

func TestNewClassifier_Unknown(t *testing.T) {
	_, err := classify.NewClassifier(config.ClassifierConfig{Provider: "tensorflow"})
	require.Error(t, err)
	assert.ErrorIs(t, err, classify.ErrUnknownProvider)
}

func TestNewClassifier_OnnxMissingModel(t *testing.T) {
	_, err := classify.NewClassifier(config.ClassifierConfig{
		Provider:   "onnx",
		ModelPath:  "/nonexistent/model.onnx",
		LabelsPath: "/nonexistent/labels.txt",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, classify.ErrModelUnavailable)
}

func TestMockProvider_Deterministic(t *testing.T) {
	c := mock.NewProvider()
	ctx := context.Background()

	first, err := c.ClassifyFrame(ctx, "frames/frame_00001.jpg", 3)
	require.NoError(t, err)
	second, err := c.ClassifyFrame(ctx, "frames/frame_00001.jpg", 3)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first, 3)
	for i := 1; i < len(first); i++ {
		assert.GreaterOrEqual(t, first[i-1].Probability, first[i].Probability)
	}
}

func TestMockProvider_RespectsTopK(t *testing.T) {
	c := mock.NewProvider()

	labels, err := c.ClassifyFrame(context.Background(), "frame_00002.jpg", 1)
	require.NoError(t, err)
	assert.Len(t, labels, 1)
}

func TestFailingProvider(t *testing.T) {
	boom := errors.New("decode failure")
	c := mock.NewFailingProvider(boom)

	_, err := c.ClassifyFrame(context.Background(), "frame_00001.jpg", 3)
	assert.ErrorIs(t, err, boom)
}
