// Package onnx runs image classification with an ONNX model (MobileNetV2
// trained on ImageNet) through the onnxruntime C library.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kiranshivaraju/framemill/internal/config"
	"github.com/kiranshivaraju/framemill/pkg/models"
	ort "github.com/yalue/onnxruntime_go"
)

// ErrModelUnavailable marks a model, label file, or runtime library that
// could not be loaded at startup.
var ErrModelUnavailable = errors.New("classification model unavailable")

// Tensor names of the torchvision MobileNetV2 export.
const (
	inputName  = "input"
	outputName = "output"
)

// Provider holds the process-lifetime ONNX session. The model is loaded once
// and never mutated afterward; the mutex only serializes access to the
// session's bound input/output tensors.
type Provider struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	labels  []string
}

// NewProvider loads the model and label file. Called once at worker startup.
func NewProvider(cfg config.ClassifierConfig) (*Provider, error) {
	labels, err := loadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: load labels: %v", ErrModelUnavailable, err)
	}

	if cfg.LibPath != "" {
		ort.SetSharedLibraryPath(cfg.LibPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("%w: initialize onnxruntime: %v", ErrModelUnavailable, err)
		}
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, inputSize, inputSize))
	if err != nil {
		return nil, fmt.Errorf("%w: create input tensor: %v", ErrModelUnavailable, err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(labels))))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("%w: create output tensor: %v", ErrModelUnavailable, err)
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{inputName}, []string{outputName},
		[]ort.Value{input}, []ort.Value{output}, nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("%w: load model %s: %v", ErrModelUnavailable, cfg.ModelPath, err)
	}

	return &Provider{session: session, input: input, output: output, labels: labels}, nil
}

func (p *Provider) Name() string { return "onnx" }

// ClassifyFrame scores one frame and returns the topK labels sorted by
// descending probability.
func (p *Provider) ClassifyFrame(ctx context.Context, framePath string, topK int) ([]models.Label, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := preprocess(framePath)
	if err != nil {
		return nil, fmt.Errorf("preprocess %s: %w", framePath, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	copy(p.input.GetData(), data)
	if err := p.session.Run(); err != nil {
		return nil, fmt.Errorf("run inference: %w", err)
	}

	probs := softmax(p.output.GetData())
	return topLabels(probs, p.labels, topK), nil
}

// Close releases the session and tensors. The process-wide runtime
// environment stays initialized for other providers.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session.Destroy()
	p.input.Destroy()
	p.output.Destroy()
}
