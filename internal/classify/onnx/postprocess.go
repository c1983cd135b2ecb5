package onnx

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/kiranshivaraju/framemill/pkg/models"
)

// softmax converts raw logits to probabilities, shifted by the max logit for
// numerical stability.
func softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}

	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}

	probs := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		probs[i] = math.Exp(float64(v - max))
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// topLabels returns the k highest-probability labels, sorted descending.
// Class indices without a label entry fall back to the numeric index.
func topLabels(probs []float64, labels []string, k int) []models.Label {
	indices := make([]int, len(probs))
	for i := range indices {
		indices[i] = i
	}
	sort.Slice(indices, func(a, b int) bool {
		return probs[indices[a]] > probs[indices[b]]
	})

	if k > len(indices) {
		k = len(indices)
	}

	out := make([]models.Label, 0, k)
	for _, idx := range indices[:k] {
		label := fmt.Sprintf("%d", idx)
		if idx < len(labels) {
			label = labels[idx]
		}
		out = append(out, models.Label{
			Index:       idx,
			Label:       label,
			Probability: probs[idx],
		})
	}
	return out
}

// loadLabels reads a label file with one class name per line.
func loadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("label file %s is empty", path)
	}
	return labels, nil
}
