// Copyright 2024 Fitness Knowledge Service Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package intent

import (
	"encoding/json"
	"fmt"
	"os"
)

// linearModelArtifact is the on-disk layout of the exported intent model.
// The offline trainer writes one weight row and one bias per class, with
// labels in class-index order.
type linearModelArtifact struct {
	Labels  []string    `json:"labels"`
	Weights [][]float64 `json:"weights"`
	Bias    []float64   `json:"bias"`
}

// LinearScorer computes per-class margins as w.x + b over a question
// embedding. Loaded once at startup and read-only afterwards, so concurrent
// requests share it without synchronization.
type LinearScorer struct {
	labels     []Label
	weights    [][]float64
	bias       []float64
	dimensions int
}

// LoadLinearScorer reads a linear intent model artifact from disk
func LoadLinearScorer(path string) (*LinearScorer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read intent model artifact: %w", err)
	}

	var artifact linearModelArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to parse intent model artifact: %w", err)
	}

	return NewLinearScorer(artifact.Labels, artifact.Weights, artifact.Bias)
}

// NewLinearScorer creates a scorer from in-memory model parameters
func NewLinearScorer(labels []string, weights [][]float64, bias []float64) (*LinearScorer, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("intent model has no labels")
	}
	if len(weights) != len(labels) || len(bias) != len(labels) {
		return nil, fmt.Errorf("intent model shape mismatch: %d labels, %d weight rows, %d biases",
			len(labels), len(weights), len(bias))
	}

	dimensions := len(weights[0])
	for i, row := range weights {
		if len(row) != dimensions {
			return nil, fmt.Errorf("intent model weight row %d has %d dimensions, expected %d",
				i, len(row), dimensions)
		}
	}

	decoded := make([]Label, len(labels))
	for i, label := range labels {
		decoded[i] = Label(label)
	}

	return &LinearScorer{
		labels:     decoded,
		weights:    weights,
		bias:       bias,
		dimensions: dimensions,
	}, nil
}

// Score implements Scorer
func (s *LinearScorer) Score(vector []float32) ([]float64, error) {
	if len(vector) != s.dimensions {
		return nil, fmt.Errorf("embedding has %d dimensions, model expects %d", len(vector), s.dimensions)
	}

	margins := make([]float64, len(s.labels))
	for class, row := range s.weights {
		sum := s.bias[class]
		for i, w := range row {
			sum += w * float64(vector[i])
		}
		margins[class] = sum
	}
	return margins, nil
}

// Decode implements Scorer
func (s *LinearScorer) Decode(index int) (Label, error) {
	if index < 0 || index >= len(s.labels) {
		return "", fmt.Errorf("class index %d out of range [0,%d)", index, len(s.labels))
	}
	return s.labels[index], nil
}

// Labels returns the model's label order
func (s *LinearScorer) Labels() []Label {
	return s.labels
}
