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
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Embedder converts question text into a fixed-dimension vector
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Scorer computes per-class decision margins for an embedded question
type Scorer interface {
	// Score returns one margin per class in the model's label order
	Score(vector []float32) ([]float64, error)
	// Decode maps a class index back to its intent label
	Decode(index int) (Label, error)
}

// LearnedClassifier predicts intent via embedding + linear decision margins.
// Low-margin predictions never pass through as an answerable domain intent:
// they are overridden to chitchat or out_of_scope by question length.
type LearnedClassifier struct {
	embedder            Embedder
	scorer              Scorer
	confidenceThreshold float64
	shortQuestionTokens int
	logger              *zap.Logger
}

// NewLearnedClassifier creates a classifier around the shared embedding and
// scoring collaborators. Both handles are constructed once per process and
// reused across requests.
func NewLearnedClassifier(embedder Embedder, scorer Scorer, confidenceThreshold float64, shortQuestionTokens int, logger *zap.Logger) *LearnedClassifier {
	return &LearnedClassifier{
		embedder:            embedder,
		scorer:              scorer,
		confidenceThreshold: confidenceThreshold,
		shortQuestionTokens: shortQuestionTokens,
		logger:              logger,
	}
}

// Classify predicts the intent of a question. Blank input short-circuits to
// chitchat without touching the model. Embedding or scoring failures are
// returned as errors: substituting a default intent here would mis-assign the
// downstream risk tier.
func (c *LearnedClassifier) Classify(ctx context.Context, question string) (Result, error) {
	if tokenCount(question) == 0 {
		return Result{Label: LabelChitchat, Confidence: MaxConfidence}, nil
	}

	vector, err := c.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return Result{}, fmt.Errorf("failed to embed question: %w", err)
	}

	margins, err := c.scorer.Score(vector)
	if err != nil {
		return Result{}, fmt.Errorf("failed to score question embedding: %w", err)
	}
	if len(margins) == 0 {
		return Result{}, fmt.Errorf("scorer returned no class margins")
	}

	best := 0
	for i, margin := range margins {
		if margin > margins[best] {
			best = i
		}
	}

	label, err := c.scorer.Decode(best)
	if err != nil {
		return Result{}, fmt.Errorf("failed to decode class index %d: %w", best, err)
	}
	confidence := margins[best]

	if confidence < c.confidenceThreshold {
		fallback := LabelOutOfScope
		if tokenCount(question) <= c.shortQuestionTokens {
			fallback = LabelChitchat
		}
		c.logger.Debug("Low-confidence prediction overridden",
			zap.String("predicted_intent", string(label)),
			zap.Float64("confidence", confidence),
			zap.Float64("threshold", c.confidenceThreshold),
			zap.String("fallback_intent", string(fallback)),
		)
		label = fallback
	}

	return Result{Label: label, Confidence: confidence}, nil
}
