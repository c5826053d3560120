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

// Package retrieval gates and performs document retrieval for grounded
// answering. Only domain intents reach the similarity index: chitchat,
// general, and out-of-scope questions skip the external call entirely, which
// saves latency and keeps irrelevant context out of the prompt.
package retrieval

import (
	"context"
	"fmt"

	"github.com/your-org/fitness-knowledge-service/internal/chroma"
	"github.com/your-org/fitness-knowledge-service/internal/intent"
	"go.uber.org/zap"
)

// Embedder converts question text into an embedding vector
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Index performs embedding similarity search over the document collection
type Index interface {
	Query(ctx context.Context, embedding []float32, k int) ([]chroma.Passage, error)
}

// ineligible lists intents that never trigger retrieval, regardless of taxonomy
var ineligible = map[intent.Label]bool{
	intent.LabelChitchat:   true,
	intent.LabelGeneral:    true,
	intent.LabelOutOfScope: true,
}

// Retriever fetches the top-k most similar passages for a question. The
// embedder and index handles are constructed once per process and reused;
// rebuilding them per call is disallowed for cost reasons.
type Retriever struct {
	embedder Embedder
	index    Index
	topK     int
	eligible map[intent.Label]bool
	logger   *zap.Logger
}

// NewRetriever creates a Retriever. The eligible set is derived from the
// taxonomy: every domain label except chitchat/general/out_of_scope.
func NewRetriever(embedder Embedder, index Index, topK int, taxonomy []intent.Label, logger *zap.Logger) *Retriever {
	eligible := make(map[intent.Label]bool, len(taxonomy))
	for _, label := range taxonomy {
		if !ineligible[label] {
			eligible[label] = true
		}
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		topK:     topK,
		eligible: eligible,
		logger:   logger,
	}
}

// Eligible reports whether an intent triggers document retrieval
func (r *Retriever) Eligible(label intent.Label) bool {
	return r.eligible[label]
}

// Retrieve returns the top-k passages for a question, or an empty slice
// without any external call when the intent is retrieval-ineligible.
// A transport failure is an error; an empty result set is not — downstream
// it means "no grounding found", which has its own safe handling.
func (r *Retriever) Retrieve(ctx context.Context, label intent.Label, question string) ([]string, error) {
	if !r.eligible[label] {
		r.logger.Debug("Retrieval skipped for ineligible intent",
			zap.String("intent", string(label)))
		return []string{}, nil
	}

	embedding, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question for retrieval: %w", err)
	}

	passages, err := r.index.Query(ctx, embedding, r.topK)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	documents := make([]string, 0, len(passages))
	for _, passage := range passages {
		documents = append(documents, passage.Content)
	}

	r.logger.Debug("Retrieval completed",
		zap.String("intent", string(label)),
		zap.Int("top_k", r.topK),
		zap.Int("documents", len(documents)))

	return documents, nil
}
