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

// Package pipeline orchestrates question answering as a fixed state machine:
//
//	classify -> safety -> {chitchat | out_of_scope | retrieve -> answer}
//
// A single linear-with-one-branch traversal per request, no cycles and no
// retries inside the graph. All expensive collaborators are injected at
// construction and shared read-only across concurrent requests.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/your-org/fitness-knowledge-service/internal/intent"
	"github.com/your-org/fitness-knowledge-service/internal/risk"
	"github.com/your-org/fitness-knowledge-service/internal/safety"
	"go.uber.org/zap"
)

// Canned terminal responses. These bypass retrieval and generation entirely.
const (
	// ChitchatResponse greets and redirects casual conversation
	ChitchatResponse = "Hey! How can I help you with fitness or nutrition today?"
	// OutOfScopeResponse lists what the assistant can actually do
	OutOfScopeResponse = "I can answer questions about workouts, nutrition, weight management, " +
		"and supplement safety. Could you ask me something in one of those areas?"
)

// route identifies the branch taken after the safety node
type route int

const (
	routeRetrieve route = iota
	routeChitchat
	routeOutOfScope
)

// Retriever is the retrieval gate + top-k document fetcher
type Retriever interface {
	Retrieve(ctx context.Context, label intent.Label, question string) ([]string, error)
}

// Generator produces the final grounded answer text
type Generator interface {
	Generate(ctx context.Context, question string, documents []string, tier risk.Tier, safetyNotice string) (string, error)
}

// Deps holds the injected pipeline collaborators
type Deps struct {
	Classifier intent.Classifier
	Evaluator  *risk.Evaluator
	Retriever  Retriever
	Generator  Generator
	Taxonomy   []intent.Label
	Logger     *zap.Logger
}

// Pipeline is the question-answering orchestrator
type Pipeline struct {
	classifier intent.Classifier
	evaluator  *risk.Evaluator
	retriever  Retriever
	generator  Generator
	routes     map[intent.Label]route
	logger     *zap.Logger
}

// New constructs a Pipeline and its branch table. Every taxonomy label is
// bound to exactly one branch up front, so routing cannot fall through to a
// default at request time.
func New(deps Deps) (*Pipeline, error) {
	if deps.Classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if deps.Evaluator == nil {
		return nil, fmt.Errorf("risk evaluator is required")
	}
	if deps.Retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	if deps.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if len(deps.Taxonomy) == 0 {
		return nil, fmt.Errorf("intent taxonomy is required")
	}

	routes := make(map[intent.Label]route, len(deps.Taxonomy))
	for _, label := range deps.Taxonomy {
		if strings.TrimSpace(string(label)) == "" {
			return nil, fmt.Errorf("taxonomy contains an empty intent label")
		}
		if _, exists := routes[label]; exists {
			return nil, fmt.Errorf("taxonomy contains duplicate intent label %q", label)
		}
		switch label {
		case intent.LabelChitchat:
			routes[label] = routeChitchat
		case intent.LabelOutOfScope:
			routes[label] = routeOutOfScope
		default:
			routes[label] = routeRetrieve
		}
	}
	// The confidence fallback can emit these even when the configured
	// taxonomy omits them, so they are always routable.
	if _, ok := routes[intent.LabelChitchat]; !ok {
		routes[intent.LabelChitchat] = routeChitchat
	}
	if _, ok := routes[intent.LabelOutOfScope]; !ok {
		routes[intent.LabelOutOfScope] = routeOutOfScope
	}

	return &Pipeline{
		classifier: deps.Classifier,
		evaluator:  deps.Evaluator,
		retriever:  deps.Retriever,
		generator:  deps.Generator,
		routes:     routes,
		logger:     deps.Logger,
	}, nil
}

// Ask answers a single question. Blank input fails with ErrEmptyInput before
// any collaborator is invoked; any internal failure surfaces as a
// ProcessingError whose detail is logged but never echoed to callers.
func (p *Pipeline) Ask(ctx context.Context, question string) (string, error) {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return "", ErrEmptyInput
	}

	state := newState(trimmed)

	state, err := p.classifyNode(ctx, state)
	if err != nil {
		p.logger.Error("Classification failed", zap.Error(err))
		return "", &ProcessingError{Stage: StageClassify, Err: err}
	}

	state = p.safetyNode(state)

	branch, ok := p.routes[state.Intent]
	if !ok {
		err := fmt.Errorf("no route for intent %q", state.Intent)
		p.logger.Error("Routing failed", zap.Error(err))
		return "", &ProcessingError{Stage: StageRoute, Err: err}
	}

	switch branch {
	case routeChitchat:
		state = p.chitchatNode(state)
	case routeOutOfScope:
		state = p.outOfScopeNode(state)
	case routeRetrieve:
		state, err = p.retrieveNode(ctx, state)
		if err != nil {
			p.logger.Error("Retrieval failed", zap.Error(err))
			return "", &ProcessingError{Stage: StageRetrieve, Err: err}
		}
		state, err = p.answerNode(ctx, state)
		if err != nil {
			p.logger.Error("Answer generation failed", zap.Error(err))
			return "", &ProcessingError{Stage: StageGenerate, Err: err}
		}
	}

	p.logger.Info("Question answered",
		zap.String("intent", string(state.Intent)),
		zap.String("risk", string(state.Risk)),
		zap.Int("documents", len(state.Documents)),
		zap.Int("answer_length", len(state.Answer)),
	)

	return state.Answer, nil
}

// classifyNode runs intent classification and risk evaluation. Risk is always
// recomputed from the freshly classified intent, never carried over.
func (p *Pipeline) classifyNode(ctx context.Context, state State) (State, error) {
	result, err := p.classifier.Classify(ctx, state.Question)
	if err != nil {
		return state, err
	}

	confidence := result.Confidence
	state.Intent = result.Label
	state.Confidence = &confidence
	state.Risk = p.evaluator.Evaluate(result.Label, state.Question)

	p.logger.Debug("Question classified",
		zap.String("intent", string(state.Intent)),
		zap.Float64("confidence", confidence),
		zap.String("risk", string(state.Risk)),
	)

	return state, nil
}

// safetyNode derives the disclaimer from the risk tier. It never blocks
// routing and writes the notice at most once.
func (p *Pipeline) safetyNode(state State) State {
	if state.SafetyNotice == "" {
		state.SafetyNotice = safety.Compose(state.Risk)
	}
	return state
}

// chitchatNode is the fast exit for casual conversation
func (p *Pipeline) chitchatNode(state State) State {
	state.Answer = ChitchatResponse
	return state
}

// outOfScopeNode answers questions the assistant cannot help with
func (p *Pipeline) outOfScopeNode(state State) State {
	state.Answer = OutOfScopeResponse
	return state
}

// retrieveNode fetches grounding documents through the retrieval gate
func (p *Pipeline) retrieveNode(ctx context.Context, state State) (State, error) {
	documents, err := p.retriever.Retrieve(ctx, state.Intent, state.Question)
	if err != nil {
		return state, err
	}
	state.Documents = documents
	return state, nil
}

// answerNode generates the final grounded answer and merges the notice
func (p *Pipeline) answerNode(ctx context.Context, state State) (State, error) {
	text, err := p.generator.Generate(ctx, state.Question, state.Documents, state.Risk, state.SafetyNotice)
	if err != nil {
		return state, err
	}
	state.Answer = text
	return state, nil
}
