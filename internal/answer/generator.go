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

// Package answer generates grounded answers from retrieved passages. Without
// grounding, no generation call is made at all — the model is never allowed
// to invent an answer from nothing.
package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/your-org/fitness-knowledge-service/internal/risk"
	"github.com/your-org/fitness-knowledge-service/internal/safety"
	"go.uber.org/zap"
)

// Fixed response texts
const (
	// InsufficientContextMessage is returned when retrieval produced no documents
	InsufficientContextMessage = "I don't have enough information in my knowledge base to answer that. " +
		"Try rephrasing your fitness or nutrition question."

	// MediumRiskFallback replaces hedging output on medium-risk questions
	MediumRiskFallback = "There are no safe shortcuts for this goal. " +
		"Sustainable results come from consistent, healthy habits " +
		"such as balanced nutrition, regular physical activity, " +
		"and proper recovery."

	// HighRiskFallback replaces hedging output on high-risk questions
	HighRiskFallback = "General nutrition and lifestyle guidance can be followed safely, " +
		"but individual medical conditions require personalized advice " +
		"from a qualified healthcare professional."

	// hedgePhrase detects the model's own "can't answer" language
	hedgePhrase = "don't have enough information"
)

// Completer is the external text-generation collaborator
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Options bounds context assembly and output length
type Options struct {
	MaxDocuments      int
	DocumentCharLimit int
	AnswerCharLimit   int
}

// Generator builds grounded prompts and post-processes model output
type Generator struct {
	completer Completer
	opts      Options
	logger    *zap.Logger
}

// NewGenerator creates a Generator around a shared completion client
func NewGenerator(completer Completer, opts Options, logger *zap.Logger) *Generator {
	return &Generator{
		completer: completer,
		opts:      opts,
		logger:    logger,
	}
}

// Generate produces the final answer text for a question.
//
// With no documents it returns the fixed insufficient-context message
// immediately. Otherwise it makes exactly one completion call, caps and
// cleans the output, substitutes a risk-appropriate fallback when the model
// hedges at elevated risk, and prepends the safety notice exactly once.
func (g *Generator) Generate(ctx context.Context, question string, documents []string, tier risk.Tier, safetyNotice string) (string, error) {
	if len(documents) == 0 {
		g.logger.Debug("No grounding documents, returning insufficient-context message")
		return InsufficientContextMessage, nil
	}

	prompt := g.buildPrompt(question, documents)

	raw, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("answer generation failed: %w", err)
	}

	finalAnswer := truncateRunes(strings.TrimSpace(raw), g.opts.AnswerCharLimit)
	finalAnswer = dropBlankLines(finalAnswer)

	// The model's own hedging must never be the only content delivered at
	// elevated risk.
	if tier.AtLeast(risk.TierMedium) && strings.Contains(strings.ToLower(finalAnswer), hedgePhrase) {
		replacement := MediumRiskFallback
		if tier == risk.TierHigh {
			replacement = HighRiskFallback
		}
		g.logger.Info("Hedging output replaced with risk fallback",
			zap.String("risk", string(tier)))
		finalAnswer = replacement
	}

	return mergeNotice(finalAnswer, safetyNotice), nil
}

// buildPrompt assembles the grounded instruction prompt
func (g *Generator) buildPrompt(question string, documents []string) string {
	docs := documents
	if len(docs) > g.opts.MaxDocuments {
		docs = docs[:g.opts.MaxDocuments]
	}

	truncated := make([]string, len(docs))
	for i, doc := range docs {
		truncated[i] = truncateRunes(doc, g.opts.DocumentCharLimit)
	}
	context := strings.Join(truncated, "\n\n")

	return fmt.Sprintf(`You are a fitness and nutrition assistant.

RULES:
- Use ONLY the information from the context
- Do NOT copy or repeat the context word-for-word
- Give a direct answer first, then a short explanation if needed
- Keep answers concise, practical, and easy to understand
- Do NOT give medical diagnosis or treatment
- If the question suggests unsafe or extreme practices, gently correct it
- Avoid long paragraphs or unnecessary details

Context:
%s

Question:
%s

Answer:
`, context, question)
}

// mergeNotice prepends the safety notice to the answer exactly once
func mergeNotice(answer, notice string) string {
	if notice == "" {
		return answer
	}
	return fmt.Sprintf("%s\n%s\n\n%s", safety.NoticePrefix, notice, answer)
}

// dropBlankLines removes empty lines and trims the remaining ones
func dropBlankLines(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(lines, "\n")
}

// truncateRunes hard-caps text to a maximum rune count
func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
