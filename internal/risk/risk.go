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

// Package risk maps classified intents to risk tiers. The mapping table is
// deployment configuration, not logic: swapping the intent taxonomy must not
// require changes here.
package risk

import (
	"fmt"

	"github.com/your-org/fitness-knowledge-service/internal/intent"
)

// Tier represents the severity classification of a question
type Tier string

// Risk tiers ordered by severity
const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// severity orders tiers for comparison
var severity = map[Tier]int{
	TierLow:    0,
	TierMedium: 1,
	TierHigh:   2,
}

// ParseTier converts a configuration string to a Tier
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierLow, TierMedium, TierHigh:
		return Tier(s), nil
	default:
		return "", fmt.Errorf("unknown risk tier %q", s)
	}
}

// AtLeast reports whether t is at least as severe as other
func (t Tier) AtLeast(other Tier) bool {
	return severity[t] >= severity[other]
}

// Evaluator maps intents to risk tiers using an injected mapping table
type Evaluator struct {
	mapping map[intent.Label]Tier
}

// NewEvaluator creates an Evaluator from a label-to-tier mapping.
// Mapping values are validated so a config typo fails at startup, not per request.
func NewEvaluator(mapping map[string]string) (*Evaluator, error) {
	m := make(map[intent.Label]Tier, len(mapping))
	for label, tier := range mapping {
		t, err := ParseTier(tier)
		if err != nil {
			return nil, fmt.Errorf("risk mapping for intent %q: %w", label, err)
		}
		m[intent.Label(label)] = t
	}
	return &Evaluator{mapping: m}, nil
}

// Evaluate returns the risk tier for an intent. Pure and total: intents
// absent from the mapping fall back to low.
func (e *Evaluator) Evaluate(label intent.Label, question string) Tier {
	if tier, ok := e.mapping[label]; ok {
		return tier
	}
	return TierLow
}
