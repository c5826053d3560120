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

package pipeline

import (
	"github.com/your-org/fitness-knowledge-service/internal/intent"
	"github.com/your-org/fitness-knowledge-service/internal/risk"
)

// State is the single record threaded through the pipeline. One State exists
// per inbound question; nodes receive it by value and return an updated copy,
// so no node mutates shared memory. Each field is written by exactly one
// node and never overwritten afterwards:
//
//	Question     set at entry, immutable
//	Intent       classify node
//	Confidence   classify node (nil for the rule-based strategy semantics)
//	Risk         classify node, recomputed from Intent, never read from elsewhere
//	Documents    retrieve node, deterministically empty for ineligible intents
//	SafetyNotice safety node, at most once
//	Answer       exactly one terminal node
type State struct {
	Question     string
	Intent       intent.Label
	Confidence   *float64
	Risk         risk.Tier
	Documents    []string
	SafetyNotice string
	Answer       string
}

// newState creates the initial state with only the question populated
func newState(question string) State {
	return State{Question: question}
}
