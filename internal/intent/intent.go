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

// Package intent classifies fitness and nutrition questions into a closed
// label taxonomy. Two interchangeable strategies are provided: a deterministic
// keyword matcher and a learned embedding + linear-margin classifier.
package intent

import (
	"context"
	"strings"
)

// Label is the coarse topic assigned to a question. The label set in use is
// deployment configuration; the constants below cover both shipped taxonomies.
type Label string

// Labels of the learned (canonical) taxonomy
const (
	LabelMedical    Label = "medical"
	LabelNutrition  Label = "nutrition"
	LabelWorkout    Label = "workout"
	LabelGeneral    Label = "general"
	LabelChitchat   Label = "chitchat"
	LabelOutOfScope Label = "out_of_scope"
)

// Additional labels of the rule-based taxonomy
const (
	LabelProteinSupplement Label = "protein_supplement"
	LabelWeightLoss        Label = "weight_loss"
)

// MaxConfidence is reported when classification is certain by construction:
// blank-input short circuits and every rule-based match.
const MaxConfidence = 1.0

// Result is the outcome of classifying a single question
type Result struct {
	Label      Label
	Confidence float64
}

// Classifier maps a question to an intent label with a confidence score
type Classifier interface {
	Classify(ctx context.Context, question string) (Result, error)
}

// tokenCount counts whitespace-separated tokens in a question
func tokenCount(question string) int {
	return len(strings.Fields(question))
}
