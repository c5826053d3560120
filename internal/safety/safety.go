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

// Package safety derives soft disclaimer notices from risk tiers. Notices are
// advisory text merged into the final answer; they never block routing.
package safety

import "github.com/your-org/fitness-knowledge-service/internal/risk"

const (
	// HighRiskNotice is prepended to answers for medical-adjacent questions
	HighRiskNotice = "This question involves a medical condition. " +
		"The information below is general and not a substitute " +
		"for professional medical advice."
	// MediumRiskNotice is prepended to answers for commonly misused topics
	MediumRiskNotice = "There are no safe shortcuts. " +
		"The guidance below focuses on healthy, sustainable practices."

	// NoticePrefix marks the disclaimer block when merged into an answer
	NoticePrefix = "Note:"
)

// Compose returns the disclaimer for a risk tier, or the empty string for
// low-risk questions. Side-effect-free; called once per request.
func Compose(tier risk.Tier) string {
	switch tier {
	case risk.TierHigh:
		return HighRiskNotice
	case risk.TierMedium:
		return MediumRiskNotice
	default:
		return ""
	}
}
