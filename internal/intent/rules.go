package intent

import (
	"context"
	"strings"
)

// keywordGroup is one ordered rule: the first group whose keywords match wins
type keywordGroup struct {
	label    Label
	keywords []string
}

// RuleClassifier is the deterministic keyword classifier. Category overlap is
// resolved by group order, not by match specificity: medical signals outrank
// supplement signals, which outrank weight-loss, workout, and nutrition.
type RuleClassifier struct {
	groups   []keywordGroup
	fallback Label
}

// NewRuleClassifier creates the keyword classifier with the built-in rule set
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{
		groups: []keywordGroup{
			{
				label: LabelMedical,
				keywords: []string{
					"diabetes", "sugar problem", "bp", "blood pressure", "thyroid",
					"pcos", "pcod", "pregnant", "pregnancy", "heart problem",
					"asthma", "kidney problem", "liver problem", "doctor",
					"medicine", "medical problem", "health issue",
				},
			},
			{
				label: LabelProteinSupplement,
				keywords: []string{
					"protein", "protein powder", "whey", "whey protein", "isolate",
					"concentrate", "casein", "mass gainer", "supplement", "bcaa",
					"creatine", "lactose",
				},
			},
			{
				label: LabelWeightLoss,
				keywords: []string{
					"weight loss", "lose weight", "reduce weight", "fat loss",
					"belly fat", "lose fat", "slim", "slimming", "thin",
					"how to lose weight", "how reduce weight",
				},
			},
			{
				label: LabelWorkout,
				keywords: []string{
					"gym", "workout", "exercise", "training", "cardio", "weights",
					"lifting", "running", "walking", "yoga", "home workout",
					"bodybuilding", "muscle",
				},
			},
			{
				label: LabelNutrition,
				keywords: []string{
					"diet", "food", "eat", "eating", "meal", "calories", "carbs",
					"fat", "vitamin", "nutrition", "healthy food", "junk food",
				},
			},
		},
		fallback: LabelGeneral,
	}
}

// Classify returns the label of the first matching keyword group, or the
// general fallback. Deterministic, never fails, confidence is always maximal.
func (c *RuleClassifier) Classify(_ context.Context, question string) (Result, error) {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return Result{Label: LabelChitchat, Confidence: MaxConfidence}, nil
	}

	for _, group := range c.groups {
		for _, keyword := range group.keywords {
			if strings.Contains(q, keyword) {
				return Result{Label: group.label, Confidence: MaxConfidence}, nil
			}
		}
	}

	return Result{Label: c.fallback, Confidence: MaxConfidence}, nil
}

// Taxonomy returns the label set this classifier can produce
func (c *RuleClassifier) Taxonomy() []Label {
	labels := make([]Label, 0, len(c.groups)+2)
	for _, group := range c.groups {
		labels = append(labels, group.label)
	}
	return append(labels, c.fallback, LabelChitchat)
}
