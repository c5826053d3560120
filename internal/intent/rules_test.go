package intent

import (
	"context"
	"testing"
)

func TestRuleClassifier_Classify(t *testing.T) {
	classifier := NewRuleClassifier()

	tests := []struct {
		name     string
		question string
		expected Label
	}{
		{
			name:     "Medical signal",
			question: "I have diabetes, what should I eat?",
			expected: LabelMedical,
		},
		{
			name:     "Medical outranks supplement",
			question: "i have diabetes can i take protein powder",
			expected: LabelMedical,
		},
		{
			name:     "Supplement outranks workout",
			question: "should I take creatine before the gym",
			expected: LabelProteinSupplement,
		},
		{
			name:     "Weight loss outranks workout",
			question: "best exercise to lose weight",
			expected: LabelWeightLoss,
		},
		{
			name:     "Workout signal",
			question: "is daily cardio ok",
			expected: LabelWorkout,
		},
		{
			name:     "Nutrition signal",
			question: "how many calories per day",
			expected: LabelNutrition,
		},
		{
			name:     "General fallback",
			question: "what is BMI",
			expected: LabelGeneral,
		},
		{
			name:     "Case insensitive matching",
			question: "IS WHEY PROTEIN SAFE?",
			expected: LabelProteinSupplement,
		},
		{
			name:     "Blank input short-circuits to chitchat",
			question: "   ",
			expected: LabelChitchat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := classifier.Classify(context.Background(), tt.question)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if result.Label != tt.expected {
				t.Errorf("Classify(%q) = %q, expected %q", tt.question, result.Label, tt.expected)
			}
			if result.Confidence != MaxConfidence {
				t.Errorf("Classify(%q) confidence = %v, expected maximal", tt.question, result.Confidence)
			}
		})
	}
}

func TestRuleClassifier_Deterministic(t *testing.T) {
	classifier := NewRuleClassifier()
	question := "protein powder daily safe?"

	first, err := classifier.Classify(context.Background(), question)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	for i := 0; i < 10; i++ {
		result, err := classifier.Classify(context.Background(), question)
		if err != nil {
			t.Fatalf("Classify() error = %v", err)
		}
		if result.Label != first.Label {
			t.Fatalf("Classify() not deterministic: got %q then %q", first.Label, result.Label)
		}
	}
}

func TestRuleClassifier_Taxonomy(t *testing.T) {
	taxonomy := NewRuleClassifier().Taxonomy()

	expected := map[Label]bool{
		LabelMedical:           true,
		LabelProteinSupplement: true,
		LabelWeightLoss:        true,
		LabelWorkout:           true,
		LabelNutrition:         true,
		LabelGeneral:           true,
		LabelChitchat:          true,
	}

	if len(taxonomy) != len(expected) {
		t.Fatalf("Taxonomy() returned %d labels, expected %d", len(taxonomy), len(expected))
	}
	for _, label := range taxonomy {
		if !expected[label] {
			t.Errorf("Taxonomy() contains unexpected label %q", label)
		}
	}
}
