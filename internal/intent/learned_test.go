package intent

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type fakeScorer struct {
	margins []float64
	labels  []Label
	err     error
}

func (f *fakeScorer) Score(_ []float32) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.margins, nil
}

func (f *fakeScorer) Decode(index int) (Label, error) {
	if index < 0 || index >= len(f.labels) {
		return "", errors.New("index out of range")
	}
	return f.labels[index], nil
}

func newTestClassifier(embedder Embedder, scorer Scorer) *LearnedClassifier {
	return NewLearnedClassifier(embedder, scorer, 0.3, 3, zap.NewNop())
}

func TestLearnedClassifier_ArgMaxMargin(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}
	scorer := &fakeScorer{
		margins: []float64{0.2, 0.9, 0.5},
		labels:  []Label{LabelNutrition, LabelMedical, LabelWorkout},
	}

	result, err := newTestClassifier(embedder, scorer).Classify(context.Background(), "i have diabetes can i take whey protein")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if result.Label != LabelMedical {
		t.Errorf("Classify() label = %q, expected %q", result.Label, LabelMedical)
	}
	if result.Confidence != 0.9 {
		t.Errorf("Classify() confidence = %v, expected 0.9", result.Confidence)
	}
}

func TestLearnedClassifier_ConfidenceFallback(t *testing.T) {
	tests := []struct {
		name     string
		question string
		expected Label
	}{
		{
			name:     "Short low-confidence question becomes chitchat",
			question: "thanks bro",
			expected: LabelChitchat,
		},
		{
			name:     "Exactly three tokens becomes chitchat",
			question: "ok thanks bro",
			expected: LabelChitchat,
		},
		{
			name:     "Long low-confidence question becomes out of scope",
			question: "what is the capital of France by the way",
			expected: LabelOutOfScope,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder := &fakeEmbedder{vector: []float32{0.1}}
			scorer := &fakeScorer{
				margins: []float64{0.1, 0.05},
				labels:  []Label{LabelNutrition, LabelWorkout},
			}

			result, err := newTestClassifier(embedder, scorer).Classify(context.Background(), tt.question)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if result.Label != tt.expected {
				t.Errorf("Classify(%q) = %q, expected %q", tt.question, result.Label, tt.expected)
			}
			// The reported confidence stays at the raw margin so callers can
			// observe why the fallback fired
			if result.Confidence >= 0.3 {
				t.Errorf("Classify(%q) confidence = %v, expected below threshold", tt.question, result.Confidence)
			}
		})
	}
}

func TestLearnedClassifier_BlankInputSkipsModel(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	scorer := &fakeScorer{margins: []float64{1.0}, labels: []Label{LabelNutrition}}

	result, err := newTestClassifier(embedder, scorer).Classify(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if result.Label != LabelChitchat {
		t.Errorf("Classify(blank) = %q, expected chitchat", result.Label)
	}
	if result.Confidence != MaxConfidence {
		t.Errorf("Classify(blank) confidence = %v, expected maximal", result.Confidence)
	}
	if embedder.calls != 0 {
		t.Errorf("embedder invoked %d times for blank input, expected 0", embedder.calls)
	}
}

func TestLearnedClassifier_CollaboratorFailures(t *testing.T) {
	t.Run("Embedding failure is fatal", func(t *testing.T) {
		embedder := &fakeEmbedder{err: errors.New("embedding service down")}
		scorer := &fakeScorer{margins: []float64{1.0}, labels: []Label{LabelNutrition}}

		_, err := newTestClassifier(embedder, scorer).Classify(context.Background(), "how many carbs daily")
		if err == nil {
			t.Fatal("Classify() expected error, got nil")
		}
	})

	t.Run("Scoring failure is fatal", func(t *testing.T) {
		embedder := &fakeEmbedder{vector: []float32{0.1}}
		scorer := &fakeScorer{err: errors.New("model corrupt")}

		_, err := newTestClassifier(embedder, scorer).Classify(context.Background(), "how many carbs daily")
		if err == nil {
			t.Fatal("Classify() expected error, got nil")
		}
	})

	t.Run("Empty margins is fatal", func(t *testing.T) {
		embedder := &fakeEmbedder{vector: []float32{0.1}}
		scorer := &fakeScorer{margins: []float64{}}

		_, err := newTestClassifier(embedder, scorer).Classify(context.Background(), "how many carbs daily")
		if err == nil {
			t.Fatal("Classify() expected error, got nil")
		}
	})
}
