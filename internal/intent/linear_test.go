package intent

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestNewLinearScorer_ShapeValidation(t *testing.T) {
	tests := []struct {
		name    string
		labels  []string
		weights [][]float64
		bias    []float64
		wantErr bool
	}{
		{
			name:    "Valid model",
			labels:  []string{"nutrition", "workout"},
			weights: [][]float64{{0.1, 0.2}, {0.3, 0.4}},
			bias:    []float64{0.0, 0.1},
			wantErr: false,
		},
		{
			name:    "No labels",
			labels:  []string{},
			weights: [][]float64{},
			bias:    []float64{},
			wantErr: true,
		},
		{
			name:    "Weight row count mismatch",
			labels:  []string{"nutrition", "workout"},
			weights: [][]float64{{0.1, 0.2}},
			bias:    []float64{0.0, 0.1},
			wantErr: true,
		},
		{
			name:    "Ragged weight rows",
			labels:  []string{"nutrition", "workout"},
			weights: [][]float64{{0.1, 0.2}, {0.3}},
			bias:    []float64{0.0, 0.1},
			wantErr: true,
		},
		{
			name:    "Bias count mismatch",
			labels:  []string{"nutrition", "workout"},
			weights: [][]float64{{0.1}, {0.3}},
			bias:    []float64{0.0},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLinearScorer(tt.labels, tt.weights, tt.bias)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewLinearScorer() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLinearScorer_Score(t *testing.T) {
	scorer, err := NewLinearScorer(
		[]string{"nutrition", "workout"},
		[][]float64{{1.0, 0.0}, {0.0, 2.0}},
		[]float64{0.5, -0.5},
	)
	if err != nil {
		t.Fatalf("NewLinearScorer() error = %v", err)
	}

	margins, err := scorer.Score([]float32{1.0, 1.0})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	// nutrition: 1*1 + 0*1 + 0.5 = 1.5; workout: 0*1 + 2*1 - 0.5 = 1.5
	if math.Abs(margins[0]-1.5) > 1e-9 || math.Abs(margins[1]-1.5) > 1e-9 {
		t.Errorf("Score() = %v, expected [1.5 1.5]", margins)
	}
}

func TestLinearScorer_DimensionMismatch(t *testing.T) {
	scorer, err := NewLinearScorer(
		[]string{"nutrition"},
		[][]float64{{1.0, 0.0}},
		[]float64{0.0},
	)
	if err != nil {
		t.Fatalf("NewLinearScorer() error = %v", err)
	}

	if _, err := scorer.Score([]float32{1.0}); err == nil {
		t.Error("Score() expected dimension mismatch error, got nil")
	}
}

func TestLinearScorer_Decode(t *testing.T) {
	scorer, err := NewLinearScorer(
		[]string{"nutrition", "workout"},
		[][]float64{{1.0}, {2.0}},
		[]float64{0.0, 0.0},
	)
	if err != nil {
		t.Fatalf("NewLinearScorer() error = %v", err)
	}

	label, err := scorer.Decode(1)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if label != LabelWorkout {
		t.Errorf("Decode(1) = %q, expected workout", label)
	}

	if _, err := scorer.Decode(2); err == nil {
		t.Error("Decode(2) expected out-of-range error, got nil")
	}
	if _, err := scorer.Decode(-1); err == nil {
		t.Error("Decode(-1) expected out-of-range error, got nil")
	}
}

func TestLoadLinearScorer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "intent_classifier.json")

	artifact := map[string]interface{}{
		"labels":  []string{"nutrition", "chitchat"},
		"weights": [][]float64{{0.1, 0.2}, {0.3, 0.4}},
		"bias":    []float64{0.0, 0.1},
	}
	data, err := json.Marshal(artifact)
	if err != nil {
		t.Fatalf("marshal artifact: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	scorer, err := LoadLinearScorer(path)
	if err != nil {
		t.Fatalf("LoadLinearScorer() error = %v", err)
	}
	if len(scorer.Labels()) != 2 {
		t.Errorf("Labels() = %v, expected 2 labels", scorer.Labels())
	}

	if _, err := LoadLinearScorer(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("LoadLinearScorer() expected error for missing file, got nil")
	}
}
