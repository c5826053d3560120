package safety

import (
	"testing"

	"github.com/your-org/fitness-knowledge-service/internal/risk"
)

func TestCompose(t *testing.T) {
	tests := []struct {
		name     string
		tier     risk.Tier
		expected string
	}{
		{
			name:     "High risk yields medical disclaimer",
			tier:     risk.TierHigh,
			expected: HighRiskNotice,
		},
		{
			name:     "Medium risk yields shortcut disclaimer",
			tier:     risk.TierMedium,
			expected: MediumRiskNotice,
		},
		{
			name:     "Low risk yields no notice",
			tier:     risk.TierLow,
			expected: "",
		},
		{
			name:     "Unknown tier yields no notice",
			tier:     risk.Tier("severe"),
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compose(tt.tier); got != tt.expected {
				t.Errorf("Compose(%q) = %q, expected %q", tt.tier, got, tt.expected)
			}
		})
	}
}

func TestCompose_Deterministic(t *testing.T) {
	first := Compose(risk.TierHigh)
	for i := 0; i < 5; i++ {
		if got := Compose(risk.TierHigh); got != first {
			t.Fatalf("Compose() not deterministic: got %q then %q", first, got)
		}
	}
}
