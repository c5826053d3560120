package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/your-org/fitness-knowledge-service/internal/risk"
	"github.com/your-org/fitness-knowledge-service/internal/safety"
	"go.uber.org/zap"
)

type fakeCompleter struct {
	response   string
	err        error
	calls      int
	lastPrompt string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func testOptions() Options {
	return Options{
		MaxDocuments:      4,
		DocumentCharLimit: 400,
		AnswerCharLimit:   900,
	}
}

func TestGenerator_EmptyDocumentsSkipsCompletion(t *testing.T) {
	completer := &fakeCompleter{response: "should never be called"}
	generator := NewGenerator(completer, testOptions(), zap.NewNop())

	answer, err := generator.Generate(context.Background(), "rare question", []string{}, risk.TierHigh, safety.HighRiskNotice)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer != InsufficientContextMessage {
		t.Errorf("Generate() = %q, expected the fixed insufficient-context message", answer)
	}
	if completer.calls != 0 {
		t.Errorf("completer invoked %d times with no documents, expected 0", completer.calls)
	}
}

func TestGenerator_GroundedAnswer(t *testing.T) {
	completer := &fakeCompleter{response: "Aim for 1.6 to 2.2 g of protein per kg of body weight."}
	generator := NewGenerator(completer, testOptions(), zap.NewNop())

	answer, err := generator.Generate(context.Background(), "how much protein daily",
		[]string{"Protein needs vary by body weight and training load."}, risk.TierLow, "")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer != completer.response {
		t.Errorf("Generate() = %q, expected model output unchanged", answer)
	}
	if completer.calls != 1 {
		t.Errorf("completer invoked %d times, expected exactly 1", completer.calls)
	}
	if !strings.Contains(completer.lastPrompt, "how much protein daily") {
		t.Error("prompt does not contain the question")
	}
	if !strings.Contains(completer.lastPrompt, "Protein needs vary") {
		t.Error("prompt does not contain the grounding document")
	}
}

func TestGenerator_PromptBounds(t *testing.T) {
	longDoc := strings.Repeat("x", 500)
	documents := []string{longDoc, longDoc, longDoc, longDoc, "fifth document marker"}

	completer := &fakeCompleter{response: "ok"}
	generator := NewGenerator(completer, testOptions(), zap.NewNop())

	if _, err := generator.Generate(context.Background(), "q", documents, risk.TierLow, ""); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if strings.Contains(completer.lastPrompt, "fifth document marker") {
		t.Error("prompt contains the fifth document, expected only the first four")
	}
	if strings.Contains(completer.lastPrompt, strings.Repeat("x", 401)) {
		t.Error("prompt contains an untruncated document, expected 400-char cap")
	}
	if !strings.Contains(completer.lastPrompt, strings.Repeat("x", 400)) {
		t.Error("prompt missing the truncated document body")
	}
}

func TestGenerator_AnswerCharLimit(t *testing.T) {
	completer := &fakeCompleter{response: strings.Repeat("a", 1200)}
	generator := NewGenerator(completer, testOptions(), zap.NewNop())

	answer, err := generator.Generate(context.Background(), "q", []string{"doc"}, risk.TierLow, "")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len([]rune(answer)) != 900 {
		t.Errorf("Generate() length = %d runes, expected 900", len([]rune(answer)))
	}
}

func TestGenerator_DropsBlankLines(t *testing.T) {
	completer := &fakeCompleter{response: "First point.\n\n\n  Second point.  \n\nThird point."}
	generator := NewGenerator(completer, testOptions(), zap.NewNop())

	answer, err := generator.Generate(context.Background(), "q", []string{"doc"}, risk.TierLow, "")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	expected := "First point.\nSecond point.\nThird point."
	if answer != expected {
		t.Errorf("Generate() = %q, expected %q", answer, expected)
	}
}

func TestGenerator_HedgeSubstitution(t *testing.T) {
	hedging := "Sorry, I don't have enough information to say."

	tests := []struct {
		name     string
		tier     risk.Tier
		notice   string
		expected string
	}{
		{
			name:     "High risk hedge becomes medical fallback",
			tier:     risk.TierHigh,
			notice:   "",
			expected: HighRiskFallback,
		},
		{
			name:     "Medium risk hedge becomes shortcut fallback",
			tier:     risk.TierMedium,
			notice:   "",
			expected: MediumRiskFallback,
		},
		{
			name:     "Low risk hedge passes through",
			tier:     risk.TierLow,
			notice:   "",
			expected: hedging,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &fakeCompleter{response: hedging}
			generator := NewGenerator(completer, testOptions(), zap.NewNop())

			answer, err := generator.Generate(context.Background(), "q", []string{"doc"}, tt.tier, tt.notice)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if answer != tt.expected {
				t.Errorf("Generate() = %q, expected %q", answer, tt.expected)
			}
		})
	}
}

func TestGenerator_NoticeMergedOnce(t *testing.T) {
	completer := &fakeCompleter{response: "Balanced meals and steady training work best."}
	generator := NewGenerator(completer, testOptions(), zap.NewNop())

	answer, err := generator.Generate(context.Background(), "q", []string{"doc"},
		risk.TierHigh, safety.HighRiskNotice)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if !strings.HasPrefix(answer, safety.NoticePrefix+"\n"+safety.HighRiskNotice) {
		t.Errorf("Generate() = %q, expected notice-prefixed answer", answer)
	}
	if count := strings.Count(answer, safety.NoticePrefix); count != 1 {
		t.Errorf("notice prefix appears %d times, expected exactly once", count)
	}
	if !strings.HasSuffix(answer, completer.response) {
		t.Errorf("Generate() = %q, expected the model answer after the notice", answer)
	}
}

func TestGenerator_CompletionFailure(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("rate limited")}
	generator := NewGenerator(completer, testOptions(), zap.NewNop())

	if _, err := generator.Generate(context.Background(), "q", []string{"doc"}, risk.TierLow, ""); err == nil {
		t.Fatal("Generate() expected error, got nil")
	}
}
