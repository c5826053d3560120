package openai

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testOptions() Options {
	return Options{
		APIKey:         "sk-test-key",
		EmbeddingModel: "text-embedding-3-small",
		ChatModel:      "gpt-4o-mini",
		MaxTokens:      300,
		Temperature:    0.2,
		RequestTimeout: 30 * time.Second,
		MaxRetries:     2,
	}
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Options)
		wantErr bool
	}{
		{
			name:    "Valid options",
			mutate:  func(o *Options) {},
			wantErr: false,
		},
		{
			name:    "Missing API key",
			mutate:  func(o *Options) { o.APIKey = "" },
			wantErr: true,
		},
		{
			name:    "Malformed API key",
			mutate:  func(o *Options) { o.APIKey = "not-a-key" },
			wantErr: true,
		},
		{
			name:    "Custom endpoint accepted",
			mutate:  func(o *Options) { o.Endpoint = "http://localhost:9999/v1" },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			tt.mutate(&opts)
			client, err := NewClient(opts, zap.NewNop())
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && client == nil {
				t.Error("NewClient() returned nil client without error")
			}
		})
	}
}

func TestEmbedQuery_EmptyInput(t *testing.T) {
	client, err := NewClient(testOptions(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := client.EmbedQuery(context.Background(), ""); err == nil {
		t.Error("EmbedQuery(empty) expected error, got nil")
	}
}

func TestEmbedTexts_EmptyBatch(t *testing.T) {
	client, err := NewClient(testOptions(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	embeddings, err := client.EmbedTexts(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedTexts(nil) error = %v", err)
	}
	if len(embeddings) != 0 {
		t.Errorf("EmbedTexts(nil) = %v, expected no embeddings and no API call", embeddings)
	}
}

func TestComplete_EmptyPrompt(t *testing.T) {
	client, err := NewClient(testOptions(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := client.Complete(context.Background(), "  \n "); err == nil {
		t.Error("Complete(blank) expected error, got nil")
	}
}

func TestRetryableError_Error(t *testing.T) {
	err := &RetryableError{StatusCode: 429, Message: "rate limited", RetryAfter: 3 * time.Second}
	expected := "retryable error (status 429): rate limited"
	if err.Error() != expected {
		t.Errorf("Error() = %q, expected %q", err.Error(), expected)
	}
}
