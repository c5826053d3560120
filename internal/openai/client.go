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

// Package openai wraps the go-openai client for the two collaborator calls
// the pipeline makes: query embedding and grounded text completion. One
// Client is constructed at process start and shared read-only by all
// concurrent requests.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	// ExpectedEmbeddingDimensions defines the embedding dimensions for text-embedding-3-small
	ExpectedEmbeddingDimensions = 1536
	// BaseRetryDelay defines the base delay for exponential backoff
	BaseRetryDelay = time.Second
)

// Options configures the OpenAI client
type Options struct {
	APIKey         string
	Endpoint       string
	EmbeddingModel string
	ChatModel      string
	MaxTokens      int
	Temperature    float64
	RequestTimeout time.Duration
	MaxRetries     int
}

// Client wraps the go-openai client with retries, timeouts, and logging
type Client struct {
	client         *openai.Client
	logger         *zap.Logger
	embeddingModel string
	chatModel      string
	maxTokens      int
	temperature    float32
	requestTimeout time.Duration
	maxRetries     int
}

// RetryableError represents an error that can be retried
type RetryableError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, e.Message)
}

// NewClient creates a new OpenAI client
func NewClient(opts Options, logger *zap.Logger) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if !strings.HasPrefix(opts.APIKey, "sk-") {
		return nil, fmt.Errorf("invalid API key format")
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.Endpoint != "" {
		cfg.BaseURL = opts.Endpoint
	}

	client := &Client{
		client:         openai.NewClientWithConfig(cfg),
		logger:         logger,
		embeddingModel: opts.EmbeddingModel,
		chatModel:      opts.ChatModel,
		maxTokens:      opts.MaxTokens,
		temperature:    float32(opts.Temperature),
		requestTimeout: opts.RequestTimeout,
		maxRetries:     opts.MaxRetries,
	}

	logger.Info("OpenAI client initialized",
		zap.String("embedding_model", opts.EmbeddingModel),
		zap.String("chat_model", opts.ChatModel),
		zap.Int("max_tokens", opts.MaxTokens),
		zap.Float64("temperature", opts.Temperature),
		zap.Duration("request_timeout", opts.RequestTimeout),
		zap.Int("max_retries", opts.MaxRetries),
	)

	return client, nil
}

// EmbedQuery generates an embedding for a single query text
func (c *Client) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if query == "" {
		return nil, fmt.Errorf("query text cannot be empty")
	}

	embeddings, err := c.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned for query")
	}
	return embeddings[0], nil
}

// EmbedTexts generates embeddings for a batch of texts
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var embeddings [][]float32
	err := c.withRetry(ctx, "create_embeddings", func(ctx context.Context) error {
		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(c.embeddingModel),
		})
		if err != nil {
			return c.classifyAPIError(err)
		}
		if len(resp.Data) != len(texts) {
			return fmt.Errorf("unexpected response: got %d embeddings for %d texts", len(resp.Data), len(texts))
		}

		embeddings = make([][]float32, len(resp.Data))
		for i, item := range resp.Data {
			embeddings[i] = item.Embedding
		}
		return nil
	})
	if err != nil {
		c.logger.Error("Failed to create embeddings",
			zap.Error(err),
			zap.Int("text_count", len(texts)),
		)
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	for i, embedding := range embeddings {
		if len(embedding) != ExpectedEmbeddingDimensions {
			return nil, fmt.Errorf("embedding %d has %d dimensions, expected %d",
				i, len(embedding), ExpectedEmbeddingDimensions)
		}
	}

	return embeddings, nil
}

// Complete generates text for a single prompt using the configured chat model.
// Temperature, max tokens, and the request timeout are fixed at construction.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	var content string
	err := c.withRetry(ctx, "chat_completion", func(ctx context.Context) error {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.chatModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			MaxTokens:   c.maxTokens,
			Temperature: c.temperature,
		})
		if err != nil {
			return c.classifyAPIError(err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("no choices returned from OpenAI")
		}

		content = resp.Choices[0].Message.Content
		c.logger.Debug("Chat completion succeeded",
			zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
			zap.Int("prompt_tokens", resp.Usage.PromptTokens),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		)
		return nil
	})
	if err != nil {
		c.logger.Error("Chat completion failed", zap.Error(err))
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	return content, nil
}

// withRetry runs an operation with a per-attempt timeout and exponential
// backoff on retryable errors. Retries live here at the collaborator layer;
// the pipeline graph itself never retries.
func (c *Client) withRetry(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	var lastErr error
	delay := BaseRetryDelay

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying OpenAI request",
				zap.String("operation", operation),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		attemptCtx := ctx
		var cancel context.CancelFunc
		if c.requestTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		}
		err := fn(attemptCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			if attempt > 0 {
				c.logger.Info("OpenAI request succeeded after retry",
					zap.String("operation", operation),
					zap.Int("attempt", attempt+1),
				)
			}
			return nil
		}
		lastErr = err

		retryErr, retryable := err.(*RetryableError)
		if !retryable {
			return err
		}
		if retryErr.RetryAfter > 0 {
			delay = retryErr.RetryAfter
		} else {
			delay = BaseRetryDelay * time.Duration(1<<uint(attempt))
		}
	}

	return fmt.Errorf("exhausted all retry attempts: %w", lastErr)
}

// classifyAPIError decides whether an OpenAI API error is retryable
func (c *Client) classifyAPIError(err error) error {
	if apiErr, ok := err.(*openai.APIError); ok {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("invalid API key or unauthorized access: %w", err)
		case http.StatusTooManyRequests:
			retryAfter := BaseRetryDelay
			if apiErr.RetryAfter != nil {
				retryAfter = time.Duration(*apiErr.RetryAfter) * time.Second
			}
			return &RetryableError{
				StatusCode: apiErr.HTTPStatusCode,
				Message:    apiErr.Message,
				RetryAfter: retryAfter,
			}
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return &RetryableError{
				StatusCode: apiErr.HTTPStatusCode,
				Message:    apiErr.Message,
			}
		default:
			return fmt.Errorf("OpenAI API error (status %d): %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
	}
	return fmt.Errorf("OpenAI client error: %w", err)
}
