// Package chroma wraps the ChromaDB REST API for the fitness document
// collection: collection lifecycle for ingestion and embedding-based top-k
// queries for retrieval.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client wraps the ChromaDB REST API
type Client struct {
	baseURL        string
	collection     string
	httpClient     *http.Client
	logger         *zap.Logger
	maxRetries     int
	baseRetryDelay time.Duration
}

// NewClient creates a new ChromaDB client with default retry settings
func NewClient(baseURL, collection string, logger *zap.Logger) *Client {
	return NewClientWithOptions(baseURL, collection, logger, 3, time.Second)
}

// NewClientWithOptions creates a new ChromaDB client with custom retry settings
func NewClientWithOptions(baseURL, collection string, logger *zap.Logger, maxRetries int, baseRetryDelay time.Duration) *Client {
	return &Client{
		baseURL:        baseURL,
		collection:     collection,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		logger:         logger,
		maxRetries:     maxRetries,
		baseRetryDelay: baseRetryDelay,
	}
}

// Collection returns the collection name this client is bound to
func (c *Client) Collection() string {
	return c.collection
}

// Document represents a document chunk stored in ChromaDB
type Document struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// Passage is one retrieved text snippet with its similarity distance
type Passage struct {
	Content  string  `json:"content"`
	Distance float64 `json:"distance"`
}

// queryRequest represents an embedding query request
type queryRequest struct {
	QueryEmbeddings [][]float32 `json:"query_embeddings"`
	NResults        int         `json:"n_results"`
}

// queryResponse represents the response from an embedding query
type queryResponse struct {
	IDs       [][]string  `json:"ids"`
	Documents [][]string  `json:"documents"`
	Distances [][]float64 `json:"distances"`
}

// ChromaError represents an error response from ChromaDB
type ChromaError struct {
	Detail string `json:"detail"`
	Type   string `json:"type"`
}

func (e ChromaError) Error() string {
	return fmt.Sprintf("ChromaDB error [%s]: %s", e.Type, e.Detail)
}

// retryWithBackoff executes a function with exponential backoff retry logic
func (c *Client) retryWithBackoff(ctx context.Context, operation func() error, operationName string) error {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * c.baseRetryDelay
			c.logger.Info("Retrying operation after delay",
				zap.String("operation", operationName),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := operation(); err != nil {
			lastErr = err
			c.logger.Warn("Operation failed, will retry",
				zap.String("operation", operationName),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		if attempt > 0 {
			c.logger.Info("Operation succeeded after retry",
				zap.String("operation", operationName),
				zap.Int("attempt", attempt))
		}
		return nil
	}

	c.logger.Error("Operation failed after all retries",
		zap.String("operation", operationName),
		zap.Int("max_retries", c.maxRetries),
		zap.Error(lastErr))
	return fmt.Errorf("operation failed after %d retries: %w", c.maxRetries, lastErr)
}

// makeRequest performs an HTTP request with structured error handling
func (c *Client) makeRequest(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		var chromaErr ChromaError
		if json.Unmarshal(body, &chromaErr) == nil && chromaErr.Detail != "" {
			return nil, chromaErr
		}

		return nil, fmt.Errorf("ChromaDB returned status %d: %s", resp.StatusCode, string(body))
	}

	return resp, nil
}

// postJSON marshals a payload and performs a POST with standard headers
func (c *Client) postJSON(ctx context.Context, url string, payload interface{}) (*http.Response, error) {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.makeRequest(req)
}

// EnsureCollection creates the collection if it does not already exist
func (c *Client) EnsureCollection(ctx context.Context) error {
	return c.retryWithBackoff(ctx, func() error {
		url := fmt.Sprintf("%s/api/v1/collections", c.baseURL)
		payload := map[string]interface{}{
			"name":          c.collection,
			"get_or_create": true,
		}

		resp, err := c.postJSON(ctx, url, payload)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		c.logger.Info("Collection ready", zap.String("collection", c.collection))
		return nil
	}, "EnsureCollection")
}

// DeleteCollection removes the collection and all its documents
func (c *Client) DeleteCollection(ctx context.Context) error {
	url := fmt.Sprintf("%s/api/v1/collections/%s", c.baseURL, c.collection)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}

	resp, err := c.makeRequest(req)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Info("Collection deleted", zap.String("collection", c.collection))
	return nil
}

// AddDocuments adds document chunks with their embeddings to the collection
func (c *Client) AddDocuments(ctx context.Context, documents []Document, embeddings [][]float32) error {
	if len(documents) != len(embeddings) {
		return fmt.Errorf("document count %d does not match embedding count %d", len(documents), len(embeddings))
	}

	c.logger.Info("Adding documents to ChromaDB",
		zap.String("collection", c.collection),
		zap.Int("document_count", len(documents)))

	return c.retryWithBackoff(ctx, func() error {
		url := fmt.Sprintf("%s/api/v1/collections/%s/add", c.baseURL, c.collection)

		var metadatas []map[string]string
		var ids []string
		var docTexts []string
		for _, doc := range documents {
			metadatas = append(metadatas, doc.Metadata)
			ids = append(ids, doc.ID)
			docTexts = append(docTexts, doc.Content)
		}

		payload := map[string]interface{}{
			"documents":  docTexts,
			"metadatas":  metadatas,
			"ids":        ids,
			"embeddings": embeddings,
		}

		resp, err := c.postJSON(ctx, url, payload)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		return nil
	}, "AddDocuments")
}

// Query performs an embedding similarity search and returns the top-k
// passages ordered by increasing distance. An empty result is not an error.
func (c *Client) Query(ctx context.Context, embedding []float32, k int) ([]Passage, error) {
	url := fmt.Sprintf("%s/api/v1/collections/%s/query", c.baseURL, c.collection)

	resp, err := c.postJSON(ctx, url, queryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        k,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}
	defer resp.Body.Close()

	var queryResp queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
		return nil, fmt.Errorf("failed to decode query response: %w", err)
	}

	var passages []Passage
	if len(queryResp.Documents) > 0 {
		for i, content := range queryResp.Documents[0] {
			passage := Passage{Content: content}
			if len(queryResp.Distances) > 0 && i < len(queryResp.Distances[0]) {
				passage.Distance = queryResp.Distances[0][i]
			}
			passages = append(passages, passage)
		}
	}

	c.logger.Debug("Query completed",
		zap.String("collection", c.collection),
		zap.Int("requested", k),
		zap.Int("returned", len(passages)))

	return passages, nil
}

// HealthCheck checks if ChromaDB is reachable
func (c *Client) HealthCheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/api/v1/heartbeat", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to check ChromaDB health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ChromaDB health check failed with status %d", resp.StatusCode)
	}

	return nil
}
