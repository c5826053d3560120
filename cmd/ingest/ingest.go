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

// Package main provides the document ingestion CLI: it reads knowledge
// documents, chunks them, generates embeddings, and loads them into the
// ChromaDB collection the retrieval pipeline queries.
package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/your-org/fitness-knowledge-service/internal/chroma"
	"github.com/your-org/fitness-knowledge-service/internal/chunker"
	"github.com/your-org/fitness-knowledge-service/internal/config"
	"github.com/your-org/fitness-knowledge-service/internal/metadata"
	"github.com/your-org/fitness-knowledge-service/internal/openai"
	"go.uber.org/zap"
)

// embedBatchSize bounds how many chunks are embedded per API call
const embedBatchSize = 64

func main() {
	var docsPath string
	var configPath string
	var reset bool

	rootCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest knowledge documents into the retrieval collection",
		Long: "Reads .txt and .md documents, splits them into overlapping chunks, " +
			"generates embeddings, and stores them in ChromaDB. Files whose content " +
			"has not changed since the last run are skipped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(docsPath, configPath, reset)
		},
	}

	rootCmd.Flags().StringVar(&docsPath, "docs-path", "./data/docs", "Path to documents directory")
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to configuration file")
	rootCmd.Flags().BoolVar(&reset, "reset", false, "Drop and rebuild the collection before ingesting")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIngest(docsPath, configPath string, reset bool) error {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Info("Starting ingestion",
		zap.String("docs_path", docsPath),
		zap.String("chroma_url", cfg.Chroma.URL),
		zap.String("collection", cfg.Chroma.CollectionName),
		zap.Bool("reset", reset))

	openaiClient, err := openai.NewClient(openai.Options{
		APIKey:         cfg.OpenAI.APIKey,
		Endpoint:       cfg.OpenAI.Endpoint,
		EmbeddingModel: cfg.OpenAI.EmbeddingModel,
		ChatModel:      cfg.OpenAI.ChatModel,
		MaxTokens:      cfg.OpenAI.MaxTokens,
		Temperature:    cfg.OpenAI.Temperature,
		RequestTimeout: time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second,
		MaxRetries:     cfg.OpenAI.MaxRetries,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenAI client: %w", err)
	}

	chromaClient := chroma.NewClient(cfg.Chroma.URL, cfg.Chroma.CollectionName, logger)

	store, err := metadata.NewStore(cfg.Metadata.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open ingestion ledger: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close ingestion ledger", zap.Error(err))
		}
	}()

	ctx := context.Background()

	if reset {
		if err := chromaClient.DeleteCollection(ctx); err != nil {
			logger.Warn("Failed to delete collection, continuing", zap.Error(err))
		}
		if err := store.Reset(); err != nil {
			return fmt.Errorf("failed to reset ingestion ledger: %w", err)
		}
	}

	if err := chromaClient.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("failed to ensure collection: %w", err)
	}

	files, err := listDocumentFiles(docsPath)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logger.Warn("No documents found", zap.String("docs_path", docsPath))
		return nil
	}

	var ingested, skipped int
	for _, file := range files {
		wasIngested, err := ingestFile(ctx, file, openaiClient, chromaClient, store, logger)
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", file, err)
		}
		if wasIngested {
			ingested++
		} else {
			skipped++
		}
	}

	logger.Info("Ingestion complete",
		zap.Int("ingested", ingested),
		zap.Int("skipped", skipped))
	return nil
}

// listDocumentFiles returns all .txt and .md files under the docs directory
func listDocumentFiles(docsPath string) ([]string, error) {
	var files []string
	err := filepath.Walk(docsPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".md":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk docs directory: %w", err)
	}
	return files, nil
}

// ingestFile chunks, embeds, and stores one document. Returns false when the
// file content is unchanged since the last run.
func ingestFile(ctx context.Context, path string, openaiClient *openai.Client, chromaClient *chroma.Client, store *metadata.Store, logger *zap.Logger) (bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read file: %w", err)
	}

	text := string(content)
	if strings.EqualFold(filepath.Ext(path), ".md") {
		text = chunker.ParseMarkdown(text)
	}

	hash := fmt.Sprintf("%x", sha256.Sum256(content))
	alreadyIngested, err := store.IsIngested(path, hash)
	if err != nil {
		return false, err
	}
	if alreadyIngested {
		logger.Debug("Skipping unchanged document", zap.String("path", path))
		return false, nil
	}

	chunks := chunker.Split(text, chunker.DefaultChunkSize, chunker.DefaultOverlap)
	if len(chunks) == 0 {
		logger.Warn("Document produced no chunks", zap.String("path", path))
		return false, nil
	}

	base := filepath.Base(path)
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		embeddings, err := openaiClient.EmbedTexts(ctx, batch)
		if err != nil {
			return false, fmt.Errorf("failed to embed chunks: %w", err)
		}

		documents := make([]chroma.Document, len(batch))
		for i, chunk := range batch {
			documents[i] = chroma.Document{
				ID:      fmt.Sprintf("%s#%d", base, start+i),
				Content: chunk,
				Metadata: map[string]string{
					"source": base,
				},
			}
		}

		if err := chromaClient.AddDocuments(ctx, documents, embeddings); err != nil {
			return false, fmt.Errorf("failed to store chunks: %w", err)
		}
	}

	if err := store.Record(metadata.Entry{
		SourcePath:  path,
		ContentHash: hash,
		ChunkCount:  len(chunks),
	}); err != nil {
		return false, err
	}

	logger.Info("Document ingested",
		zap.String("path", path),
		zap.Int("chunks", len(chunks)))
	return true, nil
}
