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

// Package main provides the question-answering HTTP service. It wires the
// classification, retrieval, and generation collaborators into the answer
// pipeline and exposes it on POST /ask.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/your-org/fitness-knowledge-service/internal/answer"
	"github.com/your-org/fitness-knowledge-service/internal/chroma"
	"github.com/your-org/fitness-knowledge-service/internal/config"
	"github.com/your-org/fitness-knowledge-service/internal/health"
	"github.com/your-org/fitness-knowledge-service/internal/intent"
	"github.com/your-org/fitness-knowledge-service/internal/openai"
	"github.com/your-org/fitness-knowledge-service/internal/pipeline"
	"github.com/your-org/fitness-knowledge-service/internal/retrieval"
	"github.com/your-org/fitness-knowledge-service/internal/risk"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// ServiceVersion is reported by the health endpoint
	ServiceVersion = "1.0.0"
	// ShutdownTimeout bounds graceful shutdown on SIGINT/SIGTERM
	ShutdownTimeout = 10 * time.Second
)

// AskRequest represents the JSON payload for questions
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// AskResponse represents the JSON response with the final answer
type AskResponse struct {
	Answer string `json:"answer"`
}

// Dependencies holds the service's shared collaborator handles. All of them
// are constructed exactly once at startup and shared read-only by concurrent
// requests.
type Dependencies struct {
	OpenAIClient *openai.Client
	ChromaClient *chroma.Client
	Pipeline     *pipeline.Pipeline
	Logger       *zap.Logger
	Config       *config.Config
}

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initializeLogger(cfg)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	masked := cfg.MaskSensitiveValues()
	logger.Info("Configuration loaded",
		zap.String("service", "server"),
		zap.String("openai_api_key", masked.OpenAI.APIKey),
		zap.String("chroma_url", masked.Chroma.URL),
		zap.String("collection_name", masked.Chroma.CollectionName),
		zap.String("intent_strategy", masked.Intent.Strategy),
		zap.Int("retrieval_top_k", masked.Retrieval.TopK),
	)

	deps, err := initializeDependencies(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize dependencies", zap.Error(err))
	}

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	healthManager := health.NewManager("fitness-knowledge-service", ServiceVersion, logger)
	setupHealthChecks(healthManager, deps)

	router.GET("/healthz", healthManager.GinHandler())
	router.POST("/ask", createAskHandler(deps))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{Addr: addr, Handler: router}

	go func() {
		logger.Info("Starting server", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}
}

// createAskHandler maps pipeline results and errors to HTTP responses.
// Internal failure detail is logged but never echoed to callers.
func createAskHandler(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "question cannot be empty"})
			return
		}

		answerText, err := deps.Pipeline.Ask(c.Request.Context(), req.Question)
		if err != nil {
			if errors.Is(err, pipeline.ErrEmptyInput) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "question cannot be empty"})
				return
			}
			deps.Logger.Error("Request processing failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ai processing failed"})
			return
		}

		c.JSON(http.StatusOK, AskResponse{Answer: answerText})
	}
}

// initializeLogger creates a logger based on configuration settings
func initializeLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Logging.Format == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	switch cfg.Logging.Level {
	case "debug":
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn":
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	if cfg.Logging.Output == "file" {
		zapConfig.OutputPaths = []string{"server.log"}
		zapConfig.ErrorOutputPaths = []string{"server.log"}
	} else {
		zapConfig.OutputPaths = []string{"stdout"}
		zapConfig.ErrorOutputPaths = []string{"stderr"}
	}

	return zapConfig.Build()
}

// initializeDependencies constructs the shared collaborator handles and the
// pipeline. Reconstructing any of these per request is disallowed.
func initializeDependencies(cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	logger.Info("Initializing service dependencies")

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
		return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
	}

	chromaClient := chroma.NewClient(cfg.Chroma.URL, cfg.Chroma.CollectionName, logger)

	classifier, err := buildClassifier(cfg, openaiClient, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build intent classifier: %w", err)
	}

	evaluator, err := risk.NewEvaluator(cfg.Risk.Mapping)
	if err != nil {
		return nil, fmt.Errorf("failed to build risk evaluator: %w", err)
	}

	taxonomy := make([]intent.Label, len(cfg.Intent.Taxonomy))
	for i, label := range cfg.Intent.Taxonomy {
		taxonomy[i] = intent.Label(label)
	}

	retriever := retrieval.NewRetriever(openaiClient, chromaClient, cfg.Retrieval.TopK, taxonomy, logger)

	generator := answer.NewGenerator(openaiClient, answer.Options{
		MaxDocuments:      cfg.Generator.MaxDocuments,
		DocumentCharLimit: cfg.Generator.DocumentCharLimit,
		AnswerCharLimit:   cfg.Generator.AnswerCharLimit,
	}, logger)

	pipe, err := pipeline.New(pipeline.Deps{
		Classifier: classifier,
		Evaluator:  evaluator,
		Retriever:  retriever,
		Generator:  generator,
		Taxonomy:   taxonomy,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	logger.Info("Service dependencies initialized")

	return &Dependencies{
		OpenAIClient: openaiClient,
		ChromaClient: chromaClient,
		Pipeline:     pipe,
		Logger:       logger,
		Config:       cfg,
	}, nil
}

// buildClassifier selects the configured classification strategy
func buildClassifier(cfg *config.Config, embedder intent.Embedder, logger *zap.Logger) (intent.Classifier, error) {
	switch cfg.Intent.Strategy {
	case config.StrategyRule:
		return intent.NewRuleClassifier(), nil
	case config.StrategyLearned:
		scorer, err := intent.LoadLinearScorer(cfg.Intent.ModelPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load intent model: %w", err)
		}
		return intent.NewLearnedClassifier(
			embedder,
			scorer,
			cfg.Intent.ConfidenceThreshold,
			cfg.Intent.ShortQuestionTokens,
			logger,
		), nil
	default:
		return nil, fmt.Errorf("unknown intent strategy %q", cfg.Intent.Strategy)
	}
}

// setupHealthChecks registers dependency checkers for the health endpoint
func setupHealthChecks(manager *health.Manager, deps *Dependencies) {
	manager.AddChecker("chroma", func(ctx context.Context) error {
		return deps.ChromaClient.HealthCheck(ctx)
	})
	manager.AddChecker("openai", func(ctx context.Context) error {
		_, err := deps.OpenAIClient.EmbedQuery(ctx, "health check")
		return err
	})
}
