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

// Package config loads and validates service configuration from file and
// environment variables using viper. Environment variables take precedence
// over config file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	// ErrMissingRequiredField is returned when a required configuration field is missing
	ErrMissingRequiredField = errors.New("missing required configuration field")
	// ErrInvalidConfigValue is returned when a configuration value is invalid
	ErrInvalidConfigValue = errors.New("invalid configuration value")
)

// Intent classification strategies
const (
	// StrategyRule selects the deterministic keyword classifier
	StrategyRule = "rule"
	// StrategyLearned selects the embedding + linear-margin classifier
	StrategyLearned = "learned"
)

// Config represents the complete application configuration
type Config struct {
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Chroma    ChromaConfig    `mapstructure:"chroma"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Intent    IntentConfig    `mapstructure:"intent"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Metadata  MetadataConfig  `mapstructure:"metadata"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// OpenAIConfig contains OpenAI API configuration
type OpenAIConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	Endpoint       string  `mapstructure:"endpoint"`
	EmbeddingModel string  `mapstructure:"embedding_model"`
	ChatModel      string  `mapstructure:"chat_model"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MaxRetries     int     `mapstructure:"max_retries"`
}

// ChromaConfig contains ChromaDB configuration
type ChromaConfig struct {
	URL            string `mapstructure:"url"`
	CollectionName string `mapstructure:"collection_name"`
}

// RetrievalConfig contains retrieval-specific settings
type RetrievalConfig struct {
	TopK int `mapstructure:"top_k"`
}

// IntentConfig contains intent classification settings.
// Taxonomy and thresholds are deployment configuration: the orchestrator must
// work unchanged when either classification strategy or taxonomy is swapped.
type IntentConfig struct {
	Strategy            string   `mapstructure:"strategy"`
	ModelPath           string   `mapstructure:"model_path"`
	ConfidenceThreshold float64  `mapstructure:"confidence_threshold"`
	ShortQuestionTokens int      `mapstructure:"short_question_tokens"`
	Taxonomy            []string `mapstructure:"taxonomy"`
}

// RiskConfig contains the intent to risk tier mapping table
type RiskConfig struct {
	Mapping map[string]string `mapstructure:"mapping"`
}

// GeneratorConfig contains answer generation limits
type GeneratorConfig struct {
	MaxDocuments      int `mapstructure:"max_documents"`
	DocumentCharLimit int `mapstructure:"document_char_limit"`
	AnswerCharLimit   int `mapstructure:"answer_char_limit"`
}

// MetadataConfig contains ingestion ledger configuration
type MetadataConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed for field '%s': %s", e.Field, e.Message)
}

// LoadOptions contains options for configuration loading
type LoadOptions struct {
	ConfigPath       string
	EnableHotReload  bool
	ValidateRequired bool
	OnReload         func(*Config)
}

// Load loads configuration from file and environment variables
// Environment variables take precedence over config file values
func Load(configPath string) (*Config, error) {
	return LoadWithOptions(LoadOptions{
		ConfigPath:       configPath,
		EnableHotReload:  false,
		ValidateRequired: true,
	})
}

// LoadWithOptions loads configuration with additional options
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if err := setConfigFile(v, opts.ConfigPath); err != nil {
		return nil, fmt.Errorf("failed to set config file: %w", err)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("FIT_ASSISTANT")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error if env vars are set
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	setEnvironmentMappings(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if opts.ValidateRequired {
		if err := validateConfig(&config); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	if opts.EnableHotReload && v.ConfigFileUsed() != "" {
		enableHotReload(v, opts)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// OpenAI defaults (low temperature, bounded output, client-level retries)
	v.SetDefault("openai.endpoint", "https://api.openai.com/v1")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.chat_model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 300)
	v.SetDefault("openai.temperature", 0.2)
	v.SetDefault("openai.timeout_seconds", 30)
	v.SetDefault("openai.max_retries", 2)

	// ChromaDB defaults
	v.SetDefault("chroma.url", "http://chromadb:8000")
	v.SetDefault("chroma.collection_name", "fitness_docs")

	// Retrieval defaults
	v.SetDefault("retrieval.top_k", 3)

	// Intent classification defaults (learned taxonomy is canonical)
	v.SetDefault("intent.strategy", StrategyLearned)
	v.SetDefault("intent.model_path", "./models/intent_classifier.json")
	v.SetDefault("intent.confidence_threshold", 0.3)
	v.SetDefault("intent.short_question_tokens", 3)
	v.SetDefault("intent.taxonomy", []string{
		"medical", "nutrition", "workout", "general", "chitchat", "out_of_scope",
	})

	// Risk mapping defaults for the learned taxonomy
	v.SetDefault("risk.mapping", map[string]string{
		"medical":      "high",
		"nutrition":    "medium",
		"workout":      "medium",
		"general":      "low",
		"chitchat":     "low",
		"out_of_scope": "low",
	})

	// Generator defaults
	v.SetDefault("generator.max_documents", 4)
	v.SetDefault("generator.document_char_limit", 400)
	v.SetDefault("generator.answer_char_limit", 900)

	// Metadata defaults
	v.SetDefault("metadata.db_path", "./ingest.db")

	// Server defaults
	v.SetDefault("server.port", 8080)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// setConfigFile sets the configuration file path with fallback logic
func setConfigFile(v *viper.Viper, configPath string) error {
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return fmt.Errorf("config file specified by CONFIG_PATH does not exist: %s", envPath)
		}
		v.SetConfigFile(envPath)
		return nil
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return fmt.Errorf("config file does not exist: %s", configPath)
		}
		v.SetConfigFile(configPath)
		return nil
	}

	// Search standard locations
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	return nil
}

// setEnvironmentMappings binds well-known environment variables to config keys
func setEnvironmentMappings(v *viper.Viper) {
	_ = v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("chroma.url", "CHROMA_URL")
	_ = v.BindEnv("chroma.collection_name", "CHROMA_COLLECTION")
	_ = v.BindEnv("metadata.db_path", "METADATA_DB_PATH")
	_ = v.BindEnv("server.port", "PORT")
}

// enableHotReload watches the config file and invokes the reload callback
// with a freshly validated configuration on change. Invalid updates are
// ignored so a bad edit cannot take down a running service.
func enableHotReload(v *viper.Viper, opts LoadOptions) {
	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		var updated Config
		if err := v.Unmarshal(&updated); err != nil {
			return
		}
		if err := validateConfig(&updated); err != nil {
			return
		}
		if opts.OnReload != nil {
			opts.OnReload(&updated)
		}
	})
}

// validateConfig validates the loaded configuration
func validateConfig(c *Config) error {
	if c.OpenAI.APIKey == "" {
		return ValidationError{Field: "openai.api_key", Message: "API key is required"}
	}
	if c.Chroma.URL == "" {
		return ValidationError{Field: "chroma.url", Message: "ChromaDB URL is required"}
	}
	if c.Chroma.CollectionName == "" {
		return ValidationError{Field: "chroma.collection_name", Message: "collection name is required"}
	}
	if c.Retrieval.TopK <= 0 {
		return ValidationError{Field: "retrieval.top_k", Message: "top_k must be positive"}
	}
	if c.Intent.Strategy != StrategyRule && c.Intent.Strategy != StrategyLearned {
		return ValidationError{
			Field:   "intent.strategy",
			Message: fmt.Sprintf("strategy must be %q or %q", StrategyRule, StrategyLearned),
		}
	}
	if c.Intent.Strategy == StrategyLearned && c.Intent.ModelPath == "" {
		return ValidationError{Field: "intent.model_path", Message: "model path is required for the learned strategy"}
	}
	if c.Intent.ShortQuestionTokens <= 0 {
		return ValidationError{Field: "intent.short_question_tokens", Message: "short question cutoff must be positive"}
	}
	if len(c.Intent.Taxonomy) == 0 {
		return ValidationError{Field: "intent.taxonomy", Message: "taxonomy must not be empty"}
	}
	for label, tier := range c.Risk.Mapping {
		switch tier {
		case "low", "medium", "high":
		default:
			return ValidationError{
				Field:   "risk.mapping",
				Message: fmt.Sprintf("intent %q maps to unknown risk tier %q", label, tier),
			}
		}
	}
	if c.Generator.MaxDocuments <= 0 {
		return ValidationError{Field: "generator.max_documents", Message: "max_documents must be positive"}
	}
	if c.Generator.DocumentCharLimit <= 0 {
		return ValidationError{Field: "generator.document_char_limit", Message: "document_char_limit must be positive"}
	}
	if c.Generator.AnswerCharLimit <= 0 {
		return ValidationError{Field: "generator.answer_char_limit", Message: "answer_char_limit must be positive"}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return ValidationError{Field: "server.port", Message: "port must be between 1 and 65535"}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return ValidationError{Field: "logging.level", Message: "level must be one of debug, info, warn, error"}
	}
	return nil
}

// MaskSensitiveValues returns a copy of the config with secrets masked for logging
func (c *Config) MaskSensitiveValues() *Config {
	masked := *c
	masked.OpenAI.APIKey = maskString(c.OpenAI.APIKey)
	return &masked
}

// maskString masks all but the first and last two characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + strings.Repeat("*", len(s)-6) + s[len(s)-2:]
}
