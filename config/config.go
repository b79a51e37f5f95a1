package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	ragerrors "github.com/sweetpotato0/ragguard/errors"
)

// Supported LLM provider names.
const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
)

// Config is the explicit configuration value for a reflective RAG deployment.
// It is constructed once (usually via FromEnv), validated, and injected into
// the controller and its collaborators at construction time. Core logic never
// reads ambient process state.
type Config struct {
	// LLM provider
	Provider        string
	GroqAPIKey      string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GoogleAPIKey    string
	Model           string
	Temperature     float64
	MaxTokens       int

	// Embeddings
	EmbeddingModel     string
	EmbeddingDimension int

	// Retrieval
	TopK         int
	ChunkSize    int
	ChunkOverlap int

	// Reflection loop
	MaxReflectionCycles int
	ConfidenceThreshold float64

	// Generator context budget, in tokens. Zero disables truncation.
	MaxContextTokens int
}

// Default returns the configuration the original deployment shipped with.
func Default() *Config {
	return &Config{
		Provider:            ProviderGroq,
		Model:               "llama-3.1-8b-instant",
		Temperature:         0.1,
		MaxTokens:           2000,
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingDimension:  1536,
		TopK:                5,
		ChunkSize:           1000,
		ChunkOverlap:        200,
		MaxReflectionCycles: 2,
		ConfidenceThreshold: 0.7,
		MaxContextTokens:    6000,
	}
}

// FromEnv builds a Config from environment variables, falling back to
// defaults for anything unset.
func FromEnv() *Config {
	cfg := Default()

	cfg.Provider = strings.ToLower(getEnv("RAGGUARD_PROVIDER", cfg.Provider))
	cfg.GroqAPIKey = getEnv("GROQ_API_KEY", "")
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", "")
	cfg.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", "")
	cfg.GoogleAPIKey = getEnv("GOOGLE_API_KEY", "")
	cfg.Model = getEnv("RAGGUARD_MODEL", cfg.Model)
	cfg.Temperature = getEnvFloat("RAGGUARD_TEMPERATURE", cfg.Temperature)
	cfg.MaxTokens = getEnvInt("RAGGUARD_MAX_TOKENS", cfg.MaxTokens)
	cfg.EmbeddingModel = getEnv("RAGGUARD_EMBEDDING_MODEL", cfg.EmbeddingModel)
	cfg.EmbeddingDimension = getEnvInt("RAGGUARD_EMBEDDING_DIMENSION", cfg.EmbeddingDimension)
	cfg.TopK = getEnvInt("RAGGUARD_TOP_K", cfg.TopK)
	cfg.ChunkSize = getEnvInt("RAGGUARD_CHUNK_SIZE", cfg.ChunkSize)
	cfg.ChunkOverlap = getEnvInt("RAGGUARD_CHUNK_OVERLAP", cfg.ChunkOverlap)
	cfg.MaxReflectionCycles = getEnvInt("RAGGUARD_MAX_REFLECTION_CYCLES", cfg.MaxReflectionCycles)
	cfg.ConfidenceThreshold = getEnvFloat("RAGGUARD_CONFIDENCE_THRESHOLD", cfg.ConfidenceThreshold)
	cfg.MaxContextTokens = getEnvInt("RAGGUARD_MAX_CONTEXT_TOKENS", cfg.MaxContextTokens)

	return cfg
}

// APIKey returns the credential for the configured provider.
func (c *Config) APIKey() string {
	switch c.Provider {
	case ProviderGroq:
		return c.GroqAPIKey
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderClaude:
		return c.AnthropicAPIKey
	case ProviderGemini:
		return c.GoogleAPIKey
	}
	return ""
}

// Validate checks the configuration before any run begins. A failure wraps
// ErrConfiguration and must be surfaced to the caller, not retried.
func (c *Config) Validate() error {
	v := NewValidator()

	v.ValidateOneOf("provider", c.Provider, ProviderGroq, ProviderOpenAI, ProviderClaude, ProviderGemini)
	v.RequireNonEmpty("model", c.Model)
	v.ValidateFloatRange("temperature", c.Temperature, 0.0, 2.0)
	v.RequirePositive("maxTokens", c.MaxTokens)
	v.RequirePositive("topK", c.TopK)
	v.RequirePositive("chunkSize", c.ChunkSize)
	v.RequireNonNegative("chunkOverlap", c.ChunkOverlap)
	v.RequireNonNegative("maxReflectionCycles", c.MaxReflectionCycles)
	v.ValidateFloatRange("confidenceThreshold", c.ConfidenceThreshold, 0.0, 1.0)

	if c.APIKey() == "" {
		v.RequireNonEmpty(fmt.Sprintf("%s api key", c.Provider), "")
	}
	if c.ChunkOverlap >= c.ChunkSize {
		v.ValidateRange("chunkOverlap", c.ChunkOverlap, 0, c.ChunkSize-1)
	}

	if err := v.Error(); err != nil {
		return fmt.Errorf("%w: %v", ragerrors.ErrConfiguration, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
