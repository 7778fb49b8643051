// Package provider constructs the chat model backend the answer pipeline
// dispatches to. Supported backends: the built-in deterministic extractive
// model (default, no external service), Ollama, OpenAI, Azure OpenAI,
// AWS Bedrock, and Google Gemini.
package provider

import (
	"os"
	"strconv"
)

// Backend enumerates the supported generation backends.
type Backend string

const (
	// BackendExtractive selects the built-in deterministic model that
	// formats retrieved policy excerpts into the answer. No network, no
	// tokens — identical inputs always produce identical answers.
	BackendExtractive Backend = "extractive"
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendBedrock selects AWS Bedrock.
	BackendBedrock Backend = "bedrock"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
)

// Config holds all provider-level configuration resolved from environment
// variables or explicit caller-supplied values.
type Config struct {
	// Backend identifies which generation backend to use.
	Backend Backend

	// Model is the model name or deployment ID (e.g. "gpt-4o", "llama3").
	Model string

	// BaseURL overrides the default API endpoint (required for Ollama and Azure).
	BaseURL string

	// APIKey is the authentication credential for the selected backend.
	// For Bedrock this field is unused; AWS credentials are resolved via the SDK chain.
	APIKey string

	// AzureDeployment is the Azure OpenAI deployment name (Azure only).
	AzureDeployment string

	// AzureAPIVersion is the Azure OpenAI REST API version (Azure only).
	AzureAPIVersion string

	// AWSRegion is the AWS region for Bedrock (Bedrock only).
	AWSRegion string

	// MaxTokens caps the number of tokens the model may generate per response.
	MaxTokens int

	// Temperature controls response randomness (0.0–1.0).
	Temperature float32

	// Company is the company name the extractive backend weaves into its
	// answers.
	Company string
}

// ConfigFromEnv resolves a Config from the environment. Unset values get
// backend-appropriate defaults; MODEL_PROVIDER defaults to extractive so a
// bare checkout answers deterministically without any external service.
func ConfigFromEnv() *Config {
	cfg := &Config{
		Backend:     Backend(envOr("MODEL_PROVIDER", string(BackendExtractive))),
		MaxTokens:   envInt("MODEL_MAX_TOKENS", 2048),
		Temperature: envFloat32("MODEL_TEMPERATURE", 0.2),
		Company:     os.Getenv("HRFAQ_COMPANY"),
	}

	switch cfg.Backend {
	case BackendOllama:
		cfg.BaseURL = envOr("OLLAMA_HOST", "http://localhost:11434")
		cfg.Model = envOr("OLLAMA_MODEL", "llama3")
	case BackendOpenAI:
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		cfg.Model = envOr("OPENAI_MODEL", "gpt-4o-mini")
	case BackendAzure:
		cfg.APIKey = os.Getenv("AZURE_OPENAI_API_KEY")
		cfg.BaseURL = os.Getenv("AZURE_OPENAI_ENDPOINT")
		cfg.AzureDeployment = os.Getenv("AZURE_OPENAI_DEPLOYMENT")
		cfg.AzureAPIVersion = envOr("AZURE_OPENAI_API_VERSION", "2025-04-01-preview")
		cfg.Model = cfg.AzureDeployment
	case BackendBedrock:
		cfg.AWSRegion = envOr("AWS_REGION", "us-east-1")
		cfg.Model = os.Getenv("BEDROCK_MODEL_ID")
		cfg.APIKey = os.Getenv("BEDROCK_API_KEY")
		cfg.BaseURL = os.Getenv("BEDROCK_ENDPOINT")
	case BackendGemini:
		cfg.APIKey = os.Getenv("GOOGLE_API_KEY")
		cfg.Model = envOr("GEMINI_MODEL", "gemini-1.5-flash")
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}
