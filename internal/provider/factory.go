package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
)

// New constructs a ready-to-use chat model for cfg.Backend.
func New(ctx context.Context, cfg *Config) (model.BaseChatModel, error) {
	if cfg == nil {
		cfg = ConfigFromEnv()
	}

	switch cfg.Backend {
	case BackendExtractive, "":
		return NewExtractive(cfg.Company), nil
	case BackendOllama:
		return newOllama(ctx, cfg)
	case BackendOpenAI:
		return newOpenAI(ctx, cfg)
	case BackendAzure:
		return newAzure(ctx, cfg)
	case BackendBedrock:
		return newBedrock(ctx, cfg)
	case BackendGemini:
		return newGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("provider: unknown backend %q — valid values: extractive, ollama, openai, azure, bedrock, gemini", cfg.Backend)
	}
}
