package providers

import (
	"context"
	"fmt"

	"github.com/modelmux/modelmux/src/models"
)

// Build dispatches on the provider tag once at startup. The set of
// providers is closed; an unknown tag is a configuration error, not a
// runtime branch.
func Build(ctx context.Context, id string, cfg models.ModelConfig, tools models.ToolBridge) (models.ProviderAdapter, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIAdapter(id, cfg, tools), nil
	case "anthropic":
		return NewAnthropicAdapter(id, cfg), nil
	case "google", "gemini":
		return NewGeminiAdapter(ctx, id, cfg)
	case "groq":
		return NewGroqAdapter(id, cfg)
	default:
		return nil, fmt.Errorf("unknown provider %q for model %s", cfg.Provider, id)
	}
}
