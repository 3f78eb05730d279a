package vision

import (
	"context"
	"fmt"

	"github.com/kozaktomas/facebot/internal/config"
)

// FromConfig builds the configured provider. Returns ErrNotConfigured when
// VISION_PROVIDER is unset or the matching API key is missing.
func FromConfig(ctx context.Context, cfg *config.VisionConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, ErrNotConfigured
		}
		return NewOpenAIProvider(cfg.OpenAIKey), nil
	case "gemini":
		if cfg.GeminiKey == "" {
			return nil, ErrNotConfigured
		}
		return NewGeminiProvider(ctx, cfg.GeminiKey)
	case "":
		return nil, ErrNotConfigured
	default:
		return nil, fmt.Errorf("unknown vision provider %q", cfg.Provider)
	}
}
