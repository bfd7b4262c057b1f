package generation

import (
	"context"

	"go.uber.org/zap"

	"github.com/aura-interview/backend/config"
	"github.com/aura-interview/backend/internal/provider"
)

// New builds the generation adapter from the configured backend order. Backends without
// credentials, or that fail to initialise, are skipped.
func New(ctx context.Context, cfg config.ProvidersConfig, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	var backends []provider.Backend[Request, string]
	for _, name := range cfg.GenerationBackends {
		var (
			b   provider.Backend[Request, string]
			err error
		)
		switch name {
		case "gemini":
			if cfg.GeminiAPIKey == "" {
				continue
			}
			b, err = NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.MaxGenerationTokens)
		case "openai":
			if cfg.OpenAIAPIKey == "" {
				continue
			}
			b, err = NewOpenAI(ctx, cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.MaxGenerationTokens)
		case "deepseek":
			if cfg.DeepSeekAPIKey == "" {
				continue
			}
			b, err = NewDeepSeek(ctx, cfg.DeepSeekAPIKey, cfg.DeepSeekModel, cfg.MaxGenerationTokens)
		default:
			log.Warn("unknown generation backend", zap.String("backend", name))
			continue
		}
		if err != nil {
			log.Warn("generation backend disabled", zap.String("backend", name), zap.Error(err))
			continue
		}
		backends = append(backends, b)
	}
	return provider.NewAdapter[Request, string](provider.CapabilityGeneration, backends, Demo, provider.Options{
		Timeout:  cfg.GenerationTimeout,
		DemoMode: cfg.DemoMode,
		Logger:   log,
	})
}
