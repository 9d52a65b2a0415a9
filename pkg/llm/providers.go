package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/xhad/newsflow/pkg/config"
)

// NewProviders builds the ordered provider list. Entries without credentials are skipped.
func NewProviders(ctx context.Context, entries []config.Provider, logger zerolog.Logger) ([]Provider, error) {
	var providers []Provider
	for _, entry := range entries {
		if entry.APIKey == "" && entry.Kind != config.ProviderOllama {
			logger.Debug().Str("provider", entry.Name).Msg("no credentials, skipping provider")
			continue
		}

		chatConfig := ChatConfig{
			Name:        entry.Name,
			Kind:        entry.Kind,
			Model:       entry.Model,
			APIKey:      entry.APIKey,
			BaseURL:     entry.BaseURL,
			Temperature: entry.Temperature,
			MaxTokens:   entry.MaxTokens,
		}

		var (
			provider Provider
			err      error
		)
		switch entry.Kind {
		case config.ProviderOpenAI, config.ProviderGroq, config.ProviderOllama:
			provider, err = NewWithConfig(chatConfig)
		case config.ProviderGemini:
			provider, err = NewGemini(ctx, chatConfig)
		case config.ProviderAnthropic:
			provider, err = NewAnthropic(chatConfig)
		default:
			err = fmt.Errorf("unknown provider kind %q", entry.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create provider %s: %w", entry.Name, err)
		}
		providers = append(providers, provider)
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("failed to create providers: no provider has credentials")
	}
	logger.Info().Int("providers", len(providers)).Msg("provider pool ready")
	return providers, nil
}

// PoolConfigFrom maps the llm config section onto PoolConfig.
func PoolConfigFrom(cfg *config.Config) PoolConfig {
	return PoolConfig{
		MaxConcurrency:       cfg.LLM.MaxConcurrency,
		RateLimitMargin:      cfg.LLM.RateLimitMargin,
		DefaultRetryAfter:    cfg.LLM.DefaultRetryAfter,
		MaxRateLimitRetries:  cfg.LLM.MaxRateLimitRetries,
		ConnectionBackoff:    cfg.LLM.ConnectionBackoff,
		MaxConnectionRetries: cfg.LLM.MaxConnectionRetries,
		RequestTimeout:       cfg.LLM.RequestTimeout,
		CallDelay:            cfg.LLM.CallDelay,
	}
}
