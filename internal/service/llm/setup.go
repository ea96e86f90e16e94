package llm

import (
	"fmt"
	"log/slog"

	"atelier/internal/config"
)

// SetupProviders initializes the provider factory and registry for routing.
// Returns a configured ProviderRegistry or an error if setup fails.
func SetupProviders(cfg *config.Config, logger *slog.Logger) (*ProviderRegistry, error) {
	// Factory manages API keys and creates provider instances
	providerFactory := NewProviderFactory(cfg)

	registry := NewProviderRegistry(providerFactory)

	if err := registry.Validate(); err != nil {
		return nil, fmt.Errorf("provider registry validation failed: %w", err)
	}

	// Log available providers based on config
	if cfg.AnthropicAPIKey != "" {
		logger.Info("provider available", "name", "anthropic", "models", "claude-*")
	} else {
		logger.Warn("ANTHROPIC_API_KEY not set - Anthropic provider not available")
	}
	if cfg.GeminiAPIKey != "" {
		logger.Info("provider available", "name", "gemini", "models", "gemini-*")
	} else {
		logger.Warn("GEMINI_API_KEY not set - Gemini provider not available")
	}
	if cfg.OpenRouterAPIKey != "" {
		logger.Info("provider available", "name", "openrouter", "models", "gpt-*, o1-*, o3-*")
	} else {
		logger.Warn("OPENROUTER_API_KEY not set - OpenRouter provider not available")
	}
	// Lorem needs no key; always available for offline development
	logger.Info("provider available", "name", "lorem", "models", "lorem-*")

	return registry, nil
}
