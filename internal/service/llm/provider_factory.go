package llm

import (
	"fmt"

	"atelier/internal/config"
	domainllm "atelier/internal/domain/services/llm"
	"atelier/internal/service/llm/providers/anthropic"
	"atelier/internal/service/llm/providers/gemini"
	"atelier/internal/service/llm/providers/lorem"
	"atelier/internal/service/llm/providers/openrouter"
)

// ProviderFactory creates LLM provider instances.
type ProviderFactory struct {
	config *config.Config
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(cfg *config.Config) *ProviderFactory {
	return &ProviderFactory{
		config: cfg,
	}
}

// CreateProvider builds a provider instance for the given provider name.
//
// apiKey overrides the service key from the environment; pass "" to use the
// configured key. User-supplied keys come through here when a request is
// served with a stored provider key.
//
// Supported providers:
//   - "anthropic"  - Claude models via the Anthropic API
//   - "gemini"     - Gemini models via the Google GenAI API
//   - "openrouter" - everything else via OpenRouter's Chat Completions API
//   - "lorem"      - offline mock provider, no API key required
func (f *ProviderFactory) CreateProvider(providerName, apiKey string) (domainllm.LLMProvider, error) {
	switch providerName {
	case "anthropic":
		key, err := f.resolveKey(apiKey, f.config.AnthropicAPIKey, "ANTHROPIC_API_KEY")
		if err != nil {
			return nil, err
		}
		return anthropic.NewProvider(key)

	case "gemini":
		key, err := f.resolveKey(apiKey, f.config.GeminiAPIKey, "GEMINI_API_KEY")
		if err != nil {
			return nil, err
		}
		return gemini.NewProvider(key)

	case "openrouter":
		key, err := f.resolveKey(apiKey, f.config.OpenRouterAPIKey, "OPENROUTER_API_KEY")
		if err != nil {
			return nil, err
		}
		return openrouter.NewProvider(key)

	case "lorem":
		return lorem.NewProvider(), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerName)
	}
}

// resolveKey picks the override key when present, else the configured one.
func (f *ProviderFactory) resolveKey(override, configured, envName string) (string, error) {
	if override != "" {
		return override, nil
	}
	if configured != "" {
		return configured, nil
	}
	return "", fmt.Errorf("%s environment variable not set", envName)
}
