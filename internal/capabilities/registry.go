package capabilities

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// providerOrder fixes the order providers appear in API responses and the
// order FindModel searches them.
var providerOrder = []string{"anthropic", "gemini", "openrouter", "lorem"}

// Registry holds model capability metadata for every configured provider.
type Registry struct {
	providers map[string]*ProviderCapabilities
	mu        sync.RWMutex
}

// NewRegistry loads the embedded YAML files for all providers.
func NewRegistry() (*Registry, error) {
	r := &Registry{
		providers: make(map[string]*ProviderCapabilities),
	}

	for _, provider := range providerOrder {
		if err := r.loadProviderFile(provider); err != nil {
			return nil, fmt.Errorf("failed to load %s capabilities: %w", provider, err)
		}
	}

	return r, nil
}

// loadProviderFile loads a provider's capability YAML file
func (r *Registry) loadProviderFile(provider string) error {
	filename := fmt.Sprintf("config/%s.yaml", provider)
	data, err := configFiles.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	var providerCaps ProviderCapabilities
	if err := yaml.Unmarshal(data, &providerCaps); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filename, err)
	}

	r.mu.Lock()
	r.providers[provider] = &providerCaps
	r.mu.Unlock()

	return nil
}

// GetModelCapabilities returns capabilities for a specific model of a provider.
func (r *Registry) GetModelCapabilities(provider, model string) (*ModelCapabilities, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providerCaps, ok := r.providers[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}

	for i := range providerCaps.Models {
		if providerCaps.Models[i].ID == model {
			return &providerCaps.Models[i], nil
		}
	}

	return nil, fmt.Errorf("unknown model %s for provider %s", model, provider)
}

// FindModel looks a bare model ID up across every provider in providerOrder.
// Used to resolve model strings that arrive without a provider prefix.
func (r *Registry) FindModel(model string) (string, *ModelCapabilities, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, provider := range providerOrder {
		providerCaps, ok := r.providers[provider]
		if !ok {
			continue
		}
		for i := range providerCaps.Models {
			if providerCaps.Models[i].ID == model {
				return provider, &providerCaps.Models[i], true
			}
		}
	}

	return "", nil, false
}

// ListProviderModels returns all models for a provider (ordered as defined in YAML)
func (r *Registry) ListProviderModels(provider string) ([]ModelCapabilities, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providerCaps, ok := r.providers[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}

	return providerCaps.Models, nil
}

// ListAll returns every provider's capabilities in display order.
func (r *Registry) ListAll() []ProviderCapabilities {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderCapabilities, 0, len(r.providers))
	for _, provider := range providerOrder {
		if providerCaps, ok := r.providers[provider]; ok {
			out = append(out, *providerCaps)
		}
	}
	return out
}

// GetAllProviders returns the registered provider names in display order.
func (r *Registry) GetAllProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]string, 0, len(providerOrder))
	for _, provider := range providerOrder {
		if _, ok := r.providers[provider]; ok {
			providers = append(providers, provider)
		}
	}
	return providers
}
