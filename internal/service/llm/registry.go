package llm

import (
	"fmt"
	"sync"

	domainllm "atelier/internal/domain/services/llm"
)

// ProviderRegistry hands out LLM provider instances by name.
//
// Service-key providers are cached: their underlying HTTP clients are safe
// for concurrent use and cheap to share. Providers built around a
// user-supplied key are never cached; they live for one request and the key
// dies with them.
type ProviderRegistry struct {
	factory *ProviderFactory
	cache   map[string]domainllm.LLMProvider
	mu      sync.RWMutex
}

// NewProviderRegistry creates a new provider registry.
func NewProviderRegistry(factory *ProviderFactory) *ProviderRegistry {
	return &ProviderRegistry{
		factory: factory,
		cache:   make(map[string]domainllm.LLMProvider),
	}
}

// GetProvider returns the shared provider instance for the given name,
// creating it with the service API key on first use.
func (r *ProviderRegistry) GetProvider(provider string) (domainllm.LLMProvider, error) {
	if provider == "" {
		return nil, fmt.Errorf("provider cannot be empty")
	}

	// Fast path: optimistic read for cache hits
	r.mu.RLock()
	if cached, exists := r.cache[provider]; exists {
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring the write lock; another goroutine may have
	// created the provider while we waited
	if cached, exists := r.cache[provider]; exists {
		return cached, nil
	}

	instance, err := r.factory.CreateProvider(provider, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create provider '%s': %w", provider, err)
	}

	r.cache[provider] = instance
	return instance, nil
}

// GetProviderWithKey builds an uncached provider instance around a
// user-supplied API key. An empty key falls back to the shared instance.
func (r *ProviderRegistry) GetProviderWithKey(provider, apiKey string) (domainllm.LLMProvider, error) {
	if apiKey == "" {
		return r.GetProvider(provider)
	}
	if provider == "" {
		return nil, fmt.Errorf("provider cannot be empty")
	}

	instance, err := r.factory.CreateProvider(provider, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider '%s': %w", provider, err)
	}
	return instance, nil
}

// Validate checks if the factory is properly configured.
// Should be called at startup to fail fast if misconfigured.
func (r *ProviderRegistry) Validate() error {
	if r.factory == nil {
		return fmt.Errorf("provider factory is not configured")
	}
	return nil
}
