package llm

import (
	"fmt"
	"strings"

	"atelier/internal/capabilities"
	"atelier/internal/domain/models/chat"
)

// ResolvedModel is a model string resolved to a concrete provider and the
// model ID that provider expects.
type ResolvedModel struct {
	Provider string
	Model    string
}

// ModelResolver turns user-supplied model strings into provider routing
// decisions.
//
// Accepted forms:
//   - "anthropic/claude-sonnet-4-5"          explicit provider prefix
//   - "openrouter/openai/gpt-4o"             prefix stripped, rest passes through
//   - "claude-sonnet-4-5"                    bare name, resolved via registry
//   - "meta-llama/llama-3.3-70b-instruct"    unknown head is part of the model ID
type ModelResolver struct {
	registry        *capabilities.Registry
	defaultProvider string
	defaultModel    string
}

// NewModelResolver creates a resolver backed by the capability registry.
// defaultProvider and defaultModel come from config and must be non-empty.
func NewModelResolver(registry *capabilities.Registry, defaultProvider, defaultModel string) *ModelResolver {
	return &ModelResolver{
		registry:        registry,
		defaultProvider: defaultProvider,
		defaultModel:    defaultModel,
	}
}

// Resolve maps (modelStr, explicitProvider) to a provider and model.
//
// Precedence:
//  1. explicitProvider (the request's "provider" param) wins outright
//  2. a known provider name before the first "/" in modelStr
//  3. exact registry match on the bare model ID
//  4. prefix inference (claude-* → anthropic, gpt-* → openrouter, ...)
//  5. the configured default provider
//
// An empty modelStr resolves to the configured default model.
func (r *ModelResolver) Resolve(modelStr, explicitProvider string) (*ResolvedModel, error) {
	if modelStr == "" {
		modelStr = r.defaultModel
	}
	if modelStr == "" {
		return nil, fmt.Errorf("model string cannot be empty")
	}

	prefixProvider, model := chat.SplitProviderModel(modelStr)
	if model == "" || strings.HasPrefix(model, "/") {
		return nil, fmt.Errorf("invalid model format: %q", modelStr)
	}

	if explicitProvider != "" {
		// Strip the prefix only when it names the same provider; anything
		// else is part of the provider's own model ID
		// (e.g. provider=openrouter, model=anthropic/claude-sonnet-4-5).
		if prefixProvider != explicitProvider {
			model = modelStr
		}
		return &ResolvedModel{Provider: explicitProvider, Model: model}, nil
	}

	if prefixProvider != "" {
		return &ResolvedModel{Provider: prefixProvider, Model: model}, nil
	}

	if provider, _, ok := r.registry.FindModel(model); ok {
		return &ResolvedModel{Provider: provider, Model: model}, nil
	}

	if provider, ok := chat.GetProviderForModel(model); ok {
		return &ResolvedModel{Provider: provider, Model: model}, nil
	}

	return &ResolvedModel{Provider: r.defaultProvider, Model: model}, nil
}

// Capabilities returns the registry entry for a resolved model, if any.
// Dated snapshot IDs and passthrough models are legal but unlisted, so a
// missing entry is not an error.
func (r *ModelResolver) Capabilities(resolved *ResolvedModel) (*capabilities.ModelCapabilities, bool) {
	caps, err := r.registry.GetModelCapabilities(resolved.Provider, resolved.Model)
	if err != nil {
		return nil, false
	}
	return caps, true
}
