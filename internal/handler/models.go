package handler

import (
	"log/slog"
	"net/http"

	"atelier/internal/capabilities"
	"atelier/internal/config"
	"atelier/internal/httputil"
)

// ModelsHandler serves the model capability catalog.
type ModelsHandler struct {
	config   *config.Config
	logger   *slog.Logger
	registry *capabilities.Registry
}

// NewModelsHandler creates a new models handler
func NewModelsHandler(cfg *config.Config, logger *slog.Logger, registry *capabilities.Registry) *ModelsHandler {
	return &ModelsHandler{
		config:   cfg,
		logger:   logger,
		registry: registry,
	}
}

// ProviderResponse represents a provider with its models
type ProviderResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	DefaultModel string          `json:"default_model,omitempty"`
	Models       []ModelResponse `json:"models"`
}

// ModelResponse represents a model's capabilities for the API response
type ModelResponse struct {
	ID            string           `json:"id"`
	DisplayName   string           `json:"display_name"`
	Description   string           `json:"description,omitempty"`
	ContextWindow int              `json:"context_window"`
	MaxOutput     int              `json:"max_output"`
	Capabilities  CapabilitiesInfo `json:"capabilities"`
	Pricing       PricingInfo      `json:"pricing"`
}

// CapabilitiesInfo represents model capabilities
type CapabilitiesInfo struct {
	ToolCalls  string `json:"tool_calls"` // excellent, good, fair, poor, none
	ImageInput bool   `json:"image_input"`
	Streaming  bool   `json:"streaming"`
	Thinking   bool   `json:"thinking"`
}

// PricingInfo carries the first tier's text prices for quick display plus
// the full tier table.
type PricingInfo struct {
	InputPer1M  float64               `json:"input_per_1m"`
	OutputPer1M float64               `json:"output_per_1m"`
	Tiers       []PricingTierResponse `json:"tiers,omitempty"`
}

// PricingTierResponse represents a single pricing tier
type PricingTierResponse struct {
	Threshold   *int               `json:"threshold"` // null = unlimited
	InputPrice  map[string]float64 `json:"input_price"`
	OutputPrice map[string]float64 `json:"output_price"`
}

var providerNames = map[string]string{
	"anthropic":  "Anthropic",
	"gemini":     "Google Gemini",
	"openrouter": "OpenRouter",
	"lorem":      "Lorem (offline mock)",
}

// GetCapabilities returns model capabilities for all available providers.
// Only providers with a configured service key are listed; lorem needs no
// key and is always present.
func (h *ModelsHandler) GetCapabilities(w http.ResponseWriter, r *http.Request) {
	providers := make([]ProviderResponse, 0, 4)

	for _, pc := range h.registry.ListAll() {
		if !h.providerAvailable(pc.Provider) {
			continue
		}

		name := providerNames[pc.Provider]
		if name == "" {
			name = pc.Provider
		}

		providers = append(providers, ProviderResponse{
			ID:           pc.Provider,
			Name:         name,
			DefaultModel: pc.DefaultModel,
			Models:       convertModels(pc.Models),
		})
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"providers": providers,
	})
}

func (h *ModelsHandler) providerAvailable(provider string) bool {
	switch provider {
	case "anthropic":
		return h.config.AnthropicAPIKey != ""
	case "gemini":
		return h.config.GeminiAPIKey != ""
	case "openrouter":
		return h.config.OpenRouterAPIKey != ""
	case "lorem":
		return true
	default:
		return false
	}
}

// convertModels maps registry entries to the API response shape, preserving
// the registry's ordering.
func convertModels(models []capabilities.ModelCapabilities) []ModelResponse {
	responses := make([]ModelResponse, 0, len(models))

	for _, m := range models {
		var tiers []PricingTierResponse
		for _, tier := range m.PricingTiers {
			tiers = append(tiers, PricingTierResponse{
				Threshold:   tier.Threshold,
				InputPrice:  tier.InputPrice,
				OutputPrice: tier.OutputPrice,
			})
		}

		var inputPer1M, outputPer1M float64
		if len(m.PricingTiers) > 0 {
			inputPer1M = m.PricingTiers[0].InputPrice["text"]
			outputPer1M = m.PricingTiers[0].OutputPrice["text"]
		}

		responses = append(responses, ModelResponse{
			ID:            m.ID,
			DisplayName:   m.DisplayName,
			Description:   m.Description,
			ContextWindow: m.ContextWindow,
			MaxOutput:     m.MaxOutput,
			Capabilities: CapabilitiesInfo{
				ToolCalls:  string(m.ToolCallQuality),
				ImageInput: m.SupportsVision,
				Streaming:  true,
				Thinking:   m.SupportsThinking,
			},
			Pricing: PricingInfo{
				InputPer1M:  inputPer1M,
				OutputPer1M: outputPer1M,
				Tiers:       tiers,
			},
		})
	}

	return responses
}
