package capabilities

import "gopkg.in/yaml.v3"

// ToolCallQuality grades how reliably a model drives tool use.
type ToolCallQuality string

const (
	ToolCallQualityExcellent ToolCallQuality = "excellent"
	ToolCallQualityGood      ToolCallQuality = "good"
	ToolCallQualityBasic     ToolCallQuality = "basic"
	ToolCallQualityNone      ToolCallQuality = "none"
)

// PricingTier is a price band keyed by context usage. A nil threshold means
// the tier is unbounded. Prices are USD per million tokens by modality.
type PricingTier struct {
	Threshold   *int               `yaml:"threshold" json:"threshold"`
	InputPrice  map[string]float64 `yaml:"input_price" json:"input_price"`
	OutputPrice map[string]float64 `yaml:"output_price" json:"output_price"`
}

// ModelCapabilities describes one model as advertised to clients.
type ModelCapabilities struct {
	// ID is the YAML map key, set during unmarshaling
	ID string `yaml:"-" json:"id"`

	DisplayName string `yaml:"display_name" json:"display_name"`
	Description string `yaml:"description" json:"description"`

	SupportsTools    bool `yaml:"supports_tools" json:"supports_tools"`
	SupportsThinking bool `yaml:"supports_thinking" json:"supports_thinking"`
	SupportsVision   bool `yaml:"supports_vision" json:"supports_vision"`

	// RequiresThinking marks thinking-variant models that cannot run with
	// thinking disabled (e.g. kimi-k2-thinking)
	RequiresThinking bool `yaml:"requires_thinking" json:"requires_thinking"`

	ToolCallQuality ToolCallQuality `yaml:"tool_call_quality" json:"tool_call_quality"`

	ContextWindow int `yaml:"context_window" json:"context_window"`
	MaxOutput     int `yaml:"max_output" json:"max_output"`

	PricingTiers []PricingTier `yaml:"pricing_tiers" json:"pricing_tiers"`
}

// ProviderCapabilities is the parsed form of one provider's YAML file.
type ProviderCapabilities struct {
	Provider     string              `yaml:"provider" json:"provider"`
	DefaultModel string              `yaml:"default_model" json:"default_model"`
	Models       []ModelCapabilities `yaml:"-" json:"models"` // ordered slice, populated by custom unmarshaler
}

// UnmarshalYAML keeps Models in file order. Decoding the models mapping into a
// plain map would shuffle them, and clients render pickers in this order.
func (p *ProviderCapabilities) UnmarshalYAML(node *yaml.Node) error {
	// Scalar fields first
	for i := 0; i < len(node.Content); i += 2 {
		switch node.Content[i].Value {
		case "provider":
			p.Provider = node.Content[i+1].Value
		case "default_model":
			p.DefaultModel = node.Content[i+1].Value
		}
	}

	// Decode models into a map to get the full data
	type modelsOnly struct {
		Models map[string]ModelCapabilities `yaml:"models"`
	}
	var m modelsOnly
	if err := node.Decode(&m); err != nil {
		return err
	}

	// Walk the mapping node to recover key order, then build the slice
	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value != "models" {
			continue
		}
		modelsNode := node.Content[i+1]
		// modelsNode.Content alternates: key, value, key, value...
		for j := 0; j < len(modelsNode.Content); j += 2 {
			modelID := modelsNode.Content[j].Value
			if model, ok := m.Models[modelID]; ok {
				model.ID = modelID
				p.Models = append(p.Models, model)
			}
		}
		break
	}

	return nil
}
