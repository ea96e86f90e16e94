package chat

import (
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"atelier/internal/domain"
)

// defaultThinkingBudget is applied when thinking is enabled without an
// explicit budget. Providers clamp to their own minimums on top of this.
const defaultThinkingBudget = 4096

// RequestParams carries the sampling and behaviour knobs a client may attach
// to a turn or studio request. Every field is optional; providers substitute
// their own defaults for absent values. The raw map form is persisted on the
// turn so a regeneration can replay the original request exactly.
type RequestParams struct {
	// Model is a bare model name ("claude-haiku-4-5-20251001"). When absent
	// the server default is used.
	Model *string `json:"model,omitempty"`

	// Provider pins the request to a provider by name. When absent the
	// provider is inferred from the model prefix, falling back to openrouter.
	Provider *string `json:"provider,omitempty"`

	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	Stop        []string `json:"stop,omitempty"`

	// System is the user-supplied system prompt. It is combined with the
	// workspace prompt by the system prompt resolver, not used verbatim.
	System *string `json:"system,omitempty"`

	ThinkingEnabled      *bool `json:"thinking_enabled,omitempty"`
	ThinkingBudgetTokens *int  `json:"thinking_budget_tokens,omitempty"`

	// Tools the assistant may call during this turn.
	Tools []ToolDefinition `json:"tools,omitempty"`
}

// GetMaxTokens returns the requested max tokens, or defaultValue when unset
// or non-positive.
func (p *RequestParams) GetMaxTokens(defaultValue int) int {
	if p == nil || p.MaxTokens == nil || *p.MaxTokens <= 0 {
		return defaultValue
	}
	return *p.MaxTokens
}

// GetThinkingBudgetTokens returns the requested thinking budget, or the
// package default when unset. Only meaningful when ThinkingEnabled is true.
func (p *RequestParams) GetThinkingBudgetTokens() int {
	if p == nil || p.ThinkingBudgetTokens == nil || *p.ThinkingBudgetTokens <= 0 {
		return defaultThinkingBudget
	}
	return *p.ThinkingBudgetTokens
}

// Validate checks field ranges. Nil fields are skipped (providers default
// them), so only present-but-invalid values fail.
func (p *RequestParams) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.MaxTokens, validation.Min(1)),
		validation.Field(&p.Temperature, validation.Min(0.0), validation.Max(2.0)),
		validation.Field(&p.TopP, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&p.TopK, validation.Min(1)),
		validation.Field(&p.ThinkingBudgetTokens, validation.Min(1024)),
	)
}

// allowedParamKeys is the closed set of request_params keys. Unknown keys are
// rejected rather than ignored so client typos ("max_token") surface as 400s
// instead of silently falling back to defaults.
var allowedParamKeys = map[string]bool{
	"model":                  true,
	"provider":               true,
	"max_tokens":             true,
	"temperature":            true,
	"top_p":                  true,
	"top_k":                  true,
	"stop":                   true,
	"system":                 true,
	"thinking_enabled":       true,
	"thinking_budget_tokens": true,
	"tools":                  true,
}

// ValidateRequestParams checks a raw request_params map before it is persisted
// or decoded: unknown keys and out-of-range values both fail with
// domain.ErrValidation.
func ValidateRequestParams(params map[string]interface{}) error {
	for key := range params {
		if !allowedParamKeys[key] {
			return fmt.Errorf("%w: unknown request param %q", domain.ErrValidation, key)
		}
	}

	parsed, err := GetRequestParamStruct(params)
	if err != nil {
		return err
	}
	if err := parsed.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

// GetRequestParamStruct decodes a raw request_params map into typed params
// via a JSON round trip. Type mismatches (a string temperature, a numeric
// stop list) fail with domain.ErrValidation.
func GetRequestParamStruct(params map[string]interface{}) (*RequestParams, error) {
	if len(params) == 0 {
		return &RequestParams{}, nil
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("%w: request params not serializable: %v", domain.ErrValidation, err)
	}

	var parsed RequestParams
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed request params: %v", domain.ErrValidation, err)
	}
	return &parsed, nil
}
