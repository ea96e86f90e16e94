package chat

import (
	"errors"
	"testing"

	"atelier/internal/domain"
)

func TestValidateRequestParams(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]interface{}
		wantErr bool
	}{
		{
			name:    "empty params are valid",
			params:  map[string]interface{}{},
			wantErr: false,
		},
		{
			name: "full valid params",
			params: map[string]interface{}{
				"model":                  "claude-sonnet-4-5",
				"provider":               "anthropic",
				"max_tokens":             float64(2048),
				"temperature":            0.7,
				"top_p":                  0.9,
				"top_k":                  float64(40),
				"stop":                   []interface{}{"END"},
				"system":                 "be brief",
				"thinking_enabled":       true,
				"thinking_budget_tokens": float64(2048),
			},
			wantErr: false,
		},
		{
			name: "unknown key rejected",
			params: map[string]interface{}{
				"max_token": float64(100),
			},
			wantErr: true,
		},
		{
			name: "temperature out of range",
			params: map[string]interface{}{
				"temperature": 3.5,
			},
			wantErr: true,
		},
		{
			name: "negative max_tokens",
			params: map[string]interface{}{
				"max_tokens": float64(-1),
			},
			wantErr: true,
		},
		{
			name: "wrong type for temperature",
			params: map[string]interface{}{
				"temperature": "hot",
			},
			wantErr: true,
		},
		{
			name: "thinking budget below provider minimum",
			params: map[string]interface{}{
				"thinking_budget_tokens": float64(100),
			},
			wantErr: true,
		},
		{
			name: "minimal tool reference accepted",
			params: map[string]interface{}{
				"tools": []interface{}{
					map[string]interface{}{"name": "web_search"},
				},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequestParams(tt.params)
			if tt.wantErr && err == nil {
				t.Errorf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr && err != nil && !errors.Is(err, domain.ErrValidation) {
				t.Errorf("error should wrap domain.ErrValidation, got %v", err)
			}
		})
	}
}

func TestGetRequestParamStruct(t *testing.T) {
	params, err := GetRequestParamStruct(map[string]interface{}{
		"model":       "gemini-2.5-flash",
		"max_tokens":  float64(512),
		"temperature": 0.3,
		"stop":        []interface{}{"###", "DONE"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if params.Model == nil || *params.Model != "gemini-2.5-flash" {
		t.Errorf("model not decoded: %+v", params.Model)
	}
	if params.MaxTokens == nil || *params.MaxTokens != 512 {
		t.Errorf("max_tokens not decoded: %+v", params.MaxTokens)
	}
	if params.Temperature == nil || *params.Temperature != 0.3 {
		t.Errorf("temperature not decoded: %+v", params.Temperature)
	}
	if len(params.Stop) != 2 || params.Stop[0] != "###" {
		t.Errorf("stop not decoded: %+v", params.Stop)
	}
	if params.Provider != nil {
		t.Errorf("absent provider should stay nil")
	}
}

func TestGetRequestParamStruct_Empty(t *testing.T) {
	params, err := GetRequestParamStruct(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params == nil {
		t.Fatal("expected empty struct, got nil")
	}
	if params.GetMaxTokens(4096) != 4096 {
		t.Errorf("GetMaxTokens default = %d, want 4096", params.GetMaxTokens(4096))
	}
	if params.GetThinkingBudgetTokens() != defaultThinkingBudget {
		t.Errorf("GetThinkingBudgetTokens default = %d, want %d", params.GetThinkingBudgetTokens(), defaultThinkingBudget)
	}
}

func TestGetMaxTokens_Override(t *testing.T) {
	n := 777
	params := &RequestParams{MaxTokens: &n}
	if got := params.GetMaxTokens(4096); got != 777 {
		t.Errorf("GetMaxTokens = %d, want 777", got)
	}
}
