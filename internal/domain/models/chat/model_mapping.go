package chat

import "strings"

// GetProviderForModel infers the provider for a bare model name from common
// prefixes. Returns (provider, true) on a match, ("", false) otherwise.
//
// Callers fall back to "openrouter", which accepts vendor-prefixed model
// strings for everything else.
func GetProviderForModel(model string) (string, bool) {
	if model == "" {
		return "", false
	}

	modelLower := strings.ToLower(model)

	// Anthropic Claude models
	if strings.HasPrefix(modelLower, "claude-") {
		return "anthropic", true
	}

	// Google Gemini models
	if strings.HasPrefix(modelLower, "gemini-") {
		return "gemini", true
	}

	// OpenAI models route through openrouter (no first-party OpenAI client)
	if strings.HasPrefix(modelLower, "gpt-") || strings.HasPrefix(modelLower, "o1-") ||
		strings.HasPrefix(modelLower, "o3-") {
		return "openrouter", true
	}

	// Lorem mock provider (offline dev and tests)
	if strings.HasPrefix(modelLower, "lorem-") {
		return "lorem", true
	}

	return "", false
}

// SplitProviderModel splits "provider/model" into its parts. A string without
// a slash is returned as a bare model with an empty provider.
func SplitProviderModel(s string) (provider, model string) {
	if i := strings.Index(s, "/"); i > 0 {
		head := s[:i]
		switch head {
		case "anthropic", "gemini", "openrouter", "lorem":
			return head, s[i+1:]
		}
		// Vendor-prefixed openrouter strings like "meta-llama/llama-3-70b"
		// keep the whole string as the model.
	}
	return "", s
}
