package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port            string
	Environment     string
	DatabaseURL     string
	SupabaseURL     string
	SupabaseKey     string // Service role key, used only by cmd/seed for user provisioning
	SupabaseJWKSURL string // Constructed from SUPABASE_URL unless overridden
	CORSOrigins     string
	TablePrefix     string
	// LLM Configuration
	AnthropicAPIKey  string
	GeminiAPIKey     string
	OpenRouterAPIKey string
	TavilyAPIKey     string
	DefaultProvider  string
	DefaultModel     string
	// Redis (studio response cache + rate limiter)
	Redis RedisConfig
	// StudioCacheTTLSeconds controls how long one-shot responses are memoized
	StudioCacheTTLSeconds int
	// SecretsMasterKey seals user-supplied provider API keys at rest
	SecretsMasterKey string
	// RateLimitRPM is the per-user request budget per minute
	RateLimitRPM int
	// ToolsEnabled gates chat tool use per environment
	ToolsEnabled bool
	// LogDir, when set, mirrors logs to timestamped files in this directory
	LogDir string
	// Debug flags
	Debug bool // Enables DEBUG features like SSE event IDs
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	tablePrefix := getTablePrefix(env)
	supabaseURL := getEnv("SUPABASE_URL", "")

	// Construct JWKS URL from Supabase URL unless given explicitly
	jwksURL := getEnv("SUPABASE_JWKS_URL", supabaseURL+"/auth/v1/.well-known/jwks.json")

	return &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     env,
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		SupabaseURL:     supabaseURL,
		SupabaseKey:     getEnv("SUPABASE_KEY", ""),
		SupabaseJWKSURL: jwksURL,
		CORSOrigins:     getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix:     tablePrefix,
		// LLM Configuration
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		TavilyAPIKey:     getEnv("TAVILY_API_KEY", ""),
		DefaultProvider:  getEnv("DEFAULT_PROVIDER", "anthropic"),
		DefaultModel:     getEnv("DEFAULT_MODEL", "claude-haiku-4-5-20251001"),
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		StudioCacheTTLSeconds: getEnvInt("STUDIO_CACHE_TTL_SECONDS", 900),
		SecretsMasterKey:      getEnv("SECRETS_MASTER_KEY", ""),
		RateLimitRPM:          getEnvInt("RATE_LIMIT_RPM", 60),
		// Tools default on outside production, off in prod unless opted in
		ToolsEnabled: getEnv("TOOLS_ENABLED", getDefaultDebug(env)) == "true",
		LogDir:       getEnv("LOG_DIR", ""),
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true" // Enable DEBUG in dev/test by default
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	// Auto-generate based on environment
	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	case "dev":
		return "dev_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
