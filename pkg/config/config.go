package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	GoogleApiKey   string
	DatabaseURL    string
	RedisAddr      string
	ReasoningModel string
	FastModel      string
	EmbeddingModel string
	Port           string

	// Search provider credentials. Empty keys leave the provider out of
	// the cascade.
	BraveApiKey  string
	MojeekApiKey string
	GoogleCSEKey string
	GoogleCSEID  string
	SerpApiKey   string
	TavilyApiKey string
	TavilyDepth  string

	// Domain lists applied to every search; comma-separated in the env.
	IncludeDomains []string
	ExcludeDomains []string

	ProfilesDir string

	MaxIterations   int
	MinQualityScore float64
	BatchWorkers    int
	CacheTTLMinutes int
	ChunkSize       int
	ChunkOverlap    int
}

func Load() *Config {
	return &Config{
		GoogleApiKey:   getEnv("GOOGLE_API_KEY", ""),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		ReasoningModel: getEnv("REASONING_MODEL", "gemini-3-pro-preview"),
		FastModel:      getEnv("FAST_MODEL", "gemini-3-flash-preview"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "gemini-embedding-001"),
		Port:           getEnv("PORT", "3000"),

		BraveApiKey:  getEnv("BRAVE_API_KEY", ""),
		MojeekApiKey: getEnv("MOJEEK_API_KEY", ""),
		GoogleCSEKey: getEnv("GOOGLE_CSE_KEY", ""),
		GoogleCSEID:  getEnv("GOOGLE_CSE_ID", ""),
		SerpApiKey:   getEnv("SERPAPI_KEY", ""),
		TavilyApiKey: getEnv("TAVILY_API_KEY", ""),
		TavilyDepth:  getEnv("TAVILY_DEPTH", "basic"),

		IncludeDomains: getEnvAsList("INCLUDE_DOMAINS"),
		ExcludeDomains: getEnvAsList("EXCLUDE_DOMAINS"),

		ProfilesDir: getEnv("PROFILES_DIR", "profiles"),

		MaxIterations:   getEnvAsInt("MAX_ITERATIONS", 3),
		MinQualityScore: float64(getEnvAsInt("MIN_QUALITY_SCORE", 85)),
		BatchWorkers:    getEnvAsInt("BATCH_WORKERS", 5),
		CacheTTLMinutes: getEnvAsInt("CACHE_TTL_MINUTES", 60),
		ChunkSize:       getEnvAsInt("CHUNK_SIZE", 1000),
		ChunkOverlap:    getEnvAsInt("CHUNK_OVERLAP", 200),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
