package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	CORSOrigins string
	TablePrefix string
	JWKSURL     string
	// Decoupled transport
	RedisURL          string
	RelayURL          string
	WorkerConcurrency int
	// Semantic retriever
	WeaviateScheme string
	WeaviateHost   string
	WeaviateClass  string
	RetrievalLimit int
	// LLM (OpenAI-compatible vLLM server)
	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	EmbeddingModel string
	// Statistics gateways
	TimeSeriesURL string
	DPMESURL      string
	// Conversation
	HistoryTurns int
	RulesFile    string
	// Logging
	LogDir      string
	LogMaxFiles int
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix: getTablePrefix(env),
		JWKSURL:     getEnv("JWKS_URL", ""),

		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379"),
		RelayURL:          getEnv("RELAY_URL", "http://localhost:9000"),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),

		WeaviateScheme: getEnv("WEAVIATE_SCHEME", "http"),
		WeaviateHost:   getEnv("WEAVIATE_HOST", "localhost:8081"),
		WeaviateClass:  getEnv("WEAVIATE_CLASS", "IndicatorChunk"),
		RetrievalLimit: getEnvInt("RETRIEVAL_LIMIT", 4),

		LLMBaseURL:     getEnv("LLM_API_BASE", "http://localhost:8000/v1"),
		LLMAPIKey:      getEnv("LLM_API_KEY", "EMPTY"),
		LLMModel:       getEnv("LLM_MODEL", "openai/gpt-oss-20b"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "BAAI/bge-base-en-v1.5"),

		TimeSeriesURL: getEnv("TIME_SERIES_URL", "https://time-series.mopd.gov.et"),
		DPMESURL:      getEnv("DPMES_URL", "https://dpmes.mopd.gov.et"),

		HistoryTurns: getEnvInt("HISTORY_TURNS", 3),
		RulesFile:    getEnv("RULES_FILE", ""),

		LogDir:      getEnv("LOG_DIR", ""),
		LogMaxFiles: getEnvInt("LOG_MAX_FILES", 10),
	}
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
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
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
