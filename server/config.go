package server

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the service configuration, loaded from the environment.
type Config struct {
	// Server configuration
	ServerHost string
	ServerPort string

	// LLM configuration
	OpenAIKey     string
	Model         string
	OpenAIBaseURL string

	// Web search
	TavilyKey string

	// Vector store configuration
	VectorStoreType string // "memory", "chroma" or "pgvector"
	ChromaURL       string
	PostgresDSN     string

	// History configuration
	HistoryBackend string // "sqlite" or "postgres"
	SqlitePath     string
	RedisAddr      string // empty disables the message cache

	// Retrieval configuration
	ChunkSize    int
	ChunkOverlap int
	TopK         int
}

// LoadConfig loads configuration from environment variables with sensible
// defaults.
func LoadConfig() Config {
	return Config{
		ServerHost:      getEnv("SERVER_HOST", "0.0.0.0"),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		Model:           getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		TavilyKey:       os.Getenv("TAVILY_API_KEY"),
		VectorStoreType: getEnv("VECTOR_STORE_TYPE", "memory"),
		ChromaURL:       getEnv("CHROMA_URL", "http://localhost:8000"),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		HistoryBackend:  getEnv("HISTORY_BACKEND", "sqlite"),
		SqlitePath:      getEnv("SQLITE_PATH", "agrigraph.db"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		ChunkSize:       getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:    getEnvInt("CHUNK_OVERLAP", 200),
		TopK:            getEnvInt("TOP_K", 4),
	}
}

// Validate checks that required configuration is present for the selected
// backends.
func (c Config) Validate() error {
	if c.OpenAIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable is required")
	}
	if c.TavilyKey == "" {
		return fmt.Errorf("TAVILY_API_KEY environment variable is required")
	}
	switch c.VectorStoreType {
	case "memory", "chroma":
	case "pgvector":
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the pgvector store")
		}
	default:
		return fmt.Errorf("unsupported vector store type: %s", c.VectorStoreType)
	}
	switch c.HistoryBackend {
	case "sqlite":
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres history backend")
		}
	default:
		return fmt.Errorf("unsupported history backend: %s", c.HistoryBackend)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value.
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
