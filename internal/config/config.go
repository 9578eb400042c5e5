package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	APIPort   string
	UploadDir string
	IndexDir  string
	DBPath    string

	// VectorStore selects the index backend: "disk" or "qdrant".
	VectorStore string
	QdrantURL   string

	EmbeddingBaseURL    string
	EmbeddingModelName  string
	EmbeddingVectorSize int

	LLMBaseURL   string
	LLMModelName string
	LLMAPIKey    string

	// Optional secondary generative model. When OpenAIAPIKey is empty the
	// answer chain skips straight from the primary model to extraction.
	OpenAIAPIKey  string
	FallbackModel string

	GenerationTimeout time.Duration
	MaxTokens         int
	Temperature       float32

	ChunkSize     int
	ChunkOverlap  int
	MinLineLength int
	RetrievalK    int

	IngestInterval time.Duration

	LogLevel  string
	LogFormat string

	// QueryStrictErrors makes the query endpoint return HTTP errors instead
	// of translating failures into answer text.
	QueryStrictErrors bool
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	// Check current directory first, then walk up to find project root (where go.mod is)
	_ = godotenv.Load() // Try current directory

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	cfg := &Config{
		APIPort:   getEnv("API_PORT", "8000"),
		UploadDir: getEnv("UPLOAD_DIR", "./data/uploads"),
		IndexDir:  getEnv("INDEX_DIR", "./data/index"),
		DBPath:    getEnv("DB_PATH", "./data/butler.db"),

		VectorStore: getEnv("VECTOR_STORE", "disk"),
		QdrantURL:   getEnv("QDRANT_URL", "http://localhost:6333"),

		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "granite-embedding-278m-multilingual"),

		LLMBaseURL:   getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName: getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:    getEnv("LLM_API_KEY", "dummy-key"),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		FallbackModel: getEnv("FALLBACK_MODEL", "gpt-4o-mini"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	if cfg.VectorStore != "disk" && cfg.VectorStore != "qdrant" {
		return nil, fmt.Errorf("VECTOR_STORE must be \"disk\" or \"qdrant\", got %q", cfg.VectorStore)
	}

	// Must match the output vector size of the embeddings model. If the
	// model changes, existing indexes have to be rebuilt.
	vectorSizeStr := getEnv("EMBEDDING_VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE must be greater than 0")
	}
	cfg.EmbeddingVectorSize = vectorSize

	if cfg.GenerationTimeout, err = getEnvDuration("GENERATION_TIMEOUT_SECS", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.IngestInterval, err = getEnvDuration("INGEST_INTERVAL_SECS", 30*time.Second); err != nil {
		return nil, err
	}

	if cfg.MaxTokens, err = getEnvInt("MAX_TOKENS", 512); err != nil {
		return nil, err
	}
	if cfg.ChunkSize, err = getEnvInt("CHUNK_SIZE", 800); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap, err = getEnvInt("CHUNK_OVERLAP", 100); err != nil {
		return nil, err
	}
	if cfg.MinLineLength, err = getEnvInt("MIN_LINE_LENGTH", 10); err != nil {
		return nil, err
	}
	if cfg.RetrievalK, err = getEnvInt("RETRIEVAL_K", 3); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", cfg.ChunkOverlap, cfg.ChunkSize)
	}

	tempStr := getEnv("TEMPERATURE", "0.7")
	temp, err := strconv.ParseFloat(tempStr, 32)
	if err != nil {
		return nil, fmt.Errorf("TEMPERATURE must be a valid number: %w", err)
	}
	cfg.Temperature = float32(temp)

	cfg.QueryStrictErrors = getEnv("QUERY_STRICT_ERRORS", "false") == "true"

	// Create working directories up front so the first upload doesn't fail.
	for _, dir := range []string{cfg.UploadDir, cfg.IndexDir, filepath.Dir(cfg.DBPath)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	secs, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number of seconds: %w", key, err)
	}
	return time.Duration(secs) * time.Second, nil
}
