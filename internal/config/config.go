package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI      string
	ControlDBName string
	Port          string
	GinMode       string
	CORSOrigins   []string

	// Shared-secret bearer token for the trigger surface.
	APIAuthToken string

	// Gemini (image description provider)
	GeminiAPIKey string
	GeminiModel  string
	GeminiTier   string

	// Vector index
	VectorIndexHost string
	VectorAPIKey    string

	// Redis Configuration (asynq queue + import locks)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Import pipeline tunables
	ChunkSize          int
	MaxConcurrentAI    int
	VectorBatchSize    int
	GroupPauseMs       int
	ChunkPauseMs       int
	VectorBatchPauseMs int
	ImportLockTTLMin   int

	// Worker
	WorkerConcurrency int
	ReimportCron      string
	ReimportEnabled   bool

	// Telemetry
	TracingEnabled bool
	OTLPEndpoint   string
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		err := godotenv.Load()
		if err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		ControlDBName: getEnv("CONTROL_DB_NAME", "styleseeker"),
		Port:          getEnv("PORT", "8080"),
		GinMode:       getEnv("GIN_MODE", "debug"),
		CORSOrigins:   strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),

		APIAuthToken: getEnv("API_AUTH_TOKEN", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTier:   getEnv("GEMINI_TIER", "free"),

		VectorIndexHost: getEnv("VECTOR_INDEX_HOST", ""),
		VectorAPIKey:    getEnv("VECTOR_API_KEY", ""),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		ChunkSize:          getEnvInt("IMPORT_CHUNK_SIZE", 100),
		MaxConcurrentAI:    getEnvInt("MAX_CONCURRENT_AI_CALLS", 10),
		VectorBatchSize:    getEnvInt("VECTOR_BATCH_SIZE", 50),
		GroupPauseMs:       getEnvInt("AI_GROUP_PAUSE_MS", 500),
		ChunkPauseMs:       getEnvInt("CHUNK_PAUSE_MS", 1000),
		VectorBatchPauseMs: getEnvInt("VECTOR_BATCH_PAUSE_MS", 200),
		ImportLockTTLMin:   getEnvInt("IMPORT_LOCK_TTL_MIN", 30),

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 5),
		ReimportCron:      getEnv("REIMPORT_CRON", "0 3 * * *"),
		ReimportEnabled:   getEnvBool("REIMPORT_ENABLED", false),

		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
	}

	// Validate required fields
	if cfg.APIAuthToken == "" {
		return nil, fmt.Errorf("API_AUTH_TOKEN is required - set it in .env file")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	if cfg.VectorIndexHost == "" {
		return nil, fmt.Errorf("VECTOR_INDEX_HOST is required - set it in .env file")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
