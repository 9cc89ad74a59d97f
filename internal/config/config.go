package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI string
	DBName   string
	Port     string
	GinMode  string

	CORSOrigins         []string
	MaxFileSize         int64
	FileStorageDir      string
	SyncProcessingLimit int64

	// Redis (rate limiting, analysis cache, asynq)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	RateLimitReqs   int
	RateLimitWindow int

	// Extraction
	PDFScriptPath     string // sandboxed subprocess extractor
	PDFServiceURL     string // remote extraction service; empty = not attempted
	ExtractionTimeout int    // seconds, applies to subprocess and remote service

	// Gemini (embeddings, OCR, analysis opinions); empty key disables all three
	GeminiAPIKey      string
	EmbeddingsModel   string
	OCRModel          string
	AnalysisModel     string
	OCRRequestsPerMin int

	// Qdrant vector index
	QdrantHost       string
	QdrantPort       int
	QdrantUseTLS     bool
	QdrantCollection string
	VectorDimensions int
	VectorEnabled    bool

	// Search
	SearchLimit     int
	MemoryCacheSize int

	// Telemetry
	TracingEnabled bool
	OTLPEndpoint   string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/tax_documents"),
		DBName:   getEnv("DB_NAME", "tax_documents"),
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "debug"),

		CORSOrigins:         strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),
		MaxFileSize:         getEnvInt64("MAX_FILE_SIZE", 52428800), // 50MB
		FileStorageDir:      getEnv("FILE_STORAGE_DIR", "./storage"),
		SyncProcessingLimit: getEnvInt64("SYNC_PROCESSING_LIMIT", 10485760), // larger uploads go through the queue

		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		PDFScriptPath:     getEnv("PDF_SCRIPT_PATH", "scripts/extract_pdf.py"),
		PDFServiceURL:     getEnv("PDF_SERVICE_URL", ""),
		ExtractionTimeout: getEnvInt("EXTRACTION_TIMEOUT", 10),

		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		EmbeddingsModel:   getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		OCRModel:          getEnv("GEMINI_OCR_MODEL", "gemini-2.0-flash"),
		AnalysisModel:     getEnv("GEMINI_ANALYSIS_MODEL", "gemini-2.0-flash"),
		OCRRequestsPerMin: getEnvInt("OCR_REQUESTS_PER_MIN", 30),

		QdrantHost:       getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:       getEnvInt("QDRANT_PORT", 6334),
		QdrantUseTLS:     getEnvBool("QDRANT_USE_TLS", false),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "documents"),
		VectorDimensions: getEnvInt("VECTOR_DIM", 768),
		VectorEnabled:    getEnvBool("VECTOR_ENABLED", true),

		SearchLimit:     getEnvInt("SEARCH_LIMIT", 5),
		MemoryCacheSize: getEnvInt("MEMORY_CACHE_SIZE", 500),

		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
	}

	if cfg.ExtractionTimeout <= 0 {
		return nil, fmt.Errorf("EXTRACTION_TIMEOUT must be positive")
	}
	if cfg.SearchLimit <= 0 {
		return nil, fmt.Errorf("SEARCH_LIMIT must be positive")
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

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
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
