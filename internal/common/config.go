package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Storage   StorageConfig
	Gating    GatingConfig
	Retrieval RetrievalConfig
	Rulebook  RulebookConfig
	LLM       LLMConfig
	Pipeline  PipelineConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
	MigrationsPath   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr string
}

// StorageConfig holds object store and knowledge-base configuration
type StorageConfig struct {
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	ESAddresses []string
	ESIndex     string
}

// GatingConfig holds the text-density thresholds for the OCR decision
type GatingConfig struct {
	MinTotalChars      int
	MinPageChars       int
	BatchPageThreshold int
}

// RetrievalConfig holds knowledge retrieval parameters
type RetrievalConfig struct {
	TopK     int
	MinScore float64
	EmbedDim int
}

// RulebookConfig holds rule catalog source and cache settings
type RulebookConfig struct {
	ObjectKey string
	CacheTTL  time.Duration
}

// LLMConfig holds generative model configuration
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	LegacyModel string
	EmbedModel  string
	Temperature float32
	Timeout     time.Duration
}

// PipelineConfig holds orchestrator behavior flags
type PipelineConfig struct {
	RunTimeout              time.Duration
	Workers                 int
	QueueSize               int
	UseGenerativeValidation bool
	AllowLegacyFallback     bool
	EnableIdempotency       bool
	OCREndpoint             string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
			MigrationsPath:   getEnv("DB_MIGRATIONS_PATH", "db/migrations"),
		},
		Server: ServerConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
		Storage: StorageConfig{
			S3Endpoint:  getEnv("S3_ENDPOINT", ""),
			S3Region:    getEnv("S3_REGION", "eu-south-1"),
			S3Bucket:    getEnv("S3_BUCKET", ""),
			ESAddresses: []string{getEnv("ELASTICSEARCH_URL", "http://localhost:9200")},
			ESIndex:     getEnv("ES_KB_INDEX", "kb_chunks"),
		},
		Gating: GatingConfig{
			MinTotalChars:      getEnvAsInt("OCR_MIN_TOTAL_CHARS", 50),
			MinPageChars:       getEnvAsInt("OCR_MIN_PAGE_CHARS", 30),
			BatchPageThreshold: getEnvAsInt("OCR_BATCH_PAGE_THRESHOLD", 31),
		},
		Retrieval: RetrievalConfig{
			TopK:     getEnvAsInt("RAG_TOP_K", 6),
			MinScore: getEnvAsFloat64("RAG_MIN_SCORE", 0.3),
			EmbedDim: getEnvAsInt("RAG_EMBED_DIM", 768),
		},
		Rulebook: RulebookConfig{
			ObjectKey: getEnv("RULEBOOK_OBJECT_KEY", "rulebook/rulebook-v1.json"),
			CacheTTL:  getEnvAsDuration("RULEBOOK_CACHE_TTL", 5*time.Minute),
		},
		LLM: LLMConfig{
			BaseURL:     getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			APIKey:      getEnv("LLM_API_KEY", ""),
			Model:       getEnv("LLM_MODEL", "gpt-4o-mini"),
			LegacyModel: getEnv("LLM_LEGACY_MODEL", "gpt-4o-mini"),
			EmbedModel:  getEnv("LLM_EMBED_MODEL", "text-embedding-3-small"),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
		},
		Pipeline: PipelineConfig{
			RunTimeout:              getEnvAsDuration("PIPELINE_RUN_TIMEOUT", 180*time.Second),
			Workers:                 getEnvAsInt("PIPELINE_WORKERS", 4),
			QueueSize:               getEnvAsInt("PIPELINE_QUEUE_SIZE", 256),
			UseGenerativeValidation: getEnvAsBool("USE_GENERATIVE_VALIDATION", true),
			AllowLegacyFallback:     getEnvAsBool("ALLOW_LEGACY_FALLBACK", true),
			EnableIdempotency:       getEnvAsBool("ENABLE_IDEMPOTENCY", true),
			OCREndpoint:             getEnv("OCR_ENDPOINT", ""),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Storage.S3Bucket == "" {
		return NewAppError("CONFIG_ERROR", "S3_BUCKET is required", ErrInvalidInput)
	}
	if c.Pipeline.UseGenerativeValidation && c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "LLM_API_KEY is required when generative validation is enabled", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	return nil
}
