package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	Port        string

	StorageType string // "local" or "s3"
	StoragePath string

	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string

	AIAPIKey   string
	EmbedModel string
	EmbedDim   int
	GenModel   string

	ChunkMaxTokens     int
	ChunkOverlapTokens int
	IngestBatchSize    int

	HeartbeatIntervalSeconds int
	StallTimeoutMinutes      int
	ReaperIntervalMinutes    int
}

// LoadConfig loads the environment variables and returns the config.
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "8080"),

		StorageType: getEnv("STORAGE_TYPE", "local"),
		StoragePath: getEnv("STORAGE_PATH", "./storage/uploads"),

		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "maktaba-books"),

		AIAPIKey:   getEnv("GEMINI_API_KEY", ""),
		EmbedModel: getEnv("EMBED_MODEL", "gemini-embedding-001"),
		EmbedDim:   getEnvInt("EMBED_DIM", 768),
		GenModel:   getEnv("GEN_MODEL", "gemini-2.0-flash"),

		ChunkMaxTokens:     getEnvInt("CHUNK_MAX_TOKENS", 500),
		ChunkOverlapTokens: getEnvInt("CHUNK_OVERLAP_TOKENS", 50),
		IngestBatchSize:    getEnvInt("INGEST_BATCH_SIZE", 5),

		HeartbeatIntervalSeconds: getEnvInt("HEARTBEAT_INTERVAL_SECONDS", 15),
		StallTimeoutMinutes:      getEnvInt("STALL_TIMEOUT_MINUTES", 10),
		ReaperIntervalMinutes:    getEnvInt("REAPER_INTERVAL_MINUTES", 5),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}
