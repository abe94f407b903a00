package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret string

	// Server
	ApiPort     string
	MetricsPort string

	// NATS
	NatsURL string

	// AWS S3
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string
	ImageBaseURL       string
	UploadURLTTL       time.Duration

	// Logging
	LogLevel    string
	LogEncoding string

	// Listings
	GetCacheTTL             time.Duration
	MaxDraftAge             time.Duration
	DraftCleanupInterval    time.Duration
	ModerationRequiresAdmin bool
	HideErrorDetails        bool

	// Rate Limiting
	RateLimitBucketSize int
	RateLimitRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode,
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "listings")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret = getEnv("JWT_SECRET", "")
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.MetricsPort = getEnv("METRICS_PORT", "9090")
	cfg.NatsURL = getEnv("NATS_URL", "")
	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "us-east-1")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "")
	cfg.ImageBaseURL = getEnv("IMAGE_BASE_URL", "")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogEncoding = getEnv("LOG_ENCODING", "json")

	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	uploadTTLMinutes, err := strconv.ParseInt(getEnv("UPLOAD_URL_TTL_MINUTES", "15"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_URL_TTL_MINUTES: %w", err)
	}
	cfg.UploadURLTTL = time.Duration(uploadTTLMinutes) * time.Minute

	getCacheTTLSeconds, err := strconv.ParseInt(getEnv("GET_CACHE_TTL_SECONDS", "60"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid GET_CACHE_TTL_SECONDS: %w", err)
	}
	cfg.GetCacheTTL = time.Duration(getCacheTTLSeconds) * time.Second

	maxDraftAgeHours, err := strconv.ParseInt(getEnv("MAX_DRAFT_AGE_HOURS", "720"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_DRAFT_AGE_HOURS: %w", err)
	}
	cfg.MaxDraftAge = time.Duration(maxDraftAgeHours) * time.Hour

	cleanupMinutes, err := strconv.ParseInt(getEnv("DRAFT_CLEANUP_INTERVAL_MINUTES", "60"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid DRAFT_CLEANUP_INTERVAL_MINUTES: %w", err)
	}
	cfg.DraftCleanupInterval = time.Duration(cleanupMinutes) * time.Minute

	cfg.ModerationRequiresAdmin, err = strconv.ParseBool(getEnv("MODERATION_REQUIRES_ADMIN", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid MODERATION_REQUIRES_ADMIN: %w", err)
	}
	if cfg.ModerationRequiresAdmin && cfg.JwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required when MODERATION_REQUIRES_ADMIN is set")
	}

	cfg.HideErrorDetails, err = strconv.ParseBool(getEnv("HIDE_ERROR_DETAILS", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid HIDE_ERROR_DETAILS: %w", err)
	}

	cfg.RateLimitBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_BUCKET_SIZE", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_REFILL_RATE", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REFILL_RATE: %w", err)
	}

	return cfg, nil
}
