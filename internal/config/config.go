package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
)

var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")

type Config struct {
	// Database
	DatabaseURL string
	AutoMigrate bool

	// Server
	Port        string
	Environment string
	LogLevel    string

	// Import
	ImportBaseDir      string
	ImagesDir          string
	ImportBatchSize    int
	ImportMode         catalog.ImportMode
	ImportSanitize     catalog.SanitizeMode
	ImportRetryBackoff time.Duration

	// Redis
	RedisURL               string
	CacheInvalidatePattern string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	mode, err := catalog.ParseImportMode(getEnv("IMPORT_MODE", string(catalog.ModeDuplicate)))
	if err != nil {
		return nil, err
	}
	sanitize, err := catalog.ParseSanitizeMode(getEnv("IMPORT_SANITIZE", string(catalog.SanitizeStrip)))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		AutoMigrate: parseBoolEnv("AUTO_MIGRATE", true),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		ImportBaseDir:      getEnv("IMPORT_BASE_DIR", "."),
		ImagesDir:          getEnv("IMAGES_DIR", "./images"),
		ImportBatchSize:    parseBatchSize(),
		ImportMode:         mode,
		ImportSanitize:     sanitize,
		ImportRetryBackoff: parseDurationEnv("IMPORT_RETRY_BACKOFF", 500*time.Millisecond),

		RedisURL:               os.Getenv("REDIS_URL"),
		CacheInvalidatePattern: getEnv("CACHE_INVALIDATE_PATTERN", "catalog:*"),
	}

	if cfg.DatabaseURL == "" {
		return cfg, ErrMissingDatabaseURL
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func parseBatchSize() int {
	size := parseIntEnv("IMPORT_BATCH_SIZE", catalog.DefaultBatchSize)
	if size <= 0 {
		return catalog.DefaultBatchSize
	}
	if size > catalog.MaxBatchSize {
		return catalog.MaxBatchSize
	}
	return size
}

func parseIntEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func parseBoolEnv(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func parseDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
