// internal/infrastructure/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Local store backends
const (
	LocalStorePostgres = "postgres"
	LocalStoreDisk     = "disk"
	LocalStoreMemory   = "memory"
)

// Remote store backends
const (
	RemoteStoreMongo  = "mongo"
	RemoteStoreRedis  = "redis"
	RemoteStoreMemory = "memory"
	RemoteStoreNone   = "none"
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion string
	LogLevel   string

	// Server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string

	// Local planner storage
	LocalStore    string
	PostgresURI   string
	DiskStorePath string

	// Remote trip storage
	RemoteStore     string
	MongoURI        string
	MongoDB         string
	MongoUser       string
	MongoPassword   string
	MongoCollection string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisPrefix     string

	// Sync
	SyncConnectTimeout      time.Duration
	StalenessPollInterval   time.Duration
	StalenessNudgePerMinute int
	SyncRequestsPerMinute   int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	// Set defaults and override with env vars
	config := &Config{
		AppVersion:   getEnv("APP_VERSION", "1.0.0"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout: time.Duration(getEnvAsInt("WRITE_TIMEOUT", 30)) * time.Second,
		CORSOrigins:  getEnvAsList("CORS_ORIGINS", []string{"*"}),

		LocalStore:    strings.ToLower(getEnv("LOCAL_STORE", LocalStoreDisk)),
		PostgresURI:   getEnv("POSTGRES_URI", "postgres://localhost:5432/planner?sslmode=disable"),
		DiskStorePath: getEnv("DISK_STORE_PATH", "./data/planner"),

		RemoteStore:     strings.ToLower(getEnv("REMOTE_STORE", RemoteStoreNone)),
		MongoURI:        getEnv("MONGODB_DSN", "mongodb://localhost:27017"),
		MongoDB:         getEnv("MONGO_DB", "planner"),
		MongoUser:       getEnv("MONGO_USER", ""),
		MongoPassword:   getEnv("MONGO_PASSWORD", ""),
		MongoCollection: getEnv("MONGO_COLLECTION", "trips"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvAsInt("REDIS_DB", 0),
		RedisPrefix:     getEnv("REDIS_PREFIX", "planner:"),

		SyncConnectTimeout:      time.Duration(getEnvAsInt("SYNC_CONNECT_TIMEOUT", 8)) * time.Second,
		StalenessPollInterval:   time.Duration(getEnvAsInt("STALENESS_POLL_INTERVAL", 30)) * time.Second,
		StalenessNudgePerMinute: getEnvAsInt("STALENESS_NUDGE_PER_MINUTE", 6),
		SyncRequestsPerMinute:   getEnvAsInt("SYNC_REQUESTS_PER_MINUTE", 30),
	}

	return config, nil
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
