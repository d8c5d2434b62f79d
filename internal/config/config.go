package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Checkpoint backends
const (
	CheckpointBolt  = "bolt"
	CheckpointRedis = "redis"
	CheckpointNone  = "none"
)

// Config holds all configuration for the application
type Config struct {
	// HTTP transport
	HTTPPort int

	// Log sources
	PkgLogPath            string // pacman.log path or glob
	JournalDir            string // empty = system journal
	RegistryOverridesPath string

	// Live tail
	CheckpointBackend  string
	CheckpointDBPath   string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	LiveBufferCapacity int
	LivePollIntervalMS int
	EagerProducers     bool // start every producer at boot instead of on first subscription

	// Pagination
	MaxPageLimit    int
	ClassifyWorkers int // 0 = GOMAXPROCS

	// Observability
	LogLevel        string
	LogFile         string
	TracingEnabled  bool
	TracingEndpoint string
	TracingProtocol string // grpc | http
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort: getEnvInt("HTTP_PORT", 3200),

		PkgLogPath:            getEnv("PKG_LOG_PATH", "/var/log/pacman.log"),
		JournalDir:            getEnv("JOURNAL_DIR", ""),
		RegistryOverridesPath: getEnv("REGISTRY_OVERRIDES_PATH", "configs/log_classes.yaml"),

		CheckpointBackend:  strings.ToLower(getEnv("CHECKPOINT_BACKEND", CheckpointBolt)),
		CheckpointDBPath:   getEnv("CHECKPOINT_DB_PATH", "hostlog-checkpoints.db"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		LiveBufferCapacity: getEnvInt("LIVE_BUFFER_CAPACITY", 5000),
		LivePollIntervalMS: getEnvInt("LIVE_POLL_INTERVAL_MS", 500),
		EagerProducers:     getEnvBool("EAGER_PRODUCERS", false),

		MaxPageLimit:    getEnvInt("MAX_PAGE_LIMIT", 100000),
		ClassifyWorkers: getEnvInt("CLASSIFY_WORKERS", 0),

		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", ""),
		TracingEnabled:  getEnvBool("TRACING_ENABLED", false),
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4317"),
		TracingProtocol: strings.ToLower(getEnv("TRACING_PROTOCOL", "grpc")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.PkgLogPath == "" {
		return fmt.Errorf("PKG_LOG_PATH is required")
	}
	switch c.CheckpointBackend {
	case CheckpointBolt:
		if c.CheckpointDBPath == "" {
			return fmt.Errorf("CHECKPOINT_DB_PATH is required for the bolt checkpoint backend")
		}
	case CheckpointRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis checkpoint backend")
		}
	case CheckpointNone:
	default:
		return fmt.Errorf("CHECKPOINT_BACKEND must be one of bolt, redis, none")
	}
	if c.LiveBufferCapacity < 1 {
		return fmt.Errorf("LIVE_BUFFER_CAPACITY must be at least 1")
	}
	if c.LivePollIntervalMS < 10 {
		return fmt.Errorf("LIVE_POLL_INTERVAL_MS must be at least 10")
	}
	if c.MaxPageLimit < 1 {
		return fmt.Errorf("MAX_PAGE_LIMIT must be at least 1")
	}
	if c.ClassifyWorkers < 0 {
		return fmt.Errorf("CLASSIFY_WORKERS must not be negative")
	}
	if c.TracingProtocol != "grpc" && c.TracingProtocol != "http" {
		return fmt.Errorf("TRACING_PROTOCOL must be grpc or http")
	}

	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
