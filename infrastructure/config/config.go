// Package config loads node configuration from environment variables and the
// shard configuration from a watched YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ServerConfig holds the settings every node role shares.
type ServerConfig struct {
	ListenAddress    string
	Environment      string
	LogLevel         string
	EnableMetrics    bool
	EnableCORS       bool
	EnableTripSwitch bool
}

// WriterConfig configures a writer node.
type WriterConfig struct {
	Server ServerConfig

	// Mode is "strict" or "dependencyFree".
	Mode                       string
	StoreBidirectionalMappings bool

	// EventCacheURL is where flushed batches are published.
	EventCacheURL string
	// EventLogPath is the durable log file; empty keeps the log in memory.
	EventLogPath string

	// FlushStrategy is "manual", "sizeLimited" or "intervalLimited".
	FlushStrategy      string
	FlushSizeThreshold int
	FlushInterval      time.Duration
}

// ReaderConfig configures a reader node.
type ReaderConfig struct {
	Server ServerConfig

	EventCacheURL              string
	EventLogPath               string
	RefreshInterval            time.Duration
	LoadOnStartup              bool
	StoreBidirectionalMappings bool
}

// CacheConfig configures an event cache node.
type CacheConfig struct {
	Server ServerConfig

	// Capacity bounds how many events the cache retains.
	Capacity int
}

// RouterConfig configures a distributed operation router node.
type RouterConfig struct {
	Server ServerConfig

	// ShardConfigPath is the YAML shard configuration file.
	ShardConfigPath       string
	ConfigRefreshInterval time.Duration
}

func loadServerConfig(defaultAddress string) ServerConfig {
	return ServerConfig{
		ListenAddress:    getEnv("LISTEN_ADDRESS", defaultAddress),
		Environment:      getEnv("ENVIRONMENT", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		EnableMetrics:    getEnvBool("ENABLE_METRICS", true),
		EnableCORS:       getEnvBool("ENABLE_CORS", false),
		EnableTripSwitch: getEnvBool("ENABLE_TRIP_SWITCH", true),
	}
}

// LoadWriterConfig loads the writer node configuration from the environment.
func LoadWriterConfig() (*WriterConfig, error) {
	cfg := &WriterConfig{
		Server:                     loadServerConfig(":5000"),
		Mode:                       getEnv("WRITER_MODE", "dependencyFree"),
		StoreBidirectionalMappings: getEnvBool("STORE_BIDIRECTIONAL_MAPPINGS", true),
		EventCacheURL:              getEnv("EVENT_CACHE_URL", ""),
		EventLogPath:               getEnv("EVENT_LOG_PATH", ""),
		FlushStrategy:              getEnv("FLUSH_STRATEGY", "sizeLimited"),
		FlushSizeThreshold:         getEnvInt("FLUSH_SIZE_THRESHOLD", 50),
		FlushInterval:              getEnvDuration("FLUSH_INTERVAL", 10*time.Second),
	}
	if cfg.Mode != "strict" && cfg.Mode != "dependencyFree" {
		return nil, fmt.Errorf("WRITER_MODE must be 'strict' or 'dependencyFree', got %q", cfg.Mode)
	}
	switch cfg.FlushStrategy {
	case "manual", "sizeLimited", "intervalLimited":
	default:
		return nil, fmt.Errorf("FLUSH_STRATEGY must be 'manual', 'sizeLimited' or 'intervalLimited', got %q", cfg.FlushStrategy)
	}
	if cfg.FlushSizeThreshold <= 0 {
		return nil, fmt.Errorf("FLUSH_SIZE_THRESHOLD must be positive")
	}
	return cfg, nil
}

// LoadReaderConfig loads the reader node configuration from the environment.
func LoadReaderConfig() (*ReaderConfig, error) {
	cfg := &ReaderConfig{
		Server:                     loadServerConfig(":5001"),
		EventCacheURL:              getEnv("EVENT_CACHE_URL", ""),
		EventLogPath:               getEnv("EVENT_LOG_PATH", ""),
		RefreshInterval:            getEnvDuration("REFRESH_INTERVAL", 5*time.Second),
		LoadOnStartup:              getEnvBool("LOAD_ON_STARTUP", true),
		StoreBidirectionalMappings: getEnvBool("STORE_BIDIRECTIONAL_MAPPINGS", true),
	}
	if cfg.EventCacheURL == "" {
		return nil, fmt.Errorf("EVENT_CACHE_URL is required")
	}
	if cfg.RefreshInterval <= 0 {
		return nil, fmt.Errorf("REFRESH_INTERVAL must be positive")
	}
	return cfg, nil
}

// LoadCacheConfig loads the event cache node configuration from the
// environment.
func LoadCacheConfig() (*CacheConfig, error) {
	cfg := &CacheConfig{
		Server:   loadServerConfig(":5002"),
		Capacity: getEnvInt("CACHE_CAPACITY", 10000),
	}
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("CACHE_CAPACITY must be positive")
	}
	return cfg, nil
}

// LoadRouterConfig loads the operation router configuration from the
// environment.
func LoadRouterConfig() (*RouterConfig, error) {
	cfg := &RouterConfig{
		Server:                loadServerConfig(":5003"),
		ShardConfigPath:       getEnv("SHARD_CONFIG_PATH", "shards.yaml"),
		ConfigRefreshInterval: getEnvDuration("CONFIG_REFRESH_INTERVAL", 30*time.Second),
	}
	if cfg.ConfigRefreshInterval <= 0 {
		return nil, fmt.Errorf("CONFIG_REFRESH_INTERVAL must be positive")
	}
	return cfg, nil
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
