// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig holds all server-related settings
type ServerConfig struct {
	Port           int
	Host           string
	MetricsEnabled bool
	RequestTimeout time.Duration
}

// DatabaseConfig holds database configuration settings
type DatabaseConfig struct {
	Type           string // "mongodb" or "memory"
	URI            string
	Name           string
	ConnectRetries int
}

type CacheConfig struct {
	RedisURL string // empty selects the in-memory cache
	TTL      time.Duration
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// Config holds the complete application configuration
type Config struct {
	Server          *ServerConfig
	Database        *DatabaseConfig
	Cache           *CacheConfig
	Auth            *AuthConfig
	Environment     string
	AllowedOrigins  []string
	Debug           bool
	RecorderRetries int
}

const devJWTSecret = "devflow-development-secret"

// DefaultConfig provides default server settings
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Port:           8080,
		Host:           "0.0.0.0",
		MetricsEnabled: true,
		RequestTimeout: 10 * time.Second,
	}
}

// DefaultDatabaseConfig provides default database settings
func DefaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Type:           "mongodb",
		Name:           "devflow",
		ConnectRetries: 5,
	}
}

// LoadConfig loads configuration from environment variables and applies defaults
func LoadConfig() (*Config, error) {
	// Try to load .env file from multiple possible locations
	envLocations := []string{
		".env",          // Current directory
		"../../.env",    // Project root when running from cmd/engine
		"../../../.env", // Even higher directory
		filepath.Join(os.Getenv("GOPATH"), "src/devflow/.env"),
	}
	for _, location := range envLocations {
		if err := godotenv.Load(location); err == nil {
			break
		}
	}

	serverConfig := DefaultConfig()
	var err error
	if serverConfig.Port, err = getIntOrDefault("PORT", serverConfig.Port); err != nil {
		return nil, err
	}
	serverConfig.Host = getEnvOrDefault("HOST", serverConfig.Host)
	if metricsEnabled := os.Getenv("METRICS_ENABLED"); metricsEnabled != "" {
		serverConfig.MetricsEnabled = metricsEnabled == "true"
	}
	if serverConfig.RequestTimeout, err = getDurationOrDefault("REQUEST_TIMEOUT", serverConfig.RequestTimeout); err != nil {
		return nil, err
	}

	dbConfig := DefaultDatabaseConfig()
	dbConfig.Type = strings.ToLower(getEnvOrDefault("DB_TYPE", dbConfig.Type))
	dbConfig.Name = getEnvOrDefault("MONGODB_DATABASE", dbConfig.Name)
	if dbConfig.ConnectRetries, err = getIntOrDefault("DB_CONNECT_RETRIES", dbConfig.ConnectRetries); err != nil {
		return nil, err
	}
	switch dbConfig.Type {
	case "mongodb":
		dbConfig.URI = os.Getenv("MONGODB_URI")
		if dbConfig.URI == "" {
			return nil, fmt.Errorf("MONGODB_URI environment variable is required when DB_TYPE is mongodb")
		}
	case "memory":
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q: use mongodb or memory", dbConfig.Type)
	}

	cacheConfig := &CacheConfig{RedisURL: os.Getenv("REDIS_URL"), TTL: time.Minute}
	if cacheConfig.TTL, err = getDurationOrDefault("CACHE_TTL", cacheConfig.TTL); err != nil {
		return nil, err
	}

	config := &Config{
		Server:          serverConfig,
		Database:        dbConfig,
		Cache:           cacheConfig,
		Auth:            &AuthConfig{JWTSecret: os.Getenv("JWT_SECRET"), TokenTTL: 24 * time.Hour},
		Environment:     getEnvOrDefault("APP_ENV", "development"),
		AllowedOrigins:  []string{"*"}, // Default to allow all origins
		Debug:           os.Getenv("DEBUG") == "true",
		RecorderRetries: 3,
	}
	if config.Auth.TokenTTL, err = getDurationOrDefault("JWT_TTL", config.Auth.TokenTTL); err != nil {
		return nil, err
	}
	if config.Auth.JWTSecret == "" {
		if config.Environment == "production" {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required in production")
		}
		config.Auth.JWTSecret = devJWTSecret
	}
	if config.RecorderRetries, err = getIntOrDefault("RECORDER_RETRIES", config.RecorderRetries); err != nil {
		return nil, err
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = nil
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				config.AllowedOrigins = append(config.AllowedOrigins, origin)
			}
		}
	}

	return config, nil
}

// Address is the host:port the HTTP server listens on.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Helper function to get environment variable with default fallback
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
