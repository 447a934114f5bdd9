// Package config loads service configuration from environment
// variables into an explicit struct passed to the backend and view
// constructors. Nothing reads configuration globally.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/vestibule/pkg/cognito"
	"github.com/platinummonkey/vestibule/pkg/identity"
	"github.com/platinummonkey/vestibule/pkg/observability"
	"github.com/platinummonkey/vestibule/pkg/session"
)

// Config holds all application configuration
type Config struct {
	Server ServerConfig

	// Identity provider (Cognito user pool app client)
	Cognito cognito.Config

	// Provider attribute name -> local field name
	Mapping identity.AttributeMap

	// AutoProvision creates local records on first successful login
	AutoProvision bool

	UserStore UserStoreConfig

	Session session.RedisConfig

	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// UserStoreConfig selects the local user store database.
type UserStoreConfig struct {
	Driver string // "postgres" or "sqlite3"
	DSN    string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	mapping, err := loadAttributeMapping()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("VESTIBULE_HOST", "0.0.0.0"),
			Port:            getEnv("VESTIBULE_PORT", "8080"),
			ReadTimeout:     getEnvDuration("VESTIBULE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("VESTIBULE_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("VESTIBULE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("VESTIBULE_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Cognito: cognito.Config{
			UserPoolID:   getEnv("COGNITO_USER_POOL_ID", ""),
			ClientID:     getEnv("COGNITO_APP_CLIENT_ID", ""),
			ClientSecret: getEnv("COGNITO_APP_CLIENT_SECRET", ""),
			Region:       getEnv("AWS_REGION", "us-east-1"),
			AccessKey:    getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretKey:    getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:     getEnv("COGNITO_ENDPOINT", ""),
		},
		Mapping:       mapping,
		AutoProvision: getEnvBool("VESTIBULE_AUTO_PROVISION", true),
		UserStore: UserStoreConfig{
			Driver: getEnv("VESTIBULE_USERSTORE_DRIVER", "postgres"),
			DSN:    getEnv("VESTIBULE_USERSTORE_DSN", ""),
		},
		Session: session.RedisConfig{
			URL:      getEnv("VESTIBULE_REDIS_URL", "redis://localhost:6379"),
			Password: getEnv("VESTIBULE_REDIS_PASSWORD", ""),
			DB:       getEnvInt("VESTIBULE_REDIS_DB", 0),
			TTL:      getEnvDuration("VESTIBULE_SESSION_TTL", session.DefaultSessionTTL),
		},
		Observability: ObservabilityConfig{
			LogLevel:           parseLogLevel(getEnv("VESTIBULE_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("VESTIBULE_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("VESTIBULE_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("VESTIBULE_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("VESTIBULE_OTEL_SERVICE_NAME", "vestibule"),
			OTelServiceVersion: getEnv("VESTIBULE_OTEL_SERVICE_VERSION", "1.0.0"),
			OTelInsecure:       getEnvBool("VESTIBULE_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadAttributeMapping reads the mapping from VESTIBULE_ATTRIBUTE_MAPPING
// (inline JSON) or VESTIBULE_ATTRIBUTE_MAPPING_FILE (YAML), falling
// back to the default mapping.
func loadAttributeMapping() (identity.AttributeMap, error) {
	if inline := os.Getenv("VESTIBULE_ATTRIBUTE_MAPPING"); inline != "" {
		mapping := identity.AttributeMap{}
		if err := json.Unmarshal([]byte(inline), &mapping); err != nil {
			return nil, fmt.Errorf("invalid VESTIBULE_ATTRIBUTE_MAPPING: %w", err)
		}
		return mapping, nil
	}

	if path := os.Getenv("VESTIBULE_ATTRIBUTE_MAPPING_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read attribute mapping file: %w", err)
		}
		mapping := identity.AttributeMap{}
		if err := yaml.Unmarshal(data, &mapping); err != nil {
			return nil, fmt.Errorf("invalid attribute mapping file %s: %w", path, err)
		}
		return mapping, nil
	}

	return identity.DefaultAttributeMap(), nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Cognito.UserPoolID == "" {
		return fmt.Errorf("COGNITO_USER_POOL_ID is required")
	}
	if c.Cognito.ClientID == "" {
		return fmt.Errorf("COGNITO_APP_CLIENT_ID is required")
	}
	if len(c.Mapping) == 0 {
		return fmt.Errorf("attribute mapping must not be empty")
	}

	switch c.UserStore.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("invalid user store driver: %s (must be postgres or sqlite3)", c.UserStore.Driver)
	}
	if c.UserStore.DSN == "" {
		return fmt.Errorf("user store DSN is required")
	}

	if c.Observability.OTelEnabled && c.Observability.OTelEndpoint == "" {
		return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
