package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Reply formats understood by the identifier extractor
const (
	ReplyFormatBrackets = "brackets"
	ReplyFormatJSON     = "json"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig
	Dataset DatasetConfig
	OpenAI  OpenAIConfig
	Session SessionConfig
	Logging LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
	ImagesDir      string
	ShutdownGrace  time.Duration
}

// DatasetConfig describes where the listing dataset is loaded from.
// Driver/DSN take precedence over Path; with neither set the embedded dataset is used.
type DatasetConfig struct {
	Path           string // .json, .yaml or .yml
	Driver         string // postgres or sqlite
	DSN            string
	Table          string
	MaxConnections int
}

// OpenAIConfig holds OpenAI-compatible API configuration
type OpenAIConfig struct {
	APIKey          string
	APIBase         string
	ChatModel       string
	ChatTemperature float64
	ChatTopP        float64
	ChatMaxTokens   int
	ChatExtraBody   string // JSON object whose keys are added to the request body (e.g., {"chat_template_kwargs":{"thinking":true}})
	ReplyFormat     string // brackets or json
	Timeout         int
	Enabled         bool
}

// SessionConfig holds display-session configuration
type SessionConfig struct {
	DispatchTimeout time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // text or json
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
			ImagesDir:      getEnv("IMAGES_DIR", "./web/images"),
			ShutdownGrace:  getEnvAsDuration("SERVER_SHUTDOWN_GRACE", 10*time.Second),
		},
		Dataset: DatasetConfig{
			Path:           getEnv("DATASET_PATH", ""),
			Driver:         getEnv("DATASET_DRIVER", ""),
			DSN:            getEnv("DATASET_DSN", getEnv("DATABASE_URL", "")),
			Table:          getEnv("DATASET_TABLE", "listings"),
			MaxConnections: getEnvAsInt("DATASET_MAX_CONNECTIONS", 5),
		},
		OpenAI: OpenAIConfig{
			APIKey:          getEnv("OPENAI_API_KEY", ""),
			APIBase:         strings.TrimRight(getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"), "/"),
			ChatModel:       getEnv("OPENAI_CHAT_MODEL", "gpt-3.5-turbo"),
			ChatTemperature: getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0),
			ChatTopP:        getEnvAsFloat("OPENAI_CHAT_TOP_P", 0),
			ChatMaxTokens:   getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 0),
			ChatExtraBody:   getEnv("OPENAI_CHAT_EXTRA_BODY", ""),
			ReplyFormat:     strings.ToLower(getEnv("OPENAI_REPLY_FORMAT", ReplyFormatBrackets)),
			Timeout:         getEnvAsInt("OPENAI_TIMEOUT", 30),
			Enabled:         getEnv("OPENAI_API_KEY", "") != "",
		},
		Session: SessionConfig{
			DispatchTimeout: getEnvAsDuration("SESSION_DISPATCH_TIMEOUT", 60*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT %d", c.Server.Port)
	}
	switch c.OpenAI.ReplyFormat {
	case ReplyFormatBrackets, ReplyFormatJSON:
	default:
		return fmt.Errorf("invalid OPENAI_REPLY_FORMAT %q, must be %q or %q", c.OpenAI.ReplyFormat, ReplyFormatBrackets, ReplyFormatJSON)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q, must be text or json", c.Logging.Format)
	}
	if c.Dataset.Driver != "" && c.Dataset.DSN == "" {
		return fmt.Errorf("DATASET_DRIVER %q set without DATASET_DSN", c.Dataset.Driver)
	}
	if c.OpenAI.Timeout <= 0 {
		return fmt.Errorf("invalid OPENAI_TIMEOUT %d", c.OpenAI.Timeout)
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		slog.Warn("invalid integer value, using default", "key", key, "default", defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		slog.Warn("invalid float value, using default", "key", key, "default", defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		slog.Warn("invalid duration value, using default", "key", key, "default", defaultValue)
		return defaultValue
	}
	return value
}
