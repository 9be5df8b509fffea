package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/davidbz/medimentor/internal/domain"
	"github.com/davidbz/medimentor/internal/observability"
	"github.com/davidbz/medimentor/internal/provider/openai"
	"github.com/davidbz/medimentor/internal/ratelimit/redis"
)

// Config represents the relay configuration.
type Config struct {
	Server    ServerConfig
	CORS      CORSConfig
	Upload    UploadConfig
	OpenAI    openai.Config
	Relay     domain.RelayConfig
	Log       observability.LogConfig
	RateLimit redis.Config
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int `env:"SERVER_PORT"             envDefault:"5000"`
	ReadTimeout     int `env:"SERVER_READ_TIMEOUT"     envDefault:"30"`
	WriteTimeout    int `env:"SERVER_WRITE_TIMEOUT"    envDefault:"90"`
	ShutdownTimeout int `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"15"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"false"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// UploadConfig bounds request bodies.
type UploadConfig struct {
	MaxJSONBytes  int64 `env:"UPLOAD_MAX_JSON_BYTES"  envDefault:"1048576"`
	MaxImageBytes int64 `env:"UPLOAD_MAX_IMAGE_BYTES" envDefault:"10485760"`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out
	*ServerConfig
	*CORSConfig
	*UploadConfig
	*domain.RelayConfig
	*observability.LogConfig
	OpenAI    *openai.Config
	RateLimit *redis.Config
}

// Load loads environment files and parses configuration.
func Load() (*Config, error) {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks settings that cannot be expressed as env defaults.
// The active provider must have its credentials.
func (c *Config) Validate() error {
	switch c.Relay.Provider {
	case "openai":
		if c.OpenAI.APIKey == "" {
			return domain.NewError(domain.KindConfigurationMissing,
				"OPENAI_API_KEY is required when RELAY_PROVIDER is openai")
		}
	case "echo":
	default:
		return domain.NewError(domain.KindConfigurationMissing,
			"unknown RELAY_PROVIDER %q: expected openai or echo", c.Relay.Provider)
	}

	if c.Relay.Model == "" {
		return domain.NewError(domain.KindConfigurationMissing, "RELAY_MODEL cannot be empty")
	}

	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid SERVER_PORT %d", c.Server.Port)
	}

	if c.RateLimit.Enabled() && c.RateLimit.PerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.RateLimit.PerMinute)
	}

	return nil
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		dig.Out{},
		&cfg.Server,
		&cfg.CORS,
		&cfg.Upload,
		&cfg.Relay,
		&cfg.Log,
		&cfg.OpenAI,
		&cfg.RateLimit,
	}
}
