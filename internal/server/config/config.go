package config

import (
	"fmt"
	"net"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type ServerConfig struct {
	DatabaseURL string `envconfig:"DATABASE_URL"`

	Host string `envconfig:"API_HOST" default:"0.0.0.0"`
	Port string `envconfig:"API_PORT" default:"8080"`

	JWTSecret     string        `envconfig:"JWT_SECRET"`
	JWTExpiration time.Duration `envconfig:"JWT_EXPIRATION" default:"168h"`

	ResendAPIKey  string `envconfig:"RESEND_API_KEY"`
	FromEmail     string `envconfig:"FROM_EMAIL" default:"licenses@license-gateway.local"`
	SkipEmailSend bool   `envconfig:"SKIP_EMAIL_SEND" default:"false"`

	// Requests per window per client IP on the validation endpoint. Zero disables the limit.
	ValidationRateLimit  int           `envconfig:"VALIDATION_RATE_LIMIT" default:"60"`
	ValidationRateWindow time.Duration `envconfig:"VALIDATION_RATE_WINDOW" default:"1m"`

	AnalyticsRetention    time.Duration `envconfig:"ANALYTICS_RETENTION" default:"2160h"`
	KeyGenerationAttempts int           `envconfig:"KEY_GENERATION_ATTEMPTS" default:"5"`
	DefaultMaxActivations int           `envconfig:"DEFAULT_MAX_ACTIVATIONS" default:"1"`
	HousekeepingInterval  time.Duration `envconfig:"HOUSEKEEPING_INTERVAL" default:"1h"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`
}

// LoadServerConfig reads .env (if present) and then the process environment.
func LoadServerConfig() (ServerConfig, error) {
	_ = godotenv.Load()

	var cfg ServerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

// Validate checks the settings the serve command cannot run without.
func (c ServerConfig) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable not set")
	}
	if c.KeyGenerationAttempts < 1 {
		return fmt.Errorf("KEY_GENERATION_ATTEMPTS must be at least 1")
	}
	if c.DefaultMaxActivations < 1 {
		return fmt.Errorf("DEFAULT_MAX_ACTIVATIONS must be at least 1")
	}
	if c.ValidationRateLimit < 0 {
		return fmt.Errorf("VALIDATION_RATE_LIMIT cannot be negative")
	}
	return nil
}

func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// EmailEnabled reports whether issued keys should be mailed to their owners.
func (c ServerConfig) EmailEnabled() bool {
	return c.ResendAPIKey != "" && !c.SkipEmailSend
}
