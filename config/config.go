package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const Prefix = "TASKMATE"

// AuthMode selects how bearer tokens are verified.
type AuthMode string

const (
	AuthFirebase AuthMode = "firebase"
	AuthJWT      AuthMode = "jwt"
)

// Config holds the service configuration.
// Environment variables are parsed with the TASKMATE_ prefix.
type Config struct {
	Port     int      `envconfig:"PORT" default:"8080"`
	AuthMode AuthMode `envconfig:"AUTH_MODE" default:"firebase"`
	// JWTSecretKey signs dev tokens when AuthMode is jwt.
	JWTSecretKey string `envconfig:"JWT_SECRET_KEY"`

	// Firestore
	CredentialsFile string `envconfig:"CREDENTIALS_FILE"`
	ProjectID       string `envconfig:"PROJECT_ID"`
	Layout          string `envconfig:"LAYOUT" default:"shared"`
	MemoryStore     bool   `envconfig:"MEMORY_STORE" default:"false"`

	Timezone       string        `envconfig:"TIMEZONE" default:"Local"`
	WriteTimeout   time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	NoticeDuration time.Duration `envconfig:"NOTICE_DURATION" default:"3s"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	switch c.AuthMode {
	case AuthFirebase:
	case AuthJWT:
		if c.JWTSecretKey == "" {
			return fmt.Errorf("AUTH_MODE=jwt requires JWT_SECRET_KEY")
		}
	default:
		return fmt.Errorf("unsupported AUTH_MODE: %s", c.AuthMode)
	}
	switch c.Layout {
	case "shared", "legacy":
	default:
		return fmt.Errorf("unsupported LAYOUT: %s", c.Layout)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("WRITE_TIMEOUT must be positive, got %s", c.WriteTimeout)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return nil
}

// New loads .env when present, then parses the environment.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file loaded")
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info().
		Int("port", cfg.Port).
		Str("auth_mode", string(cfg.AuthMode)).
		Str("project", cfg.ProjectID).
		Str("layout", cfg.Layout).
		Bool("memory_store", cfg.MemoryStore).
		Str("timezone", cfg.Timezone).
		Dur("write_timeout", cfg.WriteTimeout).
		Str("credentials_present", func() string {
			if cfg.CredentialsFile != "" {
				return "true"
			}
			return "false"
		}()).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting returns an in-memory, jwt-authenticated config.
func NewForTesting() *Config {
	return &Config{
		Port:           8080,
		AuthMode:       AuthJWT,
		JWTSecretKey:   "test-secret",
		ProjectID:      "test-project",
		Layout:         "shared",
		MemoryStore:    true,
		Timezone:       "UTC",
		WriteTimeout:   10 * time.Second,
		NoticeDuration: 3 * time.Second,
		LogLevel:       "debug",
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Level returns the parsed log level, defaulting to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
