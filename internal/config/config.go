package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds the application configuration
type Config struct {
	DataDir            string   `env:"DATA_DIR" envDefault:"data"`
	DatabasePath       string   `env:"DATABASE_PATH"`
	PublicOrigin       string   `env:"PUBLIC_ORIGIN" envDefault:"http://localhost:8080"`
	HTTPAddr           string   `env:"HTTP_ADDR" envDefault:":8080"`
	SendConcurrency    int      `env:"SEND_CONCURRENCY" envDefault:"8"`
	DefaultCountryCode string   `env:"DEFAULT_COUNTRY_CODE" envDefault:"972"`
	LogLevel           string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat          string   `env:"LOG_FORMAT" envDefault:"console"`
	AllowedOrigins     []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	OTelEndpoint       string   `env:"OTEL_ENDPOINT"`
	OTelEnabled        bool     `env:"OTEL_ENABLED" envDefault:"true"`
}

// LoadConfig loads configuration from a .env file (if present) and environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads configuration from environment variables only
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(cfg.DataDir, "invites.db")
	}
	if cfg.SendConcurrency < 1 {
		return nil, fmt.Errorf("SEND_CONCURRENCY must be at least 1, got %d", cfg.SendConcurrency)
	}
	return cfg, nil
}

// Logger builds the root logger described by the configuration
func (c *Config) Logger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if c.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}
