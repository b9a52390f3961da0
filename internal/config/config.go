// Package config provides application configuration from command-line
// flags, environment variables and an optional .env file.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Server ServerConfig
	Store  StoreConfig
	Auth   AuthConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string
	Format string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port          string
	AllowedOrigin string        // CORS origin of the SPA client
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
}

// StoreConfig holds database configuration.
type StoreConfig struct {
	// Path is the directory holding the Badger database and the auth key.
	Path string
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	TokenDuration time.Duration
	// LoginRatePerMinute throttles login attempts per username.
	LoginRatePerMinute float64
	LoginBurst         int
}

// Load builds the configuration with precedence:
// 1. Command-line flags (highest).
// 2. Environment variables.
// 3. .env file.
// 4. Defaults (lowest).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("stacks", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "", "Log format (json, pretty)")
	port := fs.String("port", "", "Server port (default: 4000)")
	dataPath := fs.String("data-path", "", "Directory for the database and auth key")
	allowedOrigin := fs.String("allowed-origin", "", "CORS origin of the SPA client")
	tokenDuration := fs.String("token-duration", "", "Access token lifetime (e.g., 12h)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Missing .env is fine; explicit paths that fail to parse are not.
	if err := godotenv.Load(*envFile); err != nil && *envFile != ".env" {
		return nil, fmt.Errorf("load env file %s: %w", *envFile, err)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: resolve(*env, "STACKS_ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:  resolve(*logLevel, "STACKS_LOG_LEVEL", "info"),
			Format: resolve(*logFormat, "STACKS_LOG_FORMAT", ""),
		},
		Server: ServerConfig{
			Port:          resolve(*port, "STACKS_PORT", "4000"),
			AllowedOrigin: resolve(*allowedOrigin, "STACKS_ALLOWED_ORIGIN", "http://localhost:5173"),
			ReadTimeout:   15 * time.Second,
			WriteTimeout:  15 * time.Second,
			IdleTimeout:   60 * time.Second,
		},
		Store: StoreConfig{
			Path: resolve(*dataPath, "STACKS_DATA_PATH", "./data"),
		},
		Auth: AuthConfig{
			TokenDuration:      12 * time.Hour,
			LoginRatePerMinute: 10,
			LoginBurst:         5,
		},
	}

	if raw := resolve(*tokenDuration, "STACKS_TOKEN_DURATION", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid token duration %q: %w", raw, err)
		}
		cfg.Auth.TokenDuration = d
	}

	return cfg, nil
}

// resolve applies the flag > env > default precedence for one value.
func resolve(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return defaultValue
}
