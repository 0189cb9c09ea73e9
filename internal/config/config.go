package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName       = "Paystream"
	defaultAppEnv        = "development"
	defaultPort          = "4000"
	defaultLogLevel      = "info"
	defaultShutdownDelay = 10 * time.Second
	defaultTokenTTL      = 48 * time.Hour
	defaultMinAmount     = "10"
	defaultMaxAmount     = "5000000"

	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	tokenTTLEnvVar         = "JWT_EXPIRES_IN"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	JWTSecret      string
	TokenTTL       time.Duration
	ShutdownPeriod time.Duration

	// Per-operation amount bounds enforced at the HTTP boundary.
	MinAmount string
	MaxAmount string
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		JWTSecret:      getEnv("JWT_SECRET", "secret"),
		TokenTTL:       defaultTokenTTL,
		ShutdownPeriod: defaultShutdownDelay,
		MinAmount:      getEnv("MIN_AMOUNT", defaultMinAmount),
		MaxAmount:      getEnv("MAX_AMOUNT", defaultMaxAmount),
	}

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv(tokenTTLEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", tokenTTLEnvVar, err)
		}
		cfg.TokenTTL = d
	}

	if cfg.DatabaseURL == "" && !cfg.IsDev() {
		return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
	}

	if cfg.RedisURL == "" && !cfg.IsDev() {
		return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
	}

	return cfg, nil
}

// IsDev reports whether the application runs in a local development environment,
// where in-memory fallbacks for Postgres and Redis are allowed.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
