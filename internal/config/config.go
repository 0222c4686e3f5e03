// Package config loads runtime settings from the environment, after
// optional .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/manash/roomedit/internal/security"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DefaultAddr          = ":8080"
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultLocale        = "en"
	DefaultMaxUploadMB   = 20
)

type Config struct {
	Env            string
	Addr           string
	Locale         string
	GeminiAPIKey   string
	GeminiBaseURL  string
	MaxUploadBytes int64
	// HTTPTimeout bounds one generation call. Zero means no limit.
	HTTPTimeout time.Duration
	// Journal is a database path, or "1"/"true" for the default location.
	// Empty disables journaling.
	Journal string
}

// dotEnvFiles are read in order; a variable set by an earlier file, or by
// the real environment, is never overwritten.
var dotEnvFiles = []string{".env.local", ".env"}

// Load reads .env.local and .env when present, then the environment.
func Load() (*Config, error) {
	for _, name := range dotEnvFiles {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return FromEnv()
}

// FromEnv reads the environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Env:            strings.ToLower(getEnv("ROOMEDIT_ENV", EnvProduction)),
		Addr:           getEnv("ROOMEDIT_ADDR", DefaultAddr),
		Locale:         getEnv("ROOMEDIT_LOCALE", DefaultLocale),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:  getEnv("GEMINI_BASE_URL", DefaultGeminiBaseURL),
		MaxUploadBytes: int64(getEnvInt("ROOMEDIT_MAX_UPLOAD_MB", DefaultMaxUploadMB)) << 20,
		Journal:        os.Getenv("ROOMEDIT_JOURNAL"),
	}

	timeout, err := getEnvDuration("ROOMEDIT_HTTP_TIMEOUT", 0)
	if err != nil {
		return nil, err
	}
	cfg.HTTPTimeout = timeout

	if err := security.ValidateEndpoint(cfg.GeminiBaseURL); err != nil {
		return nil, fmt.Errorf("GEMINI_BASE_URL: %w", err)
	}
	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("ROOMEDIT_MAX_UPLOAD_MB must be positive")
	}
	if cfg.Env != EnvDevelopment && cfg.Env != EnvProduction {
		return nil, fmt.Errorf("ROOMEDIT_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, cfg.Env)
	}
	return cfg, nil
}

func (c *Config) Development() bool {
	return c.Env == EnvDevelopment
}

// JournalEnabled reports whether generation attempts should be recorded, and
// whether the default database location applies.
func (c *Config) JournalEnabled() (enabled, useDefault bool) {
	switch strings.ToLower(strings.TrimSpace(c.Journal)) {
	case "", "0", "false", "off":
		return false, false
	case "1", "true", "on":
		return true, true
	default:
		return true, false
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvDuration accepts a Go duration ("90s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
