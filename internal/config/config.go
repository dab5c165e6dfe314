// Package config provides application configuration.
package config

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	FrontendURL    string
	DBPath         string
	AuthSecret     []byte
	TokenTTL       time.Duration
	SessionIdleTTL time.Duration
	SweepInterval  time.Duration
	LogLevel       slog.Level
	Game           GameConfig
	RateLimit      RateLimitConfig
}

// GameConfig controls the delayed transitions of a game session.
type GameConfig struct {
	AdvanceDelay time.Duration // "Correct" shown before the next puzzle
	RevealDelay  time.Duration // pause before the celebration
}

// RateLimitConfig bounds answer submissions per player.
type RateLimitConfig struct {
	SubmitPerSecond float64
	SubmitBurst     int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
		DBPath:         getEnv("DB_PATH", "./data/findmyheart.db"),
		AuthSecret:     []byte(getEnv("AUTH_SECRET", "")),
		TokenTTL:       getEnvDuration("TOKEN_TTL", 72*time.Hour),
		SessionIdleTTL: getEnvDuration("SESSION_IDLE_TTL", 30*time.Minute),
		SweepInterval:  getEnvDuration("SWEEP_INTERVAL", time.Minute),
		LogLevel:       getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		Game: GameConfig{
			AdvanceDelay: getEnvDuration("ADVANCE_DELAY", 2*time.Second),
			RevealDelay:  getEnvDuration("REVEAL_DELAY", time.Second),
		},
		RateLimit: RateLimitConfig{
			SubmitPerSecond: getEnvFloat("SUBMIT_RATE", 5),
			SubmitBurst:     getEnvInt("SUBMIT_BURST", 10),
		},
	}

	// Development runs get a throwaway secret so sign-in works out of the box.
	if len(cfg.AuthSecret) == 0 && cfg.IsDevelopment() {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate development auth secret: %w", err)
		}
		cfg.AuthSecret = secret
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if len(c.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be at least 32 bytes")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be > 0")
	}
	if c.SessionIdleTTL <= 0 {
		return fmt.Errorf("SESSION_IDLE_TTL must be > 0")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be > 0")
	}
	if c.Game.AdvanceDelay < 0 || c.Game.RevealDelay < 0 {
		return fmt.Errorf("ADVANCE_DELAY and REVEAL_DELAY cannot be negative")
	}
	if c.RateLimit.SubmitPerSecond <= 0 || c.RateLimit.SubmitBurst <= 0 {
		return fmt.Errorf("SUBMIT_RATE and SUBMIT_BURST must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return fallback
	}
	return level
}
