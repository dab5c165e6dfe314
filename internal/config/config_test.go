package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsInDevelopment(t *testing.T) {
	t.Setenv("FRONTEND_URL", "")
	t.Setenv("AUTH_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "8080", cfg.Port)
	assert.Len(t, cfg.AuthSecret, 32, "development secret is generated")
	assert.Equal(t, 2*time.Second, cfg.Game.AdvanceDelay)
	assert.Equal(t, time.Second, cfg.Game.RevealDelay)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	t.Setenv("FRONTEND_URL", "https://heart.example.com")
	t.Setenv("AUTH_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_SECRET")

	t.Setenv("AUTH_SECRET", strings.Repeat("s", 40))
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FRONTEND_URL", "http://localhost:5173")
	t.Setenv("ADVANCE_DELAY", "0s")
	t.Setenv("REVEAL_DELAY", "250ms")
	t.Setenv("SUBMIT_RATE", "2.5")
	t.Setenv("SUBMIT_BURST", "not-a-number")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.Game.AdvanceDelay)
	assert.Equal(t, 250*time.Millisecond, cfg.Game.RevealDelay)
	assert.InDelta(t, 2.5, cfg.RateLimit.SubmitPerSecond, 0.001)
	assert.Equal(t, 10, cfg.RateLimit.SubmitBurst, "invalid values fall back to defaults")
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestValidateRejectsNegativeDelay(t *testing.T) {
	t.Setenv("FRONTEND_URL", "")
	t.Setenv("ADVANCE_DELAY", "-1s")
	_, err := Load()
	require.Error(t, err)
}
