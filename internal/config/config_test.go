package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FOODIFY_API_URL", "https://api.foodify.tn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.foodify.tn", cfg.APIBaseURL)
	assert.Equal(t, "wss://api.foodify.tn/ws", cfg.RealtimeURL)
	assert.Equal(t, "foodify-session.json", cfg.VaultPath)
	assert.Equal(t, ":9464", cfg.OpsAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 3, cfg.HTTPMaxRetries)
	assert.Equal(t, time.Second, cfg.ReconnectMinDelay)
	assert.Equal(t, 30*time.Second, cfg.ReconnectMaxDelay)
	assert.False(t, cfg.AlertDedup)
	assert.False(t, cfg.TracingEnabled)
}

func TestLoad_ExplicitRealtimeURLWins(t *testing.T) {
	t.Setenv("FOODIFY_API_URL", "https://api.foodify.tn")
	t.Setenv("FOODIFY_REALTIME_URL", "wss://push.foodify.tn/realtime")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "wss://push.foodify.tn/realtime", cfg.RealtimeURL)
}

func TestLoad_MissingAPIURL(t *testing.T) {
	t.Setenv("FOODIFY_API_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config")
}

func TestLoad_RetriesOutOfRange(t *testing.T) {
	t.Setenv("FOODIFY_API_URL", "https://api.foodify.tn")
	t.Setenv("HTTP_MAX_RETRIES", "50")

	_, err := Load()
	require.Error(t, err)
}

func TestDeriveRealtimeURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"https://api.foodify.tn", "wss://api.foodify.tn/ws"},
		{"http://localhost:8080", "ws://localhost:8080/ws"},
		{"https://api.foodify.tn/", "wss://api.foodify.tn/ws"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, deriveRealtimeURL(tt.base))
	}
}
