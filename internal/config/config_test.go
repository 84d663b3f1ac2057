package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("MEDIA_HOST", "")
	t.Setenv("BOT_SESSION_TTL", "")

	cfg := Load()
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, DefaultMediaHost, cfg.MediaHost)
	assert.Equal(t, 30*time.Minute, cfg.BotSessionTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("MEDIA_HOST", "cdn.example.org")
	t.Setenv("BOT_SESSION_TTL", "5m")
	t.Setenv("DEBUG", "true")
	t.Setenv("PUBLIC_URL", "https://anidao.example")

	cfg := Load()
	assert.Equal(t, 9000, cfg.ServerPort)
	assert.Equal(t, "cdn.example.org", cfg.MediaHost)
	assert.Equal(t, 5*time.Minute, cfg.BotSessionTTL)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "https://anidao.example/api/telegram-webhook", cfg.WebhookURL())
	assert.True(t, cfg.SecureCookies())
}

func TestPlainHTTPDeployment(t *testing.T) {
	cfg := &Config{PublicURL: "http://localhost:8080"}
	assert.False(t, cfg.SecureCookies())

	cfg.PublicURL = ""
	assert.Empty(t, cfg.WebhookURL())
}

func TestLoadMalformedFallsBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")
	t.Setenv("BOT_SESSION_TTL", "soon")

	cfg := Load()
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 30*time.Minute, cfg.BotSessionTTL)
}

func TestValidate(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://x", ServerPort: 8080}
	require.Error(t, cfg.Validate(), "missing JWT secret outside debug")

	cfg.Debug = true
	require.NoError(t, cfg.Validate())

	cfg.DatabaseURL = ""
	require.Error(t, cfg.Validate())
}
