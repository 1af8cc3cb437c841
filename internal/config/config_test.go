package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/devmeet_test")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.CORSAllowCredentials)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, time.Minute, cfg.ReminderLead)
	assert.Equal(t, 800*time.Millisecond, cfg.WorkerPollInterval)
	assert.Equal(t, 5*time.Minute, cfg.JobStaleAfter)
	assert.Equal(t, 2*time.Hour, cfg.HostActiveTTL)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")
	t.Setenv("REMINDER_LEAD", "10m")
	t.Setenv("HOST_ACTIVE_TTL", "1h30m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "redis://localhost:6379/1", cfg.RedisURL)
	assert.Equal(t, []string{"https://app.example.com", "https://staging.example.com"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.CORSAllowCredentials)
	assert.Equal(t, 10*time.Minute, cfg.ReminderLead)
	assert.Equal(t, 90*time.Minute, cfg.HostActiveTTL)
}

func TestLoadBadDuration(t *testing.T) {
	setRequired(t)
	t.Setenv("REMINDER_LEAD", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadBadTimezone(t *testing.T) {
	setRequired(t)
	t.Setenv("TIMEZONE", "Mars/Olympus")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadMissingSecretPanics(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/devmeet_test")
	t.Setenv("JWT_SECRET", "")

	assert.Panics(t, func() { _, _ = Load() })
}
