package infra

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	unsetEnv(t, "REDIS_URL", "JOB_TTL", "WEBHOOK_BASE_URL", "DEFAULT_VIDEO_MODEL", "DEFAULT_IMPORT_USER_ID")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, 24*time.Hour, cfg.JobTTL)
	assert.Equal(t, "wan-video/wan-2.5-t2v", cfg.DefaultVideoModel)
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", cfg.DefaultImportUserID)
	assert.True(t, cfg.WebhookIsLocal())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("WEBHOOK_BASE_URL", "https://hooks.example.com/")
	t.Setenv("JOB_TTL", "2h")
	t.Setenv("POLL_BATCH", "10")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://hooks.example.com", cfg.WebhookBaseURL)
	assert.Equal(t, 2*time.Hour, cfg.JobTTL)
	assert.Equal(t, 10, cfg.PollBatch)
	assert.False(t, cfg.WebhookIsLocal())
}

func TestLoadConfigListsAndLogging(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com,https://admin.example.com")
	t.Setenv("LOG_FILE", "/tmp/orchestrator.log")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, LogOptions{File: "/tmp/orchestrator.log", MaxSizeMB: 100, MaxBackups: 5}, cfg.LogOptions())
}

func TestLoadConfigRejectsInvalidDuration(t *testing.T) {
	t.Setenv("PROVIDER_TIMEOUT", "soon")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestValidateRejectsNonPositiveTTL(t *testing.T) {
	cfg := &Config{RedisURL: "redis://x", WebhookBaseURL: "https://x", ProviderTimeout: time.Second}
	require.Error(t, cfg.Validate())
}

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}
