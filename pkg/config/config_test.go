package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	require.Equal(t, EnvDevelopment, cfg.Env)
	require.Equal(t, 3, cfg.Submission.MaxAttempts)
	require.Equal(t, time.Second, cfg.Submission.BaseDelay)
	require.Equal(t, DraftBackendRedis, cfg.Drafts.Backend)
	require.Equal(t, 7*24*time.Hour, cfg.Drafts.TTL())
	require.Equal(t, 3, cfg.Calculation.RetentionUrgentUpload)
	require.Equal(t, 4, cfg.Calculation.RetentionUrgentRecov)
	require.Equal(t, 28, cfg.Validation.LockerMax)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SUBMIT_TRANSPORT", "LEGACY")
	t.Setenv("SUBMIT_BASE_DELAY", "250ms")
	t.Setenv("DRAFT_EXPIRY_DAYS", "3")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, TransportLegacy, cfg.Submission.Transport)
	require.Equal(t, 250*time.Millisecond, cfg.Submission.BaseDelay)
	require.Equal(t, 72*time.Hour, cfg.Drafts.TTL())
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestParseDurationFallback(t *testing.T) {
	require.Equal(t, time.Minute, parseDuration("", time.Minute))
	require.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	require.Equal(t, 5*time.Second, parseDuration("5s", time.Minute))
}
