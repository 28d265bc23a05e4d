package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/onboarding")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "https://app.bisman.io", cfg.FrontendURL)
	assert.Equal(t, time.Second, cfg.Queue.PollInterval)
	assert.Equal(t, 24*time.Hour, cfg.Onboard.IdempotencyTTL)
	assert.Equal(t, 14*24*time.Hour, cfg.Onboard.TrialPeriod)
	assert.Equal(t, 10, cfg.Onboard.RateLimit)
	assert.Equal(t, time.Hour, cfg.Onboard.RateWindow)
	assert.False(t, cfg.Billing.Enabled())
	assert.False(t, cfg.Storage.ObjectStorageEnabled())
	assert.True(t, cfg.ImmediateDispatch())
}

func TestParseRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Parse()
	assert.Error(t, err)
}

func TestImmediateDispatch(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/onboarding")
	t.Setenv("ENVIRONMENT", EnvProduction)

	cfg, err := Parse()
	require.NoError(t, err)
	assert.False(t, cfg.ImmediateDispatch())

	t.Setenv("QUEUE_IMMEDIATE_DISPATCH", "true")
	cfg, err = Parse()
	require.NoError(t, err)
	assert.True(t, cfg.ImmediateDispatch())
}

func TestIntegrationToggles(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/onboarding")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("S3_ENDPOINT", "localhost:9000")
	t.Setenv("S3_ACCESS_KEY", "minio")
	t.Setenv("S3_SECRET_KEY", "minio123")
	t.Setenv("MAILGUN_DOMAIN", "mg.example.com")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.True(t, cfg.Billing.Enabled())
	assert.True(t, cfg.Storage.ObjectStorageEnabled())
	assert.False(t, cfg.Email.MailgunEnabled())
}
