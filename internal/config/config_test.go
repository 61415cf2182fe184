package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/obra")
	t.Setenv("APP_BASE_URL", "https://app.maosdaobra.com/")
	t.Setenv("PAYMENT_SECRET_KEY", "sk_test")
	t.Setenv("TRIAL_DAYS", "14")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost:5432/obra", c.Postgres.DSN)
	assert.Equal(t, "https://app.maosdaobra.com", c.App.BaseURL)
	assert.Equal(t, "sk_test", c.Payment.SecretKey)
	assert.Equal(t, 14, c.App.TrialDays)
	assert.Equal(t, ":8080", c.HTTP.Addr)
	assert.Equal(t, 3, c.Alerts.MaterialWindowDays)
	assert.True(t, c.Metrics.Enabled)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := Load("")
	require.Error(t, err)
}

func TestLoadYAMLThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "postgres:\n  dsn: postgres://file\nhttp:\n  addr: \":9090\"\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("DATABASE_URL", "")
	t.Setenv("HTTP_ADDR", ":7070")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://file", c.Postgres.DSN)
	assert.Equal(t, ":7070", c.HTTP.Addr)
}

func TestMissing(t *testing.T) {
	var c Config
	c.Supabase.URL = "https://x.supabase.co"
	missing := c.Missing()
	assert.Contains(t, missing, "PAYMENT_SECRET_KEY")
	assert.Contains(t, missing, "GEMINI_API_KEY")
	assert.NotContains(t, missing, "SUPABASE_URL")
}
