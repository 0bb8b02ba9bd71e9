package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luxe/apperr"
)

func setCreds(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("EMAIL_ADDRESS", "agent@example.com")
	t.Setenv("EMAIL_PASSWORD", "app-password")
}

func TestLoadDefaults(t *testing.T) {
	setCreds(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, 1, cfg.OpenAI.Retries)
	assert.Equal(t, 2*time.Second, cfg.OpenAI.Backoff)
	assert.Equal(t, 465, cfg.Mail.Port)
	assert.Equal(t, 4, cfg.Build.ImageWorkers)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.ImagesEnabled())
}

func TestLoadOverrides(t *testing.T) {
	setCreds(t)
	t.Setenv("GEN_RETRIES", "3")
	t.Setenv("IMAGE_WORKERS", "2")
	t.Setenv("UNSPLASH_ACCESS_KEY", "unsplash")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.OpenAI.Retries)
	assert.Equal(t, 2, cfg.Build.ImageWorkers)
	assert.True(t, cfg.ImagesEnabled())
}

func TestValidateListsEveryMissingCredential(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("EMAIL_ADDRESS", "")
	t.Setenv("EMAIL_PASSWORD", "")

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.ErrorIs(t, err, apperr.ErrConfiguration)

	var cerr *apperr.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.ElementsMatch(t, []string{
		"OPENAI_API_KEY is not set",
		"EMAIL_ADDRESS is not set",
		"EMAIL_PASSWORD is not set",
	}, cerr.Problems)
}

func TestValidateRejectsBadTuning(t *testing.T) {
	setCreds(t)
	t.Setenv("IMAGE_WORKERS", "0")
	t.Setenv("GEN_RETRIES", "-1")

	cfg, err := Load()
	require.NoError(t, err)
	err = cfg.Validate()
	require.ErrorIs(t, err, apperr.ErrConfiguration)
	assert.Contains(t, err.Error(), "IMAGE_WORKERS must be > 0")
	assert.Contains(t, err.Error(), "GEN_RETRIES must be >= 0")
}

func TestLoadMalformedValue(t *testing.T) {
	setCreds(t)
	t.Setenv("GEN_TIMEOUT", "soon")

	_, err := Load()
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()

	loaded, err := LoadDotEnv(filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.False(t, loaded)

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LUXE_DOTENV_PROBE=yes\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("LUXE_DOTENV_PROBE") })

	loaded, err = LoadDotEnv(path)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, "yes", os.Getenv("LUXE_DOTENV_PROBE"))
}

func TestLogFormatFallback(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, "json", cfg.LogFormat("json"))
	cfg.Log.Format = "console"
	assert.Equal(t, "console", cfg.LogFormat("json"))
}
