package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manash/roomedit/internal/security"
)

var allVars = []string{
	"ROOMEDIT_ENV", "ROOMEDIT_ADDR", "ROOMEDIT_LOCALE", "GEMINI_API_KEY",
	"GEMINI_BASE_URL", "ROOMEDIT_MAX_UPLOAD_MB", "ROOMEDIT_HTTP_TIMEOUT", "ROOMEDIT_JOURNAL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allVars {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.Env)
	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Equal(t, DefaultLocale, cfg.Locale)
	assert.Equal(t, DefaultGeminiBaseURL, cfg.GeminiBaseURL)
	assert.Equal(t, int64(20<<20), cfg.MaxUploadBytes)
	assert.Zero(t, cfg.HTTPTimeout)
	assert.False(t, cfg.Development())

	enabled, _ := cfg.JournalEnabled()
	assert.False(t, enabled)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROOMEDIT_ENV", "Development")
	t.Setenv("ROOMEDIT_ADDR", "127.0.0.1:9000")
	t.Setenv("ROOMEDIT_LOCALE", "ko")
	t.Setenv("GEMINI_API_KEY", "AIza-env")
	t.Setenv("GEMINI_BASE_URL", "http://localhost:1234")
	t.Setenv("ROOMEDIT_MAX_UPLOAD_MB", "5")
	t.Setenv("ROOMEDIT_HTTP_TIMEOUT", "45")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.Development())
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, "ko", cfg.Locale)
	assert.Equal(t, "AIza-env", cfg.GeminiAPIKey)
	assert.Equal(t, "http://localhost:1234", cfg.GeminiBaseURL)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 45*time.Second, cfg.HTTPTimeout)
}

func TestFromEnv_DurationFormats(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROOMEDIT_HTTP_TIMEOUT", "1m30s")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.HTTPTimeout)

	t.Setenv("ROOMEDIT_HTTP_TIMEOUT", "soon")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestFromEnv_Invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROOMEDIT_ENV", "staging")
	_, err := FromEnv()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("ROOMEDIT_MAX_UPLOAD_MB", "0")
	_, err = FromEnv()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("ROOMEDIT_MAX_UPLOAD_MB", "lots")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultMaxUploadMB<<20), cfg.MaxUploadBytes)

	clearEnv(t)
	t.Setenv("GEMINI_BASE_URL", "http://generativelanguage.googleapis.com/v1beta")
	_, err = FromEnv()
	assert.ErrorIs(t, err, security.ErrInvalidScheme)
}

func TestJournalEnabled(t *testing.T) {
	tests := []struct {
		value      string
		enabled    bool
		useDefault bool
	}{
		{"", false, false},
		{"false", false, false},
		{"1", true, true},
		{"TRUE", true, true},
		{"/var/lib/roomedit/journal.db", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			enabled, useDefault := (&Config{Journal: tt.value}).JournalEnabled()
			assert.Equal(t, tt.enabled, enabled)
			assert.Equal(t, tt.useDefault, useDefault)
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("ROOMEDIT_LOCALE")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ROOMEDIT_LOCALE=ko\n"), 0600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ko", cfg.Locale)
	os.Unsetenv("ROOMEDIT_LOCALE")
}

func TestLoad_DotEnvLocalWithoutDotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("ROOMEDIT_ADDR")
	t.Cleanup(func() { os.Unsetenv("ROOMEDIT_ADDR") })

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte("ROOMEDIT_ADDR=:9999\n"), 0600))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Addr)
}

func TestLoad_DotEnvLocalWins(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("ROOMEDIT_ADDR")
	os.Unsetenv("ROOMEDIT_LOCALE")
	t.Cleanup(func() {
		os.Unsetenv("ROOMEDIT_ADDR")
		os.Unsetenv("ROOMEDIT_LOCALE")
	})

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ROOMEDIT_ADDR=:7000\nROOMEDIT_LOCALE=ko\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte("ROOMEDIT_ADDR=:9999\n"), 0600))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, "ko", cfg.Locale)
}

func TestLoad_MalformedDotEnv(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ROOMEDIT_ADDR='unterminated\n"), 0600))
	chdir(t, dir)

	_, err := Load()
	assert.ErrorContains(t, err, ".env")
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
