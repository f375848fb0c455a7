package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OMNITURE_USERNAME", "OMNITURE_SECRET", "OMNITURE_ENDPOINT",
		"OMNI_POLL_INTERVAL", "OMNI_POLL_MAX_ATTEMPTS", "OMNI_CONCURRENCY",
		"OMNI_RATE_LIMIT_RPS", "OMNI_RATE_LIMIT_BURST", "OMNI_HTTP_TIMEOUT",
		"OMNI_HISTORY_DB", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("OMNITURE_USERNAME", "analyst:Acme")
	t.Setenv("OMNITURE_SECRET", "s3cret")
	t.Setenv("OMNITURE_ENDPOINT", "https://api2.omniture.com/admin/1.3/rest/")
	t.Setenv("OMNI_POLL_INTERVAL", "250ms")
	t.Setenv("OMNI_POLL_MAX_ATTEMPTS", "20")
	t.Setenv("OMNI_CONCURRENCY", "4")
	t.Setenv("OMNI_RATE_LIMIT_RPS", "2.5")
	t.Setenv("OMNI_RATE_LIMIT_BURST", "5")
	t.Setenv("OMNI_HTTP_TIMEOUT", "10s")
	t.Setenv("OMNI_HISTORY_DB", "/tmp/history.sqlite")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := LoadFromEnv("", "")
	require.NoError(t, err)

	assert.Equal(t, "analyst:Acme", cfg.Username)
	assert.Equal(t, "s3cret", cfg.Secret)
	assert.Equal(t, "https://api2.omniture.com/admin/1.3/rest/", cfg.Endpoint)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 20, cfg.PollMaxAttempts)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.InDelta(t, 2.5, cfg.RateLimitRPS, 1e-9)
	assert.Equal(t, 5, cfg.RateLimitBurst)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "/tmp/history.sqlite", cfg.HistoryDB)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, "json", cfg.LogFormat)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv("", "")
	require.NoError(t, err)

	assert.Equal(t, DefaultEndpoint, cfg.Endpoint)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 0, cfg.PollMaxAttempts)
	assert.Equal(t, 1, cfg.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Zero(t, cfg.RateLimitRPS)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.HistoryDB)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username")
	assert.Contains(t, err.Error(), "secret")
}

func TestLoadFromEnv_PrefixSuffix(t *testing.T) {
	clearEnv(t)
	t.Setenv("OMNITURE_USERNAME", "default:Acme")
	t.Setenv("PROD_OMNITURE_USERNAME_EU", "eu:Acme")
	t.Setenv("PROD_OMNITURE_SECRET_EU", "eu-secret")

	cfg, err := LoadFromEnv("PROD", "EU")
	require.NoError(t, err)
	assert.Equal(t, "eu:Acme", cfg.Username)
	assert.Equal(t, "eu-secret", cfg.Secret)
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	tests := map[string]string{
		"OMNI_POLL_INTERVAL":     "soon",
		"OMNI_POLL_MAX_ATTEMPTS": "-1",
		"OMNI_CONCURRENCY":       "many",
		"OMNI_RATE_LIMIT_RPS":    "fast",
		"OMNI_HTTP_TIMEOUT":      "-5s",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)
			_, err := LoadFromEnv("", "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoadFromEnv_Warnings(t *testing.T) {
	clearEnv(t)
	t.Setenv("OMNI_CONCURRENCY", "0")
	t.Setenv("OMNI_RATE_LIMIT_RPS", "1")

	cfg, err := LoadFromEnv("", "")
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Concurrency)
	assert.Equal(t, 1, cfg.RateLimitBurst)
	assert.Len(t, cfg.Warnings, 1)
}

func TestAffix(t *testing.T) {
	assert.Equal(t, "OMNITURE_SECRET", Affix("", "OMNITURE_SECRET", ""))
	assert.Equal(t, "A_OMNITURE_SECRET", Affix("A", "OMNITURE_SECRET", ""))
	assert.Equal(t, "OMNITURE_SECRET_B", Affix("", "OMNITURE_SECRET", "B"))
	assert.Equal(t, "A_OMNITURE_SECRET_B", Affix("A", "OMNITURE_SECRET", "B"))
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"chatty":  slog.LevelInfo,
	}
	for in, want := range tests {
		cfg := &Config{LogLevel: in}
		assert.Equal(t, want, cfg.SlogLevel(), in)
	}
}

func TestLoadDotEnv_FileNotFound(t *testing.T) {
	err := LoadDotEnv("/nonexistent/.env")
	if err != nil {
		t.Errorf("expected no error for missing .env, got: %v", err)
	}
}

func TestLoadDotEnv_ParsesKeyValue(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	err := os.WriteFile(envFile, []byte("TEST_KEY=test_value\n"), 0644)
	if err != nil {
		t.Fatalf("write .env: %v", err)
	}

	if err := LoadDotEnv(envFile); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	if val := os.Getenv("TEST_KEY"); val != "test_value" {
		t.Errorf("TEST_KEY = %q, want %q", val, "test_value")
	}
	_ = os.Unsetenv("TEST_KEY")
}

func TestLoadDotEnv_SkipsComments(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	err := os.WriteFile(envFile, []byte("# comment\nTEST_COMMENT_KEY=value\n"), 0644)
	if err != nil {
		t.Fatalf("write .env: %v", err)
	}

	if err := LoadDotEnv(envFile); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	if val := os.Getenv("TEST_COMMENT_KEY"); val != "value" {
		t.Errorf("TEST_COMMENT_KEY = %q, want %q", val, "value")
	}
	_ = os.Unsetenv("TEST_COMMENT_KEY")
}

func TestLoadDotEnv_EnvVarPrecedence(t *testing.T) {
	t.Setenv("TEST_PRECEDENCE_KEY", "from_env")

	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	err := os.WriteFile(envFile, []byte("TEST_PRECEDENCE_KEY=from_file\n"), 0644)
	if err != nil {
		t.Fatalf("write .env: %v", err)
	}

	if err := LoadDotEnv(envFile); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	if val := os.Getenv("TEST_PRECEDENCE_KEY"); val != "from_env" {
		t.Errorf("TEST_PRECEDENCE_KEY = %q, want %q (env precedence)", val, "from_env")
	}
}
