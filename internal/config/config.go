// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultEndpoint is the reporting API base URL used when none is configured.
const DefaultEndpoint = "https://api.omniture.com/admin/1.3/rest/"

// Config holds API credentials and client tuning.
type Config struct {
	Username string // API username, "user:company"
	Secret   string // API shared secret
	Endpoint string // API base URL

	PollInterval    time.Duration // delay before each poll (default 1s)
	PollMaxAttempts int           // checks per poll phase, 0 = unbounded
	Concurrency     int           // reports polled at once by batch runs (default 1)

	RateLimitRPS   float64       // outgoing requests per second, 0 = unlimited
	RateLimitBurst int           // burst capacity (default 1 when RateLimitRPS is set)
	HTTPTimeout    time.Duration // per-request timeout (default 30s)

	HistoryDB string // path to the SQLite run history, empty disables it
	LogLevel  string // log level: debug, info, warn, error (default "info")
	LogFormat string // "text" (default) or "json"

	// Warnings collects non-fatal problems found while loading. They are
	// logged by the caller once the logger exists.
	Warnings []string
}

// Affix joins prefix, base and suffix with underscores, skipping empty parts:
// Affix("PROD", "OMNITURE_USERNAME", "EU") is "PROD_OMNITURE_USERNAME_EU".
func Affix(prefix, base, suffix string) string {
	parts := make([]string, 0, 3)
	if prefix != "" {
		parts = append(parts, prefix)
	}
	parts = append(parts, base)
	if suffix != "" {
		parts = append(parts, suffix)
	}
	return strings.Join(parts, "_")
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate reports missing credentials.
func (c *Config) Validate() error {
	var missing []string
	if c.Username == "" {
		missing = append(missing, "username")
	}
	if c.Secret == "" {
		missing = append(missing, "secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing API credentials: %s (set OMNITURE_USERNAME and OMNITURE_SECRET)", strings.Join(missing, ", "))
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables. Credentials
// are read from [PREFIX_]OMNITURE_USERNAME[_SUFFIX] and
// [PREFIX_]OMNITURE_SECRET[_SUFFIX], so several accounts can live side by
// side in one environment.
func LoadFromEnv(prefix, suffix string) (*Config, error) {
	cfg := &Config{
		Username:  os.Getenv(Affix(prefix, "OMNITURE_USERNAME", suffix)),
		Secret:    os.Getenv(Affix(prefix, "OMNITURE_SECRET", suffix)),
		Endpoint:  os.Getenv("OMNITURE_ENDPOINT"),
		HistoryDB: os.Getenv("OMNI_HISTORY_DB"),
		LogLevel:  os.Getenv("LOG_LEVEL"),
		LogFormat: os.Getenv("LOG_FORMAT"),
	}

	var err error
	if cfg.PollInterval, err = durationEnv("OMNI_POLL_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = durationEnv("OMNI_HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.PollMaxAttempts, err = intEnv("OMNI_POLL_MAX_ATTEMPTS", 0); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = intEnv("OMNI_CONCURRENCY", 1); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = intEnv("OMNI_RATE_LIMIT_BURST", 0); err != nil {
		return nil, err
	}
	if v := os.Getenv("OMNI_RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("OMNI_RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimitRPS = f
	}

	// Defaults
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 1
	}

	if cfg.PollMaxAttempts < 0 {
		return nil, fmt.Errorf("OMNI_POLL_MAX_ATTEMPTS must not be negative")
	}
	if cfg.Concurrency < 1 {
		cfg.Warnings = append(cfg.Warnings, "OMNI_CONCURRENCY below 1, using 1")
		cfg.Concurrency = 1
	}
	if cfg.RateLimitRPS < 0 {
		return nil, fmt.Errorf("OMNI_RATE_LIMIT_RPS must not be negative")
	}
	if cfg.PollInterval == 0 {
		cfg.Warnings = append(cfg.Warnings, "OMNI_POLL_INTERVAL is 0: reports will be polled without delay")
	}

	return cfg, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = stripQuotes(strings.TrimSpace(value))
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
