package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Environment
	Env      string // "development", "production", etc.
	LogLevel string // debug, info, warn, error

	// Server
	ServerAddr string

	// Database
	DatabaseURL  string
	LockTimeout  time.Duration // per-transaction row lock wait
	TxMaxRetries uint64        // reruns of a transaction after transient failures

	// TLS/mTLS
	TLSEnabled  bool
	TLSCertFile string
	TLSKeyFile  string
	TLSCAFile   string // CA for verifying client certs (mTLS)

	// OIDC bearer token verification
	OIDCIssuer   string
	OIDCClientID string

	// AdminSubs lists OIDC subjects allowed to change thresholds.
	AdminSubs []string

	// CORS
	CORSOrigins string // Comma-separated allowed origins

	// Moderation
	DailyReviewLimit int    // reviews per user, review type and UTC day
	PolicyFile       string // optional YAML close reasons and review thresholds

	// HTTP request limiter
	HTTPRateLimit int    // requests per minute per client, 0 disables
	RedisURL      string // shared limiter storage; in-memory when empty
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present; real
// environment variables win over it.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	return &Config{
		Env:              getEnv("ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		ServerAddr:       getEnv("SERVER_ADDR", ":3000"),
		DatabaseURL:      getEnv("DATABASE_URL", "postgres://localhost:5432/qamod?sslmode=disable"),
		LockTimeout:      getDuration("LOCK_TIMEOUT", 5*time.Second),
		TxMaxRetries:     uint64(getInt("TX_MAX_RETRIES", 3)),
		TLSEnabled:       getEnv("TLS_ENABLED", "") != "",
		TLSCertFile:      getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:       getEnv("TLS_KEY_FILE", ""),
		TLSCAFile:        getEnv("TLS_CA_FILE", ""),
		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		AdminSubs:        splitList(getEnv("ADMIN_SUBS", "")),
		CORSOrigins:      getEnv("CORS_ORIGINS", ""),
		DailyReviewLimit: getPositiveInt("REVIEW_DAILY_LIMIT", 20),
		PolicyFile:       getEnv("POLICY_FILE", "policy.yaml"),
		HTTPRateLimit:    getInt("HTTP_RATE_LIMIT", 100),
		RedisURL:         getEnv("REDIS_URL", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		slog.Warn("ignoring invalid integer setting", "key", key, "value", raw)
		return fallback
	}
	return n
}

// getPositiveInt is getInt for settings where zero would switch a limit off.
func getPositiveInt(key string, fallback int) int {
	n := getInt(key, fallback)
	if n == 0 {
		slog.Warn("ignoring non-positive integer setting", "key", key, "value", os.Getenv(key))
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		slog.Warn("ignoring invalid duration setting", "key", key, "value", raw)
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// IsMTLSEnabled returns true if mTLS is configured with a CA file.
func (c *Config) IsMTLSEnabled() bool {
	return c.TLSEnabled && c.TLSCAFile != ""
}

// IsAdmin reports whether the OIDC subject may change moderation thresholds.
func (c *Config) IsAdmin(sub string) bool {
	for _, s := range c.AdminSubs {
		if s == sub {
			return true
		}
	}
	return false
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
