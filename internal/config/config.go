// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the application configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Supported document store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMemory   = "memory"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	SessionSecret string `env:"CORPSITE_SESSION_SECRET,required"`
	ServerHost    string `env:"CORPSITE_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"CORPSITE_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"CORPSITE_ENV" envDefault:"development"`
	LogLevel      string `env:"CORPSITE_LOG_LEVEL" envDefault:"info"`
	SiteName      string `env:"CORPSITE_SITE_NAME" envDefault:"Corpsite"`

	// Backend. An empty driver leaves the site in "backend not configured" mode.
	DBDriver string `env:"CORPSITE_DB_DRIVER"`
	DBDSN    string `env:"CORPSITE_DB_DSN" envDefault:"./data/corpsite.db"`

	// AdminEmails is the administrator allow-list.
	AdminEmails []string `env:"CORPSITE_ADMIN_EMAILS" envSeparator:","`

	// Federated sign-in: HS256 secret shared with the identity broker.
	FederatedSecret string `env:"CORPSITE_FEDERATED_SECRET"`
	FederatedIssuer string `env:"CORPSITE_FEDERATED_ISSUER"`

	// Media upload (Cloudinary-style unsigned preset)
	MediaCloudName    string `env:"CORPSITE_MEDIA_CLOUD_NAME"`
	MediaUploadPreset string `env:"CORPSITE_MEDIA_UPLOAD_PRESET"`
	MediaMaxEdge      int    `env:"CORPSITE_MEDIA_MAX_EDGE" envDefault:"2000"`

	// Media upload (S3-compatible), used when the preset is not configured
	S3Bucket       string `env:"CORPSITE_S3_BUCKET"`
	S3Region       string `env:"CORPSITE_S3_REGION" envDefault:"us-east-1"`
	S3AccessKey    string `env:"CORPSITE_S3_ACCESS_KEY"`
	S3SecretKey    string `env:"CORPSITE_S3_SECRET_KEY"`
	S3BaseEndpoint string `env:"CORPSITE_S3_BASE_ENDPOINT"`
	S3PublicURL    string `env:"CORPSITE_S3_PUBLIC_URL"`

	RedisURL     string `env:"CORPSITE_REDIS_URL"`                                  // Optional change feed bridge
	RedisChannel string `env:"CORPSITE_REDIS_CHANNEL" envDefault:"corpsite:changes"` // Pub/sub channel

	// Notifications
	ResendAPIKey   string `env:"CORPSITE_RESEND_API_KEY"`
	MailFrom       string `env:"CORPSITE_MAIL_FROM" envDefault:"noreply@example.com"`
	DigestSchedule string `env:"CORPSITE_DIGEST_SCHEDULE" envDefault:"0 8 * * *"`

	GeoIPDBPath         string `env:"CORPSITE_GEOIP_DB_PATH"` // Path to GeoLite2-Country.mmdb file
	GeoIPReloadSchedule string `env:"CORPSITE_GEOIP_RELOAD_SCHEDULE" envDefault:"0 3 * * 0"`

	DemoMode bool `env:"CORPSITE_DEMO_MODE" envDefault:"false"` // Seed demo content into empty collections

	LoginRateLimit  float64       `env:"CORPSITE_LOGIN_RATE_LIMIT" envDefault:"0.5"`
	LoginRateBurst  int           `env:"CORPSITE_LOGIN_RATE_BURST" envDefault:"5"`
	ShutdownTimeout time.Duration `env:"CORPSITE_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	SessionLifetime time.Duration `env:"CORPSITE_SESSION_LIFETIME" envDefault:"24h"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// BackendConfigured reports whether a document store driver is set.
func (c Config) BackendConfigured() bool {
	return c.DBDriver != ""
}

// UsesSQL reports whether the configured store is SQL-backed.
func (c Config) UsesSQL() bool {
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres, DriverMySQL:
		return true
	}
	return false
}

// CloudinaryEnabled returns true if the unsigned upload preset is configured.
func (c Config) CloudinaryEnabled() bool {
	return c.MediaCloudName != "" && c.MediaUploadPreset != ""
}

// S3Enabled returns true if S3 media storage is configured.
func (c Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// FederatedEnabled returns true if federated sign-in is configured.
func (c Config) FederatedEnabled() bool {
	return c.FederatedSecret != ""
}

// UseRedisFeed returns true if the Redis change feed is configured.
func (c Config) UseRedisFeed() bool {
	return c.RedisURL != ""
}

// ResendEnabled returns true if e-mail notifications are configured.
func (c Config) ResendEnabled() bool {
	return c.ResendAPIKey != ""
}

// GeoIPEnabled returns true if GeoIP database is configured.
func (c Config) GeoIPEnabled() bool {
	return c.GeoIPDBPath != ""
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that env tags cannot express.
func (c *Config) Validate() error {
	if len(c.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("CORPSITE_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(c.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if c.SessionSecret == weak {
			return fmt.Errorf("CORPSITE_SESSION_SECRET is a known default value and must not be used")
		}
	}

	switch c.DBDriver {
	case "", DriverSQLite, DriverPostgres, DriverMySQL, DriverMemory:
	default:
		return fmt.Errorf("CORPSITE_DB_DRIVER %q is not supported", c.DBDriver)
	}

	if !hasMinimumEntropy(c.SessionSecret) {
		slog.Warn("CORPSITE_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
