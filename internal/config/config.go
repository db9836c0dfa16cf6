// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads application configuration from environment variables.
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

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Config holds the application configuration loaded from environment variables.
//
// The remote backend URL and key are deliberately optional: their absence
// degrades every data access to the local demo store instead of failing
// process startup.
type Config struct {
	DBPath        string `env:"FEDSITE_DB_PATH" envDefault:"./data/fedsite.db"`
	SessionSecret string `env:"FEDSITE_SESSION_SECRET,required"`
	ServerHost    string `env:"FEDSITE_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"FEDSITE_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"FEDSITE_ENV" envDefault:"development"`
	LogLevel      string `env:"FEDSITE_LOG_LEVEL" envDefault:"info"`

	// Remote backend configuration
	RemoteURL       string        `env:"FEDSITE_REMOTE_URL"`                       // BaaS project URL
	RemoteAnonKey   string        `env:"FEDSITE_REMOTE_ANON_KEY"`                  // BaaS public API key
	RemoteTimeout   time.Duration `env:"FEDSITE_REMOTE_TIMEOUT" envDefault:"6s"`   // Per-call remote budget
	DocumentsBucket string        `env:"FEDSITE_DOCUMENTS_BUCKET" envDefault:"documents"`
	EventsBucket    string        `env:"FEDSITE_EVENTS_BUCKET" envDefault:"event-images"`

	// Cache configuration
	RedisURL     string `env:"FEDSITE_REDIS_URL"`                         // Optional Redis URL for distributed caching
	CachePrefix  string `env:"FEDSITE_CACHE_PREFIX" envDefault:"fedsite:"` // Redis key prefix
	CacheTTL     int    `env:"FEDSITE_CACHE_TTL" envDefault:"300"`        // Default cache TTL in seconds
	CacheMaxSize int    `env:"FEDSITE_CACHE_MAX_SIZE" envDefault:"10000"` // Max memory cache entries

	// Demo content reset (hosted demo behavior)
	DemoReset bool `env:"FEDSITE_DEMO_RESET" envDefault:"false"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// RemoteConfigured returns true if the remote backend URL and key are both set.
func (c Config) RemoteConfigured() bool {
	return c.RemoteURL != "" && c.RemoteAnonKey != ""
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("FEDSITE_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("FEDSITE_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if !cfg.RemoteConfigured() {
		slog.Warn("remote backend not configured; all data access will use the local demo store")
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("FEDSITE_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
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
