// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

// Package config provides layered configuration management for Daybook.
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables > YAML config file > built-in
// defaults. See koanf.go for the loading logic.
package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	API      APIConfig      `koanf:"api"`
	Slack    SlackConfig    `koanf:"slack"`
	Backup   BackupConfig   `koanf:"backup"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `koanf:"host"`
	// Port is the HTTP listen port.
	Port int `koanf:"port"`
	// Timeout is the read/write timeout applied to the HTTP server.
	Timeout time.Duration `koanf:"timeout"`
	// Environment is "development" or "production".
	Environment string `koanf:"environment"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the database file path.
	Path string `koanf:"path"`
	// MaxMemory is the DuckDB memory limit (e.g., "1GB").
	MaxMemory string `koanf:"max_memory"`
	// Threads is the DuckDB thread count; 0 means runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// SecurityConfig holds authentication and rate limiting settings.
type SecurityConfig struct {
	// AuthMode is "jwt" or "none".
	AuthMode string `koanf:"auth_mode"`
	// JWTSecret signs session tokens. Minimum 32 characters when AuthMode is jwt.
	JWTSecret string `koanf:"jwt_secret"`
	// SessionTimeout is the JWT validity window.
	SessionTimeout time.Duration `koanf:"session_timeout"`
	// AdminEmail and AdminPassword are the bootstrap credentials.
	AdminEmail    string `koanf:"admin_email"`
	AdminPassword string `koanf:"admin_password"`
	// RateLimitReqs / RateLimitWindow configure the default per-IP limiter.
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	// CORSOrigins lists allowed origins; empty means same-origin only.
	CORSOrigins []string `koanf:"cors_origins"`
}

// APIConfig holds API behavior settings.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
	// MaxSnapshotBytes bounds the restore request body size.
	MaxSnapshotBytes int64 `koanf:"max_snapshot_bytes"`
}

// SlackConfig holds the optional Slack webhook integration.
type SlackConfig struct {
	// Enabled turns on restore/install notifications.
	Enabled bool `koanf:"enabled"`
	// WebhookURL is the Slack incoming webhook endpoint.
	WebhookURL string `koanf:"webhook_url"`
	// Timeout bounds each webhook POST.
	Timeout time.Duration `koanf:"timeout"`
	// RatePerMinute paces outbound notifications.
	RatePerMinute int `koanf:"rate_per_minute"`
}

// BackupConfig holds the scheduled snapshot backup settings.
type BackupConfig struct {
	// Enabled turns on scheduled snapshot backups.
	Enabled bool `koanf:"enabled"`
	// Dir is the directory backup files are written to.
	Dir string `koanf:"dir"`
	// Interval is the time between automatic backups.
	Interval time.Duration `koanf:"interval"`
	// MaxBackups bounds how many backup files are kept; older files are
	// pruned after each run. 0 disables pruning.
	MaxBackups int `koanf:"max_backups"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8384,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/daybook.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Security: SecurityConfig{
			AuthMode:          "jwt",
			JWTSecret:         "",
			SessionTimeout:    24 * time.Hour,
			AdminEmail:        "",
			AdminPassword:     "",
			RateLimitReqs:     100,
			RateLimitWindow:   1 * time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{},
		},
		API: APIConfig{
			DefaultPageSize: 50,
			MaxPageSize:     500,
			MaxSnapshotBytes: 32 << 20, // 32MB covers multi-year planners with headroom
		},
		Slack: SlackConfig{
			Enabled:       false,
			WebhookURL:    "",
			Timeout:       10 * time.Second,
			RatePerMinute: 30,
		},
		Backup: BackupConfig{
			Enabled:    false,
			Dir:        "/data/backups",
			Interval:   24 * time.Hour,
			MaxBackups: 14,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
