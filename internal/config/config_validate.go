// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// minJWTSecretLen is the minimum accepted JWT secret length.
const minJWTSecretLen = 32

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	if err := c.validateSlack(); err != nil {
		return err
	}

	if err := c.validateBackup(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateServer validates HTTP server settings.
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server timeout must be positive, got %s", c.Server.Timeout)
	}

	switch c.Server.Environment {
	case "development", "production":
		return nil
	default:
		return fmt.Errorf("ENVIRONMENT must be development or production, got %q", c.Server.Environment)
	}
}

// validateDatabase validates DuckDB settings.
func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be >= 0, got %d", c.Database.Threads)
	}
	return nil
}

// validateSecurity validates authentication settings.
// AUTH_MODE=none is permitted for development but never validated further;
// main() logs a prominent warning in that mode.
func (c *Config) validateSecurity() error {
	switch c.Security.AuthMode {
	case "none":
		return nil
	case "jwt":
	default:
		return fmt.Errorf("AUTH_MODE must be jwt or none, got %q", c.Security.AuthMode)
	}

	if len(c.Security.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d characters when AUTH_MODE=jwt", minJWTSecretLen)
	}
	if c.Security.SessionTimeout <= 0 {
		return fmt.Errorf("session timeout must be positive, got %s", c.Security.SessionTimeout)
	}
	if c.Security.AdminEmail == "" || !strings.Contains(c.Security.AdminEmail, "@") {
		return fmt.Errorf("ADMIN_EMAIL must be a valid email address when AUTH_MODE=jwt")
	}
	if len(c.Security.AdminPassword) < 8 {
		return fmt.Errorf("ADMIN_PASSWORD must be at least 8 characters when AUTH_MODE=jwt")
	}

	return nil
}

// validateSlack validates the Slack webhook settings (only if enabled).
func (c *Config) validateSlack() error {
	if !c.Slack.Enabled {
		return nil
	}

	if c.Slack.WebhookURL == "" {
		return fmt.Errorf("SLACK_WEBHOOK_URL is required when SLACK_ENABLED=true")
	}
	if err := validateHTTPSURL(c.Slack.WebhookURL, "SLACK_WEBHOOK_URL"); err != nil {
		return err
	}
	if c.Slack.RatePerMinute <= 0 {
		return fmt.Errorf("SLACK_RATE_PER_MINUTE must be positive, got %d", c.Slack.RatePerMinute)
	}
	return nil
}

// validateBackup validates the scheduled backup settings (only if enabled).
func (c *Config) validateBackup() error {
	if !c.Backup.Enabled {
		return nil
	}

	if c.Backup.Dir == "" {
		return fmt.Errorf("BACKUP_DIR is required when BACKUP_ENABLED=true")
	}
	if c.Backup.Interval < time.Minute {
		return fmt.Errorf("BACKUP_INTERVAL must be at least 1 minute, got %s", c.Backup.Interval)
	}
	if c.Backup.MaxBackups < 0 {
		return fmt.Errorf("BACKUP_MAX_BACKUPS must be >= 0, got %d", c.Backup.MaxBackups)
	}
	return nil
}

// validateLogging validates logging settings.
func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, got %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
}

// validateHTTPSURL checks that a value is an absolute https URL.
// Slack rejects plain-http webhooks, so this catches misconfiguration early.
func validateHTTPSURL(raw, name string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("%s must use https, got scheme %q", name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s is missing a host", name)
	}
	return nil
}
