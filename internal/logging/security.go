// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package logging

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// maxUserAgentLen caps user agent strings to keep log lines bounded.
const maxUserAgentLen = 256

// SecurityEvent represents a security-relevant event for audit logging.
// The ownership guard and auth middleware emit these on refusals so that
// forged-snapshot and cross-account attempts leave a durable trace.
type SecurityEvent struct {
	// Event is the type of event (e.g., "login_success", "ownership_refused").
	Event string
	// UserID is the authenticated caller's identifier (if known).
	UserID string
	// Email is the caller's email (if known).
	Email string
	// IPAddress is the client's IP address.
	IPAddress string
	// UserAgent is the client's user agent (truncated).
	UserAgent string
	// Success indicates if the operation was successful.
	Success bool
	// Error is the error message if the operation failed.
	Error string
	// Details contains additional sanitized details.
	Details map[string]string
}

// SecurityLogger provides structured logging for security events.
// It sanitizes attacker-controlled values before logging.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger creates a security logger tagged with a component name.
func NewSecurityLogger(component string) *SecurityLogger {
	return &SecurityLogger{
		logger: With().Str("component", component).Logger(),
	}
}

// NewSecurityLoggerWithLogger creates a security logger with a custom zerolog logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSecurityLoggerWithLogger(logger zerolog.Logger, component string) *SecurityLogger {
	return &SecurityLogger{
		logger: logger.With().Str("component", component).Logger(),
	}
}

// LogEvent logs a security event with automatic sanitization, tagged with
// the context's request ID when one is present.
// Failed events log at warn level so they stand out in production logs.
func (sl *SecurityLogger) LogEvent(ctx context.Context, event SecurityEvent) {
	logger := sl.logger
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		logger = logger.With().Str("request_id", requestID).Logger()
	}

	var evt *zerolog.Event
	if event.Success {
		evt = logger.Info()
	} else {
		evt = logger.Warn()
	}

	evt = evt.Str("security_event", Sanitize(event.Event)).Bool("success", event.Success)

	if event.UserID != "" {
		evt = evt.Str("user_id", Sanitize(event.UserID))
	}
	if event.Email != "" {
		evt = evt.Str("email", Sanitize(event.Email))
	}
	if event.IPAddress != "" {
		evt = evt.Str("ip_address", Sanitize(event.IPAddress))
	}
	if event.UserAgent != "" {
		ua := event.UserAgent
		if len(ua) > maxUserAgentLen {
			ua = ua[:maxUserAgentLen]
		}
		evt = evt.Str("user_agent", Sanitize(ua))
	}
	if event.Error != "" {
		evt = evt.Str("error", Sanitize(event.Error))
	}
	for k, v := range event.Details {
		evt = evt.Str(Sanitize(k), Sanitize(v))
	}

	evt.Msg("Security event")
}

// Sanitize strips control characters from a string to prevent log injection.
// Newlines, carriage returns, and other control bytes are replaced so an
// attacker-controlled value cannot forge additional log entries.
func Sanitize(s string) string {
	if !strings.ContainsFunc(s, isControlRune) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isControlRune(r) {
			b.WriteRune('_')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isControlRune(r rune) bool {
	return r < 0x20 || r == 0x7F
}
