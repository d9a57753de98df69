// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package audit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/daybook-dev/daybook/internal/logging"
	"github.com/daybook-dev/daybook/internal/metrics"
)

// Config holds configuration for the audit logger.
type Config struct {
	// Enabled controls whether audit logging is active.
	Enabled bool `json:"enabled"`

	// RetentionDays is how long to keep audit events.
	RetentionDays int `json:"retention_days"`

	// CleanupInterval is how often to run retention cleanup.
	CleanupInterval time.Duration `json:"cleanup_interval"`

	// BufferSize is the size of the async write buffer.
	BufferSize int `json:"buffer_size"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		RetentionDays:   90,
		CleanupInterval: 24 * time.Hour,
		BufferSize:      1000,
	}
}

// Logger buffers audit events and writes them to the store asynchronously so
// request handlers never block on audit persistence.
type Logger struct {
	config    *Config
	store     Store
	eventChan chan *Event
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewLogger creates a new audit logger and starts its async writer.
func NewLogger(store Store, config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}

	l := &Logger{
		config:    config,
		store:     store,
		eventChan: make(chan *Event, config.BufferSize),
		stopChan:  make(chan struct{}),
	}

	l.wg.Add(1)
	go l.asyncWriter()

	return l
}

// asyncWriter processes events from the buffer until Close.
func (l *Logger) asyncWriter() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopChan:
			// Drain remaining events before exiting
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return
				}
			}
		case event := <-l.eventChan:
			l.writeEvent(event)
		}
	}
}

// writeEvent persists an event to the store.
func (l *Logger) writeEvent(event *Event) {
	if l.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.store.Save(ctx, event); err != nil {
		logging.Error().Err(err).Str("event_type", string(event.Type)).Msg("Failed to save audit event")
	}
}

// Log records an audit event. Events are dropped with a warning when the
// buffer is full; audit persistence must never stall the request path.
func (l *Logger) Log(event *Event) {
	if !l.config.Enabled {
		return
	}

	if event.ID == "" {
		event.ID = generateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case l.eventChan <- event:
	default:
		metrics.AuditEventsDroppedTotal.Inc()
		logging.Warn().Str("event_id", event.ID).Msg("Audit event buffer full, dropping event")
	}
}

// Close shuts down the logger, flushing buffered events. Safe to call more
// than once.
func (l *Logger) Close() error {
	l.stopOnce.Do(func() {
		close(l.stopChan)
	})
	l.wg.Wait()
	return nil
}

// StartCleanupRoutine deletes events past retention on a timer until ctx ends.
func (l *Logger) StartCleanupRoutine(ctx context.Context) {
	interval := l.config.CleanupInterval
	retention := l.config.RetentionDays

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().AddDate(0, 0, -retention)
				count, err := l.store.Delete(ctx, cutoff)
				if err != nil {
					logging.Error().Err(err).Msg("Audit cleanup error")
				} else if count > 0 {
					logging.Info().Int64("count", count).Msg("Cleaned up old audit events")
				}
			}
		}
	}()
}

// Query retrieves events matching the filter.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	return l.store.Query(ctx, filter)
}

// Count returns the number of events matching the filter.
func (l *Logger) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return l.store.Count(ctx, filter)
}

// generateEventID returns a random 128-bit hex identifier.
func generateEventID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return time.Now().Format("20060102150405.000000000")
	}
	return hex.EncodeToString(b)
}

// SourceFromRequest extracts the client source from an HTTP request.
func SourceFromRequest(r *http.Request) Source {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return Source{
		IPAddress: host,
		UserAgent: r.UserAgent(),
	}
}

// Helper methods for the common planner events.

// LogAuthSuccess records a successful authentication.
func (l *Logger) LogAuthSuccess(ctx context.Context, userID, email string, source Source) {
	l.Log(&Event{
		Type:        EventTypeAuthSuccess,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		Actor:       Actor{ID: userID, Type: "user", Name: email},
		Source:      source,
		Action:      "authenticate",
		Description: "User authenticated successfully",
		RequestID:   requestIDFrom(ctx),
	})
}

// LogAuthFailure records a failed authentication attempt.
func (l *Logger) LogAuthFailure(ctx context.Context, email string, source Source, reason string) {
	l.Log(&Event{
		Type:        EventTypeAuthFailure,
		Severity:    SeverityWarning,
		Outcome:     OutcomeFailure,
		Actor:       Actor{ID: "unknown", Type: "user", Name: email},
		Source:      source,
		Action:      "authenticate",
		Description: "Authentication failed: " + reason,
		Metadata:    mustJSON(map[string]string{"reason": reason}),
		RequestID:   requestIDFrom(ctx),
	})
}

// LogExport records a snapshot export.
func (l *Logger) LogExport(ctx context.Context, userID string, source Source, entityCount int) {
	l.Log(&Event{
		Type:        EventTypeDataExport,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		Actor:       Actor{ID: userID, Type: "user"},
		Source:      source,
		Action:      "export_snapshot",
		Description: "Planner data exported",
		Metadata:    mustJSON(map[string]int{"entity_count": entityCount}),
		RequestID:   requestIDFrom(ctx),
	})
}

// LogRestore records a completed snapshot restore.
func (l *Logger) LogRestore(ctx context.Context, userID string, source Source, imported, skipped int) {
	l.Log(&Event{
		Type:        EventTypeDataRestore,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		Actor:       Actor{ID: userID, Type: "user"},
		Source:      source,
		Action:      "restore_snapshot",
		Description: "Planner data restored from snapshot",
		Metadata:    mustJSON(map[string]int{"imported": imported, "skipped": skipped}),
		RequestID:   requestIDFrom(ctx),
	})
}

// LogRestoreRejected records a refused restore, typically an ownership mismatch.
func (l *Logger) LogRestoreRejected(ctx context.Context, userID string, source Source, reason string) {
	l.Log(&Event{
		Type:        EventTypeRestoreRejected,
		Severity:    SeverityWarning,
		Outcome:     OutcomeFailure,
		Actor:       Actor{ID: userID, Type: "user"},
		Source:      source,
		Action:      "restore_snapshot",
		Description: "Snapshot restore rejected: " + reason,
		Metadata:    mustJSON(map[string]string{"reason": reason}),
		RequestID:   requestIDFrom(ctx),
	})
}

// LogTemplateInstalled records a template installation.
func (l *Logger) LogTemplateInstalled(ctx context.Context, userID string, source Source, templateID, templateName string, created int) {
	l.Log(&Event{
		Type:        EventTypeTemplateInstalled,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		Actor:       Actor{ID: userID, Type: "user"},
		Target:      &Target{ID: templateID, Type: "template", Name: templateName},
		Source:      source,
		Action:      "install_template",
		Description: "Template installed into workspace",
		Metadata:    mustJSON(map[string]int{"entities_created": created}),
		RequestID:   requestIDFrom(ctx),
	})
}

// mustJSON marshals v, returning nil on failure. Audit metadata is advisory
// and must not block event emission.
func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// requestIDFrom pulls the request ID out of the context if one was set.
func requestIDFrom(ctx context.Context) string {
	return logging.RequestIDFromContext(ctx)
}
