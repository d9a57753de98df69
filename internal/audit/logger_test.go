// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package audit

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory Store for logger tests.
type memStore struct {
	mu     sync.Mutex
	events []Event
}

func (m *memStore) Save(_ context.Context, event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *event)
	return nil
}

func (m *memStore) Query(_ context.Context, _ QueryFilter) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out, nil
}

func (m *memStore) Count(_ context.Context, _ QueryFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.events)), nil
}

func (m *memStore) Delete(_ context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []Event
	var deleted int64
	for _, e := range m.events {
		if e.Timestamp.Before(olderThan) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return deleted, nil
}

func (m *memStore) saved() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

func newTestLogger(t *testing.T) (*Logger, *memStore) {
	t.Helper()
	store := &memStore{}
	logger := NewLogger(store, &Config{Enabled: true, BufferSize: 16})
	t.Cleanup(func() {
		_ = logger.Close()
	})
	return logger, store
}

func TestLoggerAssignsIDAndTimestamp(t *testing.T) {
	t.Parallel()

	logger, store := newTestLogger(t)

	logger.Log(&Event{
		Type:     EventTypeDataExport,
		Severity: SeverityInfo,
		Outcome:  OutcomeSuccess,
		Actor:    Actor{ID: "user-1", Type: "user"},
		Action:   "export_snapshot",
	})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	events := store.saved()
	if len(events) != 1 {
		t.Fatalf("saved %d events, want 1", len(events))
	}
	if events[0].ID == "" {
		t.Error("event ID was not assigned")
	}
	if events[0].Timestamp.IsZero() {
		t.Error("event timestamp was not assigned")
	}
}

func TestLoggerDisabledDropsEvents(t *testing.T) {
	t.Parallel()

	store := &memStore{}
	logger := NewLogger(store, &Config{Enabled: false, BufferSize: 16})

	logger.Log(&Event{Type: EventTypeDataExport})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if got := len(store.saved()); got != 0 {
		t.Errorf("disabled logger saved %d events, want 0", got)
	}
}

func TestLoggerHelperEvents(t *testing.T) {
	t.Parallel()

	logger, store := newTestLogger(t)
	ctx := context.Background()
	source := Source{IPAddress: "10.0.0.1", UserAgent: "daybook-test"}

	logger.LogAuthSuccess(ctx, "user-1", "alex@example.com", source)
	logger.LogAuthFailure(ctx, "alex@example.com", source, "bad password")
	logger.LogExport(ctx, "user-1", source, 12)
	logger.LogRestore(ctx, "user-1", source, 10, 2)
	logger.LogRestoreRejected(ctx, "user-1", source, "snapshot owned by another user")
	logger.LogTemplateInstalled(ctx, "user-1", source, "tpl-1", "Weekly reset", 3)

	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	events := store.saved()
	if len(events) != 6 {
		t.Fatalf("saved %d events, want 6", len(events))
	}

	wantTypes := map[EventType]Outcome{
		EventTypeAuthSuccess:       OutcomeSuccess,
		EventTypeAuthFailure:       OutcomeFailure,
		EventTypeDataExport:        OutcomeSuccess,
		EventTypeDataRestore:       OutcomeSuccess,
		EventTypeRestoreRejected:   OutcomeFailure,
		EventTypeTemplateInstalled: OutcomeSuccess,
	}
	for _, e := range events {
		want, ok := wantTypes[e.Type]
		if !ok {
			t.Errorf("unexpected event type %q", e.Type)
			continue
		}
		if e.Outcome != want {
			t.Errorf("event %q outcome = %q, want %q", e.Type, e.Outcome, want)
		}
		if e.Source.IPAddress != "10.0.0.1" {
			t.Errorf("event %q source = %q, want 10.0.0.1", e.Type, e.Source.IPAddress)
		}
	}
}

func TestSourceFromRequest(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/api/v1/snapshot/export", nil)
	r.RemoteAddr = "192.168.1.50:52344"
	r.Header.Set("User-Agent", "daybook-cli/1.0")

	source := SourceFromRequest(r)
	if source.IPAddress != "192.168.1.50" {
		t.Errorf("IPAddress = %q, want 192.168.1.50", source.IPAddress)
	}
	if source.UserAgent != "daybook-cli/1.0" {
		t.Errorf("UserAgent = %q, want daybook-cli/1.0", source.UserAgent)
	}
}
