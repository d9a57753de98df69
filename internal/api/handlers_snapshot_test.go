// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package api

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/daybook-dev/daybook/internal/audit"
	"github.com/daybook-dev/daybook/internal/models"
	"github.com/daybook-dev/daybook/internal/snapshot"
)

// buildSnapshotJSON returns a valid snapshot body owned by ownerID with one
// workspace and one task.
func buildSnapshotJSON(t *testing.T, ownerID string) ([]byte, uuid.UUID) {
	t.Helper()

	now := time.Now().UTC()
	wsID := uuid.New()
	snap := snapshot.Snapshot{
		FormatVersion: snapshot.FormatVersion,
		ExportedAt:    now,
		Owner:         snapshot.Owner{ID: ownerID, Email: ownerID + "@example.com"},
		Collections: snapshot.Collections{
			Workspaces: []models.Workspace{{
				ID:        wsID,
				Name:      "Restored Desk",
				OwnerID:   ownerID,
				CreatedAt: now,
				UpdatedAt: now,
			}},
			Tasks: []models.Task{{
				ID:          uuid.New(),
				WorkspaceID: wsID,
				OwnerID:     ownerID,
				Title:       "Water the plants",
				Status:      models.TaskStatusPending,
				CreatedAt:   now,
				UpdatedAt:   now,
			}},
		},
	}

	data, err := json.Marshal(&snap)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	return data, wsID
}

func TestSnapshotExport(t *testing.T) {
	env := newTestEnv(t, "none")
	ws := createWorkspaceHTTP(t, env, "Export Me")

	rec := env.request(t, http.MethodGet, "/api/v1/snapshot/export", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}

	disposition := rec.Header().Get("Content-Disposition")
	if !strings.HasPrefix(disposition, `attachment; filename="daybook-backup-`) {
		t.Errorf("Content-Disposition = %q, want daybook-backup attachment", disposition)
	}

	// Export body is the raw snapshot, not wrapped in the API envelope.
	var snap snapshot.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if snap.FormatVersion != snapshot.FormatVersion {
		t.Errorf("format_version = %q, want %q", snap.FormatVersion, snapshot.FormatVersion)
	}
	if snap.Owner.ID != "local" {
		t.Errorf("owner.id = %q, want local", snap.Owner.ID)
	}
	if len(snap.Collections.Workspaces) != 1 || snap.Collections.Workspaces[0].ID != ws.ID {
		t.Errorf("exported workspaces = %+v, want the created one", snap.Collections.Workspaces)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	env := newTestEnv(t, "none")
	body, wsID := buildSnapshotJSON(t, "local")

	rec := env.request(t, http.MethodPost, "/api/v1/snapshot/restore", "", json.RawMessage(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("restore status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Restored models.RestoreCounts `json:"restored"`
		Skipped  int                  `json:"skipped"`
	}
	decodeData(t, rec, &result)
	if result.Restored.Workspaces != 1 || result.Restored.Tasks != 1 || result.Skipped != 0 {
		t.Fatalf("first restore = %+v, want 1 workspace + 1 task created", result)
	}

	// Restoring the same snapshot again creates nothing and skips everything.
	rec = env.request(t, http.MethodPost, "/api/v1/snapshot/restore", "", json.RawMessage(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("second restore status = %d, want 200", rec.Code)
	}
	decodeData(t, rec, &result)
	if result.Restored.Total() != 0 || result.Skipped != 2 {
		t.Fatalf("second restore = %+v, want everything skipped", result)
	}

	// The restored workspace is visible through the normal API.
	rec = env.request(t, http.MethodGet, "/api/v1/workspaces/"+wsID.String(), "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("restored workspace fetch status = %d, want 200", rec.Code)
	}
}

func TestSnapshotRestoreOwnershipMismatch(t *testing.T) {
	env := newTestEnv(t, "none")
	body, _ := buildSnapshotJSON(t, "somebody-else")

	rec := env.request(t, http.MethodPost, "/api/v1/snapshot/restore", "", json.RawMessage(body))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("restore status = %d, want 403\nbody: %s", rec.Code, rec.Body.String())
	}
	e := decodeEnvelope(t, rec)
	if e.Error == nil || e.Error.Code != "FORBIDDEN" {
		t.Errorf("error = %+v, want FORBIDDEN", e.Error)
	}

	// Nothing may have been written.
	rec = env.request(t, http.MethodGet, "/api/v1/workspaces", "", nil)
	var list []models.Workspace
	decodeData(t, rec, &list)
	if len(list) != 0 {
		t.Errorf("workspaces after rejected restore = %d, want 0", len(list))
	}

	// The rejection is recorded in the audit trail.
	if err := env.logger.Close(); err != nil {
		t.Fatalf("close audit logger: %v", err)
	}
	if got := len(env.store.byType(audit.EventTypeRestoreRejected)); got != 1 {
		t.Errorf("restore rejected events = %d, want 1", got)
	}
}

func TestSnapshotRestoreValidationErrors(t *testing.T) {
	env := newTestEnv(t, "none")

	// Missing format_version and owner: both must be enumerated.
	rec := env.request(t, http.MethodPost, "/api/v1/snapshot/restore", "",
		map[string]interface{}{"collections": map[string]interface{}{}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("restore status = %d, want 400\nbody: %s", rec.Code, rec.Body.String())
	}
	e := decodeEnvelope(t, rec)
	if e.Error == nil || e.Error.Code != "VALIDATION_FAILED" {
		t.Fatalf("error = %+v, want VALIDATION_FAILED", e.Error)
	}

	details, err := json.Marshal(e.Error.Details)
	if err != nil {
		t.Fatalf("marshal details: %v", err)
	}
	for _, field := range []string{"format_version", "owner"} {
		if !strings.Contains(string(details), field) {
			t.Errorf("details %s missing field %q", details, field)
		}
	}
}

func TestSnapshotRestoreUnsupportedVersion(t *testing.T) {
	env := newTestEnv(t, "none")
	body, _ := buildSnapshotJSON(t, "local")

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	raw["format_version"] = "2.0.0"

	rec := env.request(t, http.MethodPost, "/api/v1/snapshot/restore", "", raw)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("restore status = %d, want 400\nbody: %s", rec.Code, rec.Body.String())
	}
}

func TestSnapshotRestorePayloadTooLarge(t *testing.T) {
	env := newTestEnv(t, "none")
	env.cfg.API.MaxSnapshotBytes = 256

	body, _ := buildSnapshotJSON(t, "local")
	rec := env.request(t, http.MethodPost, "/api/v1/snapshot/restore", "", json.RawMessage(body))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("restore status = %d, want 413\nbody: %s", rec.Code, rec.Body.String())
	}
	e := decodeEnvelope(t, rec)
	if e.Error == nil || e.Error.Code != "PAYLOAD_TOO_LARGE" {
		t.Errorf("error = %+v, want PAYLOAD_TOO_LARGE", e.Error)
	}
}
