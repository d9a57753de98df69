// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/daybook-dev/daybook/internal/audit"
	"github.com/daybook-dev/daybook/internal/logging"
	"github.com/daybook-dev/daybook/internal/metrics"
	"github.com/daybook-dev/daybook/internal/models"
	"github.com/daybook-dev/daybook/internal/snapshot"
	"github.com/daybook-dev/daybook/internal/validation"
)

// notifyTimeout bounds fire-and-forget Slack posts, which outlive the
// request context.
const notifyTimeout = 15 * time.Second

// SnapshotExport serializes everything the authenticated user owns into a
// downloadable backup file. The export is read-only and touches no rows.
func (h *Handler) SnapshotExport(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	snap, err := h.assembler.Export(r.Context(), id)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	metrics.SnapshotExportsTotal.Inc()
	h.audit.LogExport(r.Context(), id.UserID, audit.SourceFromRequest(r), snap.EntityCount())

	filename := fmt.Sprintf("daybook-backup-%s.json", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		logging.Error().Err(err).Msg("Failed to encode snapshot export")
	}
}

// SnapshotRestore imports a previously exported snapshot in one atomic
// transaction. Validation enumerates every failing field before anything
// is written; an ownership mismatch rejects the whole snapshot.
func (h *Handler) SnapshotRestore(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.API.MaxSnapshotBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			rw.Error(http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge,
				fmt.Sprintf("snapshot exceeds the %d byte limit", mbe.Limit))
			return
		}
		rw.BadRequest("failed to read request body")
		return
	}

	source := audit.SourceFromRequest(r)

	snap, err := snapshot.Parse(body)
	if err != nil {
		var ve *validation.RequestValidationError
		if errors.As(err, &ve) {
			metrics.SnapshotRestoresTotal.WithLabelValues("invalid").Inc()
			h.audit.LogRestoreRejected(r.Context(), id.UserID, source, "validation failed")
			rw.ValidationError(ve)
			return
		}
		metrics.SnapshotRestoresTotal.WithLabelValues("invalid").Inc()
		rw.BadRequest(err.Error())
		return
	}

	counts, err := h.coordinator.Restore(r.Context(), snap, id)
	if err != nil {
		if errors.Is(err, snapshot.ErrOwnershipMismatch) {
			metrics.SnapshotRestoresTotal.WithLabelValues("rejected").Inc()
			h.audit.LogRestoreRejected(r.Context(), id.UserID, source, "snapshot owner mismatch")
			if h.notifier.Enabled() {
				go func() {
					ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
					defer cancel()
					_ = h.notifier.RestoreRejected(ctx, id.Email, "snapshot owner mismatch")
				}()
			}
			rw.Forbidden("snapshot belongs to a different user")
			return
		}
		metrics.SnapshotRestoresTotal.WithLabelValues("failed").Inc()
		rw.DatabaseError(err)
		return
	}

	skipped := snap.EntityCount() - counts.Total()
	metrics.SnapshotRestoresTotal.WithLabelValues("committed").Inc()
	recordRestoredEntities(counts)
	h.audit.LogRestore(r.Context(), id.UserID, source, counts.Total(), skipped)
	if h.notifier.Enabled() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			_ = h.notifier.RestoreCompleted(ctx, id.Email, counts, skipped)
		}()
	}

	rw.Success(map[string]interface{}{
		"restored": counts,
		"skipped":  skipped,
	})
}

func recordRestoredEntities(counts models.RestoreCounts) {
	metrics.SnapshotEntitiesRestored.WithLabelValues("workspaces").Add(float64(counts.Workspaces))
	metrics.SnapshotEntitiesRestored.WithLabelValues("tasks").Add(float64(counts.Tasks))
	metrics.SnapshotEntitiesRestored.WithLabelValues("goals").Add(float64(counts.Goals))
	metrics.SnapshotEntitiesRestored.WithLabelValues("habits").Add(float64(counts.Habits))
	metrics.SnapshotEntitiesRestored.WithLabelValues("templates").Add(float64(counts.Templates))
}
