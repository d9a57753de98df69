// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package snapshot

import (
	"context"
	"errors"

	"github.com/daybook-dev/daybook/internal/auth"
	"github.com/daybook-dev/daybook/internal/logging"
)

// ErrOwnershipMismatch is returned when a snapshot's recorded owner differs
// from the authenticated caller. The whole restore is refused; there is no
// per-record fallback.
var ErrOwnershipMismatch = errors.New("snapshot owner does not match authenticated user")

// Guard enforces that only the snapshot's recorded owner can restore it.
type Guard struct {
	secLog *logging.SecurityLogger
}

// NewGuard creates an ownership guard.
func NewGuard() *Guard {
	return &Guard{secLog: logging.NewSecurityLogger("snapshot")}
}

// Check fails closed: a missing owner ID or any mismatch refuses the restore.
// A refusal emits a security log entry; a pass has no side effects.
func (g *Guard) Check(ctx context.Context, snap *Snapshot, id auth.Identity) error {
	if snap.Owner.ID == "" || snap.Owner.ID != id.UserID {
		g.secLog.LogEvent(ctx, logging.SecurityEvent{
			Event:   "restore_ownership_refused",
			UserID:  id.UserID,
			Email:   id.Email,
			Success: false,
			Error:   ErrOwnershipMismatch.Error(),
			Details: map[string]string{
				"snapshot_owner": logging.Sanitize(snap.Owner.ID),
			},
		})
		return ErrOwnershipMismatch
	}
	return nil
}
