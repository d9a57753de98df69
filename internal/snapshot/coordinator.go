// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package snapshot

import (
	"context"
	"fmt"

	"github.com/daybook-dev/daybook/internal/auth"
	"github.com/daybook-dev/daybook/internal/database"
	"github.com/daybook-dev/daybook/internal/logging"
	"github.com/daybook-dev/daybook/internal/models"
)

// Coordinator runs a full restore as one atomic unit. Either every
// insertable record across every collection commits, or the store is left
// exactly as it was. Partial restores are never observable.
type Coordinator struct {
	db       *database.DB
	guard    *Guard
	importer *Importer
}

// NewCoordinator creates a restore coordinator.
func NewCoordinator(db *database.DB) *Coordinator {
	return &Coordinator{
		db:       db,
		guard:    NewGuard(),
		importer: NewImporter(),
	}
}

// Restore checks ownership and imports every collection of the snapshot in
// RestoreOrder inside a single transaction. The snapshot must already have
// passed Parse. Returns per-collection counts of newly created records.
func (c *Coordinator) Restore(ctx context.Context, snap *Snapshot, id auth.Identity) (models.RestoreCounts, error) {
	var counts models.RestoreCounts

	if err := c.guard.Check(ctx, snap, id); err != nil {
		return counts, err
	}

	err := c.db.InTx(ctx, func(store *database.Store) error {
		for _, col := range RestoreOrder {
			n, err := c.importer.ImportCollection(ctx, store, col, snap, id)
			if err != nil {
				return fmt.Errorf("importing %s: %w", col, err)
			}
			setCount(&counts, col, n)
		}
		return nil
	})
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("user_id", id.UserID).Msg("Snapshot restore rolled back")
		return models.RestoreCounts{}, err
	}

	logging.Ctx(ctx).Info().
		Str("user_id", id.UserID).
		Int("created", counts.Total()).
		Int("skipped", snap.EntityCount()-counts.Total()).
		Msg("Snapshot restore committed")
	return counts, nil
}

// setCount maps a collection name onto its field in the counts struct.
func setCount(counts *models.RestoreCounts, col Collection, n int) {
	switch col {
	case CollectionWorkspaces:
		counts.Workspaces = n
	case CollectionTasks:
		counts.Tasks = n
	case CollectionGoals:
		counts.Goals = n
	case CollectionHabits:
		counts.Habits = n
	case CollectionTemplates:
		counts.Templates = n
	}
}
