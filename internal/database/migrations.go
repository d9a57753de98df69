// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/daybook-dev/daybook/internal/logging"
)

// migration is a one-shot schema change applied once per database file.
type migration struct {
	version     int
	description string
	apply       func(ctx context.Context, db *DB) error
}

// migrations lists schema changes in order. The base schema is created by
// createTables, so this starts empty; additions go at the end with the next
// version number.
var migrations = []migration{}

// runMigrations applies any migrations newer than the recorded schema version.
func (db *DB) runMigrations() error {
	ctx, cancel := schemaContext()
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description VARCHAR NOT NULL,
		applied_at TIMESTAMP NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	current, err := db.currentSchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		logging.Info().
			Int("version", m.version).
			Str("description", m.description).
			Msg("Applying database migration")

		if err := m.apply(ctx, db); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.description, err)
		}
		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`,
			m.version, m.description, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
	}
	return nil
}

// currentSchemaVersion returns the highest applied migration version, or 0.
func (db *DB) currentSchemaVersion(ctx context.Context) (int, error) {
	var version int
	row := db.conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`)
	if err := row.Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
