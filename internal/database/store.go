// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package database

import (
	"database/sql"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/daybook-dev/daybook/internal/models"
)

// marshalSource serializes an entity's provenance for the source column.
// A nil source stores NULL.
func marshalSource(s *models.EntitySource) (any, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity source: %w", err)
	}
	return string(b), nil
}

// scanSource deserializes the source column back into a provenance record.
func scanSource(ns sql.NullString) (*models.EntitySource, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var s models.EntitySource
	if err := json.Unmarshal([]byte(ns.String), &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity source: %w", err)
	}
	return &s, nil
}

// nullableTime converts an optional time for binding.
func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// timePtr converts a scanned NullTime back to an optional time.
func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// nullableString converts an optional string for binding.
func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// stringPtr converts a scanned NullString back to an optional string.
func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
