// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package snapshot

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/daybook-dev/daybook/internal/models"
	"github.com/daybook-dev/daybook/internal/validation"
)

// rawSnapshot mirrors Snapshot with pointer fields so missing keys are
// distinguishable from zero values during validation.
type rawSnapshot struct {
	FormatVersion *string      `json:"format_version"`
	ExportedAt    *string      `json:"exported_at"`
	Owner         *rawOwner    `json:"owner"`
	Collections   *Collections `json:"collections"`
}

type rawOwner struct {
	ID    *string `json:"id"`
	Email string  `json:"email"`
}

// Parse validates raw snapshot JSON structurally and returns a typed
// Snapshot. On failure it returns a *validation.RequestValidationError
// enumerating every offending field, not just the first. Unknown extra
// fields are ignored so newer exports remain restorable.
//
// Validation here is purely structural. Ownership and referential checks
// belong to the guard and the importer respectively.
func Parse(data []byte) (*Snapshot, error) {
	var raw rawSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, decodeError(err)
	}

	var fieldErrs []validation.FieldError

	addErr := func(field, tag, message string) {
		fieldErrs = append(fieldErrs, validation.NewFieldError(field, tag, message))
	}

	if raw.FormatVersion == nil || *raw.FormatVersion == "" {
		addErr("format_version", "required", "format_version is required")
	} else if !supportedVersion(*raw.FormatVersion) {
		addErr("format_version", "version", fmt.Sprintf("unsupported snapshot version %q", *raw.FormatVersion))
	}

	if raw.Owner == nil {
		addErr("owner", "required", "owner is required")
	} else if raw.Owner.ID == nil || *raw.Owner.ID == "" {
		addErr("owner.id", "required", "owner.id is required")
	}

	snap := &Snapshot{}
	if raw.FormatVersion != nil {
		snap.FormatVersion = *raw.FormatVersion
	}
	if raw.Owner != nil {
		if raw.Owner.ID != nil {
			snap.Owner.ID = *raw.Owner.ID
		}
		snap.Owner.Email = raw.Owner.Email
	}

	if raw.Collections == nil {
		addErr("collections", "required", "collections is required")
	} else {
		snap.Collections = *raw.Collections
		fieldErrs = append(fieldErrs, validateCollections(&snap.Collections)...)
	}

	if len(fieldErrs) > 0 {
		return nil, validation.NewRequestValidationError(fieldErrs)
	}
	return snap, nil
}

// supportedVersion accepts any snapshot sharing this release's major version.
func supportedVersion(v string) bool {
	major, _, _ := strings.Cut(v, ".")
	currentMajor, _, _ := strings.Cut(FormatVersion, ".")
	return major == currentMajor
}

// decodeError converts a JSON decode failure into a field-level validation
// error where the offending field is known.
func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return validation.NewRequestValidationError([]validation.FieldError{
			validation.NewFieldError(typeErr.Field, "type",
				fmt.Sprintf("%s has wrong type: expected %s", typeErr.Field, typeErr.Type)),
		})
	}
	return validation.NewRequestValidationError([]validation.FieldError{
		validation.NewFieldError("body", "json", "request body is not valid JSON"),
	})
}

// validateCollections performs per-record structural checks, accumulating
// an error for every bad field across every collection.
func validateCollections(c *Collections) []validation.FieldError {
	var errs []validation.FieldError

	add := func(field, tag, message string) {
		errs = append(errs, validation.NewFieldError(field, tag, message))
	}

	for i := range c.Workspaces {
		w := &c.Workspaces[i]
		prefix := fmt.Sprintf("collections.workspaces[%d]", i)
		if w.ID == uuid.Nil {
			add(prefix+".id", "required", "workspace id is required")
		}
		if w.Name == "" {
			add(prefix+".name", "required", "workspace name is required")
		}
	}

	for i := range c.Tasks {
		t := &c.Tasks[i]
		prefix := fmt.Sprintf("collections.tasks[%d]", i)
		if t.ID == uuid.Nil {
			add(prefix+".id", "required", "task id is required")
		}
		if t.WorkspaceID == uuid.Nil {
			add(prefix+".workspace_id", "required", "task workspace_id is required")
		}
		if t.Title == "" {
			add(prefix+".title", "required", "task title is required")
		}
		if t.Status != "" && !models.ValidTaskStatus(t.Status) {
			add(prefix+".status", "oneof", fmt.Sprintf("unknown task status %q", t.Status))
		}
	}

	for i := range c.Goals {
		g := &c.Goals[i]
		prefix := fmt.Sprintf("collections.goals[%d]", i)
		if g.ID == uuid.Nil {
			add(prefix+".id", "required", "goal id is required")
		}
		if g.WorkspaceID == uuid.Nil {
			add(prefix+".workspace_id", "required", "goal workspace_id is required")
		}
		if g.Title == "" {
			add(prefix+".title", "required", "goal title is required")
		}
		if g.Status != "" && !models.ValidGoalStatus(g.Status) {
			add(prefix+".status", "oneof", fmt.Sprintf("unknown goal status %q", g.Status))
		}
		if g.Progress < 0 || g.Progress > 100 {
			add(prefix+".progress", "range", "goal progress must be between 0 and 100")
		}
	}

	for i := range c.Habits {
		h := &c.Habits[i]
		prefix := fmt.Sprintf("collections.habits[%d]", i)
		if h.ID == uuid.Nil {
			add(prefix+".id", "required", "habit id is required")
		}
		if h.WorkspaceID == uuid.Nil {
			add(prefix+".workspace_id", "required", "habit workspace_id is required")
		}
		if h.Name == "" {
			add(prefix+".name", "required", "habit name is required")
		}
		if h.Cadence != "" && !models.ValidHabitCadence(h.Cadence) {
			add(prefix+".cadence", "oneof", fmt.Sprintf("unknown habit cadence %q", h.Cadence))
		}
	}

	for i := range c.Templates {
		t := &c.Templates[i]
		prefix := fmt.Sprintf("collections.templates[%d]", i)
		if t.ID == uuid.Nil {
			add(prefix+".id", "required", "template id is required")
		}
		if t.Name == "" {
			add(prefix+".name", "required", "template name is required")
		}
		for j := range t.Entries {
			if err := t.Entries[j].Validate(); err != nil {
				add(fmt.Sprintf("%s.entries[%d]", prefix, j), "structure", err.Error())
			}
		}
	}

	return errs
}
