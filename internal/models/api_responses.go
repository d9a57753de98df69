// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package models

import (
	"time"
)

// APIResponse is the standardized response wrapper used by all HTTP endpoints.
//
// Status field values:
//   - "success": Request completed successfully, see Data field
//   - "error": Request failed, see Error field for details
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {
//	    "code": "VALIDATION_ERROR",
//	    "message": "collections is required",
//	    "details": {"field": "collections"}
//	  },
//	  "metadata": {"timestamp": "2026-08-31T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	// RequestID is the request ID for tracing, when available.
	RequestID string `json:"request_id,omitempty"`
	// Cached indicates the response was served from the catalog cache.
	Cached bool `json:"cached,omitempty"`
}

// APIError represents an error response with structured details.
// Details never contains internal identifiers or stack traces.
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// RestoreCounts enumerates per-collection created-record counts for a restore.
// The "blocks" JSON name for tasks is kept for backup-file compatibility with
// existing planner exports.
type RestoreCounts struct {
	Workspaces int `json:"workspaces"`
	Tasks      int `json:"blocks"`
	Goals      int `json:"goals"`
	Habits     int `json:"habits"`
	Templates  int `json:"templates"`
}

// Total returns the sum of all per-collection counts.
func (c RestoreCounts) Total() int {
	return c.Workspaces + c.Tasks + c.Goals + c.Habits + c.Templates
}

// InstallCounts enumerates entities created by a template installation.
type InstallCounts struct {
	Tasks  int `json:"tasks"`
	Goals  int `json:"goals"`
	Habits int `json:"habits"`
}

// Total returns the sum of all per-kind counts.
func (c InstallCounts) Total() int {
	return c.Tasks + c.Goals + c.Habits
}
