// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/daybook-dev/daybook/internal/audit"
)

// AuditEvents returns audit events matching the query filters. Admin only;
// the router enforces the role.
//
// Query parameters: type, actor_id, outcome, start, end (RFC 3339),
// limit, offset.
func (h *Handler) AuditEvents(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	filter, err := auditFilterFromQuery(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	events, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	total, err := h.audit.Count(r.Context(), filter)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(map[string]interface{}{
		"events": events,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func auditFilterFromQuery(r *http.Request) (audit.QueryFilter, error) {
	filter := audit.DefaultQueryFilter()
	q := r.URL.Query()

	if t := q.Get("type"); t != "" {
		filter.Types = []audit.EventType{audit.EventType(t)}
	}
	if actor := q.Get("actor_id"); actor != "" {
		filter.ActorID = actor
	}
	if outcome := q.Get("outcome"); outcome != "" {
		filter.Outcomes = []audit.Outcome{audit.Outcome(outcome)}
	}
	if raw := q.Get("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, errInvalidQueryParam("start")
		}
		filter.StartTime = &t
	}
	if raw := q.Get("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, errInvalidQueryParam("end")
		}
		filter.EndTime = &t
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			return filter, errInvalidQueryParam("limit")
		}
		filter.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, errInvalidQueryParam("offset")
		}
		filter.Offset = n
	}

	return filter, nil
}

type errInvalidQueryParam string

func (e errInvalidQueryParam) Error() string {
	return "invalid query parameter: " + string(e)
}
