// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package middleware

import (
	"net/http"
	"time"

	"github.com/daybook-dev/daybook/internal/logging"
)

// slowRequestThreshold marks requests worth a warning. Restores of large
// snapshots legitimately run long, so this is a signal, not an error.
const slowRequestThreshold = 1 * time.Second

// RequestLogger emits one structured log line per request with method,
// path, status, and duration. Requests over slowRequestThreshold are
// logged at warn level.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		evt := logging.Info()
		if duration > slowRequestThreshold {
			evt = logging.Warn()
		}
		evt.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Str("request_id", logging.RequestIDFromContext(r.Context())).
			Msg("Request completed")
	})
}
