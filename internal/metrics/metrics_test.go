// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordHTTPRequest(t *testing.T) {
	t.Parallel()

	RecordHTTPRequest("GET", "/test/record-http", "200", 25*time.Millisecond)
	RecordHTTPRequest("GET", "/test/record-http", "200", 50*time.Millisecond)

	got := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/test/record-http", "200"))
	if got != 2 {
		t.Errorf("HTTPRequestsTotal = %v, want 2", got)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPActiveRequests)

	TrackActiveRequest(true)
	if got := testutil.ToFloat64(HTTPActiveRequests); got != before+1 {
		t.Errorf("after increment = %v, want %v", got, before+1)
	}

	TrackActiveRequest(false)
	if got := testutil.ToFloat64(HTTPActiveRequests); got != before {
		t.Errorf("after decrement = %v, want %v", got, before)
	}
}

func TestSnapshotRestoreOutcomes(t *testing.T) {
	t.Parallel()

	SnapshotRestoresTotal.WithLabelValues("committed").Inc()
	SnapshotRestoresTotal.WithLabelValues("rejected").Inc()
	SnapshotRestoresTotal.WithLabelValues("rejected").Inc()

	if got := testutil.ToFloat64(SnapshotRestoresTotal.WithLabelValues("rejected")); got < 2 {
		t.Errorf("rejected restores = %v, want >= 2", got)
	}
}

func TestCacheHelpers(t *testing.T) {
	t.Parallel()

	hitsBefore := testutil.ToFloat64(CacheOperationsTotal.WithLabelValues("hit"))
	missesBefore := testutil.ToFloat64(CacheOperationsTotal.WithLabelValues("miss"))

	RecordCacheHit()
	RecordCacheMiss()

	if got := testutil.ToFloat64(CacheOperationsTotal.WithLabelValues("hit")); got != hitsBefore+1 {
		t.Errorf("cache hits = %v, want %v", got, hitsBefore+1)
	}
	if got := testutil.ToFloat64(CacheOperationsTotal.WithLabelValues("miss")); got != missesBefore+1 {
		t.Errorf("cache misses = %v, want %v", got, missesBefore+1)
	}
}
