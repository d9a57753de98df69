// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

// Package metrics exposes Prometheus instrumentation for the HTTP API,
// the snapshot pipeline, template installs, the template cache, and the
// Slack notifier circuit breaker. All collectors are registered on the
// default registry via promauto and served at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "daybook_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daybook_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "daybook_http_active_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// Auth metrics

	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daybook_auth_attempts_total",
			Help: "Total number of login attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Snapshot pipeline metrics

	SnapshotExportsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "daybook_snapshot_exports_total",
			Help: "Total number of snapshot exports served",
		},
	)

	SnapshotRestoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daybook_snapshot_restores_total",
			Help: "Total number of snapshot restore attempts by outcome",
		},
		[]string{"outcome"},
	)

	SnapshotEntitiesRestored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daybook_snapshot_entities_restored_total",
			Help: "Total number of entities created by snapshot restores, per collection",
		},
		[]string{"collection"},
	)

	// Template metrics

	TemplateInstallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daybook_template_installs_total",
			Help: "Total number of template installs by template kind",
		},
		[]string{"kind"},
	)

	// Cache metrics

	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daybook_cache_operations_total",
			Help: "Total number of cache lookups by result",
		},
		[]string{"result"},
	)

	// Audit metrics

	AuditEventsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "daybook_audit_events_dropped_total",
			Help: "Total number of audit events dropped due to a full buffer",
		},
	)

	// Circuit breaker metrics (Slack notifier)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "daybook_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daybook_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

// RecordHTTPRequest records duration and count for a completed request.
// The path label must be the chi route pattern, not the raw URL, to keep
// cardinality bounded.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(active bool) {
	if active {
		HTTPActiveRequests.Inc()
	} else {
		HTTPActiveRequests.Dec()
	}
}

// RecordCacheHit and RecordCacheMiss record template cache lookups.
func RecordCacheHit()  { CacheOperationsTotal.WithLabelValues("hit").Inc() }
func RecordCacheMiss() { CacheOperationsTotal.WithLabelValues("miss").Inc() }
