// Daybook - Self-Hosted Digital Planner Backend
// Copyright 2026 Daybook Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daybook-dev/daybook

// Package notify delivers operational notifications to a Slack incoming
// webhook. Delivery is best-effort: failures are logged and never propagate
// to the request path, a circuit breaker sheds load when Slack is down, and
// a token bucket paces outbound posts.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/daybook-dev/daybook/internal/config"
	"github.com/daybook-dev/daybook/internal/logging"
	"github.com/daybook-dev/daybook/internal/metrics"
	"github.com/daybook-dev/daybook/internal/models"
)

// ErrNotifierDisabled is returned when notifications are turned off in config.
var ErrNotifierDisabled = errors.New("notify: notifier disabled")

// ErrRateLimited is returned when the outbound pacing budget is exhausted.
var ErrRateLimited = errors.New("notify: notification rate limit exceeded")

// webhookPayload is the subset of the Slack incoming-webhook message
// structure we use. Attachments carry the color accent.
type webhookPayload struct {
	Text        string       `json:"text,omitempty"`
	Blocks      []block      `json:"blocks,omitempty"`
	Attachments []attachment `json:"attachments,omitempty"`
}

type block struct {
	Type string      `json:"type"`
	Text *textObject `json:"text,omitempty"`
}

type textObject struct {
	Type string `json:"type"` // plain_text or mrkdwn
	Text string `json:"text"`
}

type attachment struct {
	Color string `json:"color,omitempty"`
}

// Notifier posts restore and install events to a Slack webhook.
//
// The circuit breaker uses real time for its interval and timeout
// calculations; tests exercise the breaker through repeated failures
// rather than waiting out the recovery timeout.
type Notifier struct {
	enabled    bool
	webhookURL string
	client     *http.Client
	limiter    *rate.Limiter
	cb         *gobreaker.CircuitBreaker[struct{}]
}

// NewNotifier builds a Notifier from config. A disabled config yields a
// notifier whose methods are cheap no-ops.
func NewNotifier(cfg *config.SlackConfig) *Notifier {
	n := &Notifier{
		enabled:    cfg.Enabled,
		webhookURL: cfg.WebhookURL,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
	if !cfg.Enabled {
		return n
	}

	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	n.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)

	const cbName = "slack-webhook"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	n.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Webhook traffic is sparse, so trip on a short consecutive run
			// instead of a failure-rate window.
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().
				Str("breaker", name).
				Str("from", fromStr).
				Str("to", toStr).
				Msg("Slack webhook circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return n
}

// Enabled reports whether notifications are configured.
func (n *Notifier) Enabled() bool {
	return n.enabled
}

// RestoreCompleted announces a successful snapshot restore.
func (n *Notifier) RestoreCompleted(ctx context.Context, userEmail string, counts models.RestoreCounts, skipped int) error {
	body := fmt.Sprintf("*%s* restored a snapshot: %d entities created, %d already present.",
		userEmail, counts.Total(), skipped)
	return n.post(ctx, "Snapshot restored", body, "#2EB67D")
}

// TemplateInstalled announces a template install.
func (n *Notifier) TemplateInstalled(ctx context.Context, userEmail, templateName string, counts models.InstallCounts) error {
	body := fmt.Sprintf("*%s* installed template *%s*: %d tasks, %d goals, %d habits.",
		userEmail, templateName, counts.Tasks, counts.Goals, counts.Habits)
	return n.post(ctx, "Template installed", body, "#36C5F0")
}

// RestoreRejected announces a restore refused by the ownership guard.
// These are security-relevant, so they go out even though the restore failed.
func (n *Notifier) RestoreRejected(ctx context.Context, userEmail, reason string) error {
	body := fmt.Sprintf("A restore by *%s* was rejected: %s.", userEmail, reason)
	return n.post(ctx, "Snapshot restore rejected", body, "#E01E5A")
}

// post builds the Slack payload and sends it through the rate limiter and
// circuit breaker. All errors are logged; callers may ignore the return.
func (n *Notifier) post(ctx context.Context, title, body, color string) error {
	if !n.enabled {
		return ErrNotifierDisabled
	}
	if !n.limiter.Allow() {
		logging.Warn().Str("title", title).Msg("Dropping Slack notification: rate limit exceeded")
		return ErrRateLimited
	}

	payload := webhookPayload{
		Text: title,
		Blocks: []block{
			{Type: "header", Text: &textObject{Type: "plain_text", Text: title}},
			{Type: "section", Text: &textObject{Type: "mrkdwn", Text: body}},
		},
		Attachments: []attachment{{Color: color}},
	}

	_, err := n.cb.Execute(func() (struct{}, error) {
		return struct{}{}, n.send(ctx, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.Warn().Err(err).Str("title", title).Msg("Slack notification rejected by circuit breaker")
		} else {
			logging.Warn().Err(err).Str("title", title).Msg("Slack notification failed")
		}
		return err
	}
	return nil
}

// send performs a single webhook POST. Slack replies 200 "ok" on success.
func (n *Notifier) send(ctx context.Context, payload webhookPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		respBody = []byte("(unreadable)")
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
