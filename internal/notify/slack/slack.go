// Package slack sends duplicate-ticket notifications to Slack via incoming
// webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/ticketflow/internal/dedup"
	"github.com/linnemanlabs/ticketflow/internal/pipeline"
)

const (
	maxEvidenceLen = 3000
	httpTimeout    = 10 * time.Second
)

// Notifier posts duplicate findings to a Slack webhook. It implements
// pipeline.Notifier.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, NotifyDuplicate
// is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// NotifyDuplicate posts a duplicate-positive pipeline result to the
// configured Slack webhook. If no webhook URL is configured, it returns nil
// immediately.
func (n *Notifier) NotifyDuplicate(ctx context.Context, result *pipeline.Result) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(result)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(r *pipeline.Result) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(r),
			{"type": "divider"},
			fieldsBlock(r),
			{"type": "divider"},
			evidenceBlock(r),
			{"type": "divider"},
			contextBlock(r),
		},
	}
}

func headerBlock(r *pipeline.Result) map[string]any {
	action := dedupAction(r)
	text := fmt.Sprintf("%s Duplicate Ticket: %s", actionEmoji(action), r.TicketID)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(r *pipeline.Result) map[string]any {
	action := dedupAction(r)

	var matchedID string
	var score float64
	if r.Dedup != nil && len(r.Dedup.Matches) > 0 {
		top := r.Dedup.Matches[0]
		matchedID = top.CandidateTicketID
		if matchedID == "" {
			matchedID = top.IncidentID
		}
		score = top.Score
	}

	var category, severity string
	if r.Classification != nil {
		category = string(r.Classification.Category.Category)
		severity = string(r.Classification.Severity.Severity)
	}
	var source string
	if r.Ticket != nil {
		source = string(r.Ticket.Source)
	}

	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Action:* %s", action),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Matched:* %s", matchedID),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Score:* %.2f", score),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Category:* %s", category),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Severity:* %s", severity),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Source:* %s", source),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func evidenceBlock(r *pipeline.Result) map[string]any {
	var b strings.Builder
	if r.Dedup != nil {
		for _, m := range r.Dedup.Matches {
			target := m.CandidateTicketID
			if target == "" {
				target = m.IncidentID
			}
			fmt.Fprintf(&b, "• %s/%s → %s: %s\n", m.Kind, m.Tag, target, m.Reason)
		}
	}

	text := truncate(strings.TrimRight(b.String(), "\n"), maxEvidenceLen)
	if text == "" {
		text = "_No match evidence available._"
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Evidence*\n\n%s", text),
		},
	}
}

func contextBlock(r *pipeline.Result) map[string]any {
	ts := r.CompletedAt
	if ts.IsZero() {
		ts = r.CreatedAt
	}

	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("ticketflow • ticket %s • %s", r.TicketID, ts.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func dedupAction(r *pipeline.Result) dedup.Action {
	if r.Dedup == nil {
		return dedup.ActionNone
	}
	return r.Dedup.Action
}

func actionEmoji(action dedup.Action) string {
	switch action {
	case dedup.ActionLinkNotify:
		return "\U0001f534" // red circle, active incident
	case dedup.ActionAgentReview:
		return "\U0001f7e1" // yellow circle, human needed
	default:
		return "\U0001f7e2" // green circle, handled automatically
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
