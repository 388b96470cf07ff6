package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/ticketflow/internal/llm"
	"github.com/linnemanlabs/ticketflow/internal/ticket"
)

const (
	DefaultConfidenceThreshold = 0.8

	maxPromptChars = 4000
	maxTokens      = 512
)

const categoryPrompt = `Classify the support ticket into exactly one category.

Categories:
- billing_payments: Billing, payments, invoices, refunds, subscription, pricing
- account_access: Login, password, 2FA, account locked, access denied
- technical_bug: Errors, crashes, broken feature, defect, not working
- feature_request: New feature, enhancement, improvement idea
- integration_issue: API, webhook, third-party, connector, sync issues
- security_abuse: Security concern, abuse, compliance, data breach
- general_inquiry: How-to, question, documentation, general support
- other: Anything that does not fit above

Ticket:
%s

Return valid JSON only, no markdown:
{ "category": "<one of the category values above>", "confidence": <number between 0 and 1> }`

const severityPrompt = `Assign a severity level to this support ticket.

Severity scale:
- P1: Outage / critical - production down, system unavailable, critical security - Immediate
- P2: Major degradation - major feature broken, significant impact - <4h
- P3: Standard issue - normal bug or request - <24h
- P4: Low / request - minor, enhancement, backlog - Backlog

Consider: system outage, payment failure, security breach, VIP/revenue impact, SLA risk.

Ticket:
%s

Return valid JSON only, no markdown:
{ "severity": "P1" or "P2" or "P3" or "P4", "reason": "<short reason>" }`

// Classifier assigns category and severity. The provider is optional; without
// one, or when a model call fails or returns garbage, keyword rules decide.
type Classifier struct {
	provider  llm.Provider
	threshold float64
	logger    log.Logger
}

// New builds a Classifier. provider may be nil for rules-only operation. A
// threshold of 0 means DefaultConfidenceThreshold.
func New(provider llm.Provider, confidenceThreshold float64, logger log.Logger) *Classifier {
	if confidenceThreshold == 0 {
		confidenceThreshold = DefaultConfidenceThreshold
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Classifier{
		provider:  provider,
		threshold: confidenceThreshold,
		logger:    logger,
	}
}

// Classify assigns category and severity to one ticket. It never fails: a
// provider error degrades to the rule-based result.
func (c *Classifier) Classify(ctx context.Context, t *ticket.Ticket) Result {
	text := classificationText(t)

	cat := c.classifyCategory(ctx, t.TicketID, text)
	sev := c.classifySeverity(ctx, t.TicketID, text)

	return Result{
		TicketID:         t.TicketID,
		Category:         cat,
		Severity:         sev,
		NeedsHumanReview: cat.Confidence < c.threshold,
	}
}

func (c *Classifier) classifyCategory(ctx context.Context, ticketID, text string) CategoryResult {
	if c.provider != nil {
		raw, err := c.complete(ctx, fmt.Sprintf(categoryPrompt, text))
		if err != nil {
			c.logger.Warn(ctx, "category model call failed, falling back to rules",
				"ticket_id", ticketID, "error", err)
		} else if res, ok := parseCategory(raw); ok {
			return res
		} else {
			c.logger.Warn(ctx, "unparseable category response, falling back to rules",
				"ticket_id", ticketID)
		}
	}
	return ruleCategory(text)
}

func (c *Classifier) classifySeverity(ctx context.Context, ticketID, text string) SeverityResult {
	if c.provider != nil {
		raw, err := c.complete(ctx, fmt.Sprintf(severityPrompt, text))
		if err != nil {
			c.logger.Warn(ctx, "severity model call failed, falling back to rules",
				"ticket_id", ticketID, "error", err)
		} else if res, ok := parseSeverity(raw); ok {
			return res
		} else {
			c.logger.Warn(ctx, "unparseable severity response, falling back to rules",
				"ticket_id", ticketID)
		}
	}
	return ruleSeverity(text)
}

func (c *Classifier) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.provider.Send(ctx, &llm.Request{
		MaxTokens: maxTokens,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// classificationText joins subject and cleaned body, truncated to the prompt
// budget.
func classificationText(t *ticket.Ticket) string {
	text := t.CleanedText
	if t.Subject != "" {
		text = strings.TrimSpace(t.Subject + "\n\n" + text)
	}
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}
	return text
}
