// Package extract pulls the required support fields out of ticket text,
// using an LLM when one is configured and regex heuristics otherwise, then
// merges customer metadata carried by the ticket itself.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/ticketflow/internal/llm"
	"github.com/linnemanlabs/ticketflow/internal/ticket"
)

const extractionPrompt = `Extract the following fields from the support ticket.

Fields:
- product: Product or module name (e.g. API Gateway, Dashboard, Mobile app)
- issue_type: Brief issue type (e.g. Authentication failure, Timeout, Bug)
- error_message: Exact error message or code if mentioned (e.g. 401 invalid token)
- environment: One of Production, Staging, Development, or empty if unknown
- urgency: One of High, Medium, Low based on wording in the ticket
- timestamp: Any date/time mentioned in the ticket (e.g. "since 2pm", "2024-01-15")
- steps_to_reproduce: Summary of steps to reproduce the issue, if described
- attachments_mentioned: List of any files or attachments the customer says they attached or will attach

Ticket:
%s

Return valid JSON only, no markdown. Use null for missing fields. For attachments_mentioned use a list of strings.
Example:
{ "product": "API Gateway", "issue_type": "Authentication failure", "error_message": "401 invalid token", "environment": "Production", "urgency": "High", "timestamp": null, "steps_to_reproduce": null, "attachments_mentioned": [] }`

// Extractor runs field extraction. The provider is optional; without one, or
// when a model call fails, the regex fallback produces a degraded result.
type Extractor struct {
	provider llm.Provider
	logger   log.Logger
}

// New builds an Extractor. provider may be nil for rules-only operation.
func New(provider llm.Provider, logger log.Logger) *Extractor {
	if logger == nil {
		logger = log.Nop()
	}
	return &Extractor{provider: provider, logger: logger}
}

// Extract pulls required fields from one ticket and merges the ticket's own
// customer metadata into them. It never fails: provider errors degrade to the
// regex fallback with Degraded set.
func (e *Extractor) Extract(ctx context.Context, t *ticket.Ticket) Result {
	text := t.CleanedText
	if t.Subject != "" {
		text = strings.TrimSpace(t.Subject + "\n\n" + text)
	}
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}

	fields, degraded := e.extractFields(ctx, t.TicketID, text)
	mergeCustomer(&fields, t)

	return Result{TicketID: t.TicketID, Fields: fields, Degraded: degraded}
}

func (e *Extractor) extractFields(ctx context.Context, ticketID, text string) (Fields, bool) {
	if e.provider == nil {
		return ruleExtract(text), false
	}

	resp, err := e.provider.Send(ctx, &llm.Request{
		MaxTokens: extractionTokens,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: fmt.Sprintf(extractionPrompt, text)}},
	})
	if err != nil {
		e.logger.Warn(ctx, "extraction model call failed, falling back to rules",
			"ticket_id", ticketID, "error", err)
		return ruleExtract(text), true
	}

	fields, ok := parseFields(resp.Text)
	if !ok {
		e.logger.Warn(ctx, "unparseable extraction response, falling back to rules",
			"ticket_id", ticketID)
		return ruleExtract(text), true
	}
	return fields, false
}

var (
	fenceOpenRe  = regexp.MustCompile("^```\\w*\\n?")
	fenceCloseRe = regexp.MustCompile("\\n?```\\s*$")
)

// parseFields parses the model's JSON response. String coercion is tolerant:
// whitespace is trimmed, nulls become empty, and the attachment list is
// capped.
func parseFields(raw string) (Fields, bool) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = fenceOpenRe.ReplaceAllString(raw, "")
		raw = fenceCloseRe.ReplaceAllString(raw, "")
	}

	var data struct {
		Product              string   `json:"product"`
		IssueType            string   `json:"issue_type"`
		ErrorMessage         string   `json:"error_message"`
		Environment          string   `json:"environment"`
		Urgency              string   `json:"urgency"`
		Timestamp            string   `json:"timestamp"`
		StepsToReproduce     string   `json:"steps_to_reproduce"`
		AttachmentsMentioned []string `json:"attachments_mentioned"`
	}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return Fields{}, false
	}

	f := Fields{
		Product:          strings.TrimSpace(data.Product),
		IssueType:        strings.TrimSpace(data.IssueType),
		ErrorMessage:     strings.TrimSpace(data.ErrorMessage),
		Environment:      strings.TrimSpace(data.Environment),
		Urgency:          strings.TrimSpace(data.Urgency),
		Timestamp:        strings.TrimSpace(data.Timestamp),
		StepsToReproduce: strings.TrimSpace(data.StepsToReproduce),
	}
	for _, a := range data.AttachmentsMentioned {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		f.AttachmentsMentioned = append(f.AttachmentsMentioned, a)
		if len(f.AttachmentsMentioned) >= maxAttachments {
			break
		}
	}
	return f, true
}

// mergeCustomer fills customer-sourced fields from the ticket's metadata when
// extraction left them empty, and folds structured attachments into the
// mentioned list.
func mergeCustomer(f *Fields, t *ticket.Ticket) {
	if f.CustomerName == "" {
		f.CustomerName = t.Customer.Name
	}
	if f.Company == "" {
		f.Company = t.Customer.Company
	}
	if f.AccountID == "" {
		f.AccountID = t.Customer.AccountID
	}

	if len(t.Attachments) == 0 {
		return
	}
	seen := make(map[string]bool, len(f.AttachmentsMentioned))
	for _, a := range f.AttachmentsMentioned {
		seen[a] = true
	}
	for _, a := range t.Attachments {
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		f.AttachmentsMentioned = append(f.AttachmentsMentioned, a)
		if len(f.AttachmentsMentioned) >= maxAttachments {
			return
		}
	}
}
