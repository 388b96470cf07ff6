// Package classify assigns a category and a severity to ingested tickets,
// using an LLM when one is configured and keyword rules otherwise.
package classify

// Category is the ticket taxonomy.
type Category string

const (
	CategoryBillingPayments  Category = "billing_payments"
	CategoryAccountAccess    Category = "account_access"
	CategoryTechnicalBug     Category = "technical_bug"
	CategoryFeatureRequest   Category = "feature_request"
	CategoryIntegrationIssue Category = "integration_issue"
	CategorySecurityAbuse    Category = "security_abuse"
	CategoryGeneralInquiry   Category = "general_inquiry"
	CategoryOther            Category = "other"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryBillingPayments, CategoryAccountAccess, CategoryTechnicalBug,
		CategoryFeatureRequest, CategoryIntegrationIssue, CategorySecurityAbuse,
		CategoryGeneralInquiry, CategoryOther:
		return true
	}
	return false
}

// Severity is the priority scale. P1 is immediate, P4 is backlog.
type Severity string

const (
	SeverityP1 Severity = "P1" // outage / critical, immediate
	SeverityP2 Severity = "P2" // major degradation, <4h
	SeverityP3 Severity = "P3" // standard issue, <24h
	SeverityP4 Severity = "P4" // low / request, backlog
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityP1, SeverityP2, SeverityP3, SeverityP4:
		return true
	}
	return false
}

// CategoryResult is the category decision with its confidence in [0, 1].
type CategoryResult struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
}

// SeverityResult is the severity decision with a short reason.
type SeverityResult struct {
	Severity Severity `json:"severity"`
	Reason   string   `json:"reason"`
}

// Result is the full classification for one ticket. NeedsHumanReview is set
// when the category confidence falls below the configured threshold.
type Result struct {
	TicketID         string         `json:"ticket_id"`
	Category         CategoryResult `json:"category"`
	Severity         SeverityResult `json:"severity"`
	NeedsHumanReview bool           `json:"needs_human_review"`
}
