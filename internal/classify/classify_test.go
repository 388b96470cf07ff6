package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/linnemanlabs/ticketflow/internal/llm"
	"github.com/linnemanlabs/ticketflow/internal/ticket"
)

// scriptedProvider returns canned responses in order, or a fixed error.
type scriptedProvider struct {
	responses []string
	err       error
	calls     int
}

func (p *scriptedProvider) Send(_ context.Context, _ *llm.Request) (*llm.Response, error) {
	if p.err != nil {
		return nil, p.err
	}
	i := p.calls
	p.calls++
	if i >= len(p.responses) {
		i = len(p.responses) - 1
	}
	return &llm.Response{Text: p.responses[i], StopReason: llm.StopEnd}, nil
}

func testTicket(subject, text string) *ticket.Ticket {
	return &ticket.Ticket{
		TicketID:    "TKT-1",
		Source:      ticket.SourceEmail,
		Subject:     subject,
		CleanedText: text,
	}
}

func TestClassify_RuleBasedCategories(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want Category
	}{
		{"billing", "I was double charged on my last invoice and need a refund", CategoryBillingPayments},
		{"account access", "I am locked out and my password reset link does not arrive", CategoryAccountAccess},
		{"technical bug", "the dashboard crashes with a 500 error and a stack trace", CategoryTechnicalBug},
		{"feature request", "it would be nice if you could add dark mode, please add it", CategoryFeatureRequest},
		{"integration", "our webhook sync to the third party connector stopped", CategoryIntegrationIssue},
		{"security", "we saw unauthorized access and a possible data leak", CategorySecurityAbuse},
		{"general inquiry", "how do i export my data, is there documentation", CategoryGeneralInquiry},
		{"no keywords", "zzz qqq xyzzy", CategoryOther},
	}

	c := New(nil, 0, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := c.Classify(context.Background(), testTicket("", tt.text))
			if res.Category.Category != tt.want {
				t.Errorf("category = %q, want %q", res.Category.Category, tt.want)
			}
		})
	}
}

func TestClassify_RuleBasedSeverity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want Severity
	}{
		{"outage is P1", "production down for every customer since 9am", SeverityP1},
		{"degradation is P2", "we are seeing major degradation on uploads", SeverityP2},
		{"plain error is P3", "there is an error when saving a draft", SeverityP3},
		{"feature request is P4", "feature request: keyboard shortcuts", SeverityP4},
		{"empty is P4", "", SeverityP4},
	}

	c := New(nil, 0, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := c.Classify(context.Background(), testTicket("", tt.text))
			if res.Severity.Severity != tt.want {
				t.Errorf("severity = %q, want %q", res.Severity.Severity, tt.want)
			}
			if res.Severity.Reason == "" {
				t.Error("expected a severity reason")
			}
		})
	}
}

func TestClassify_UsesProviderResponses(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{responses: []string{
		`{"category": "billing_payments", "confidence": 0.93}`,
		`{"severity": "P2", "reason": "payment failures for all customers"}`,
	}}
	c := New(p, 0, nil)

	res := c.Classify(context.Background(), testTicket("Billing", "charges failing"))

	if res.Category.Category != CategoryBillingPayments {
		t.Errorf("category = %q, want %q", res.Category.Category, CategoryBillingPayments)
	}
	if res.Category.Confidence != 0.93 {
		t.Errorf("confidence = %v, want 0.93", res.Category.Confidence)
	}
	if res.Severity.Severity != SeverityP2 {
		t.Errorf("severity = %q, want %q", res.Severity.Severity, SeverityP2)
	}
	if res.NeedsHumanReview {
		t.Error("confidence 0.93 above threshold should not need review")
	}
}

func TestClassify_LowConfidenceNeedsReview(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{responses: []string{
		`{"category": "other", "confidence": 0.4}`,
		`{"severity": "P3", "reason": "unclear"}`,
	}}
	c := New(p, 0.8, nil)

	res := c.Classify(context.Background(), testTicket("", "something vague"))

	if !res.NeedsHumanReview {
		t.Error("confidence 0.4 below threshold 0.8 should need review")
	}
}

func TestClassify_ProviderFailureFallsBackToRules(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{err: errors.New("model unavailable")}
	c := New(p, 0, nil)

	res := c.Classify(context.Background(), testTicket("", "cannot log in, password reset broken"))

	if res.Category.Category != CategoryAccountAccess {
		t.Errorf("category = %q, want rule-based %q", res.Category.Category, CategoryAccountAccess)
	}
}

func TestClassify_GarbageResponseFallsBackToRules(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{responses: []string{"I think this is about billing."}}
	c := New(p, 0, nil)

	res := c.Classify(context.Background(), testTicket("", "refund for last invoice"))

	if res.Category.Category != CategoryBillingPayments {
		t.Errorf("category = %q, want rule-based %q", res.Category.Category, CategoryBillingPayments)
	}
}

func TestParseCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      string
		wantOK   bool
		wantCat  Category
		wantConf float64
	}{
		{"plain json", `{"category":"technical_bug","confidence":0.9}`, true, CategoryTechnicalBug, 0.9},
		{"fenced json", "```json\n{\"category\":\"billing_payments\",\"confidence\":0.7}\n```", true, CategoryBillingPayments, 0.7},
		{"alias", `{"category":"billing","confidence":0.6}`, true, CategoryBillingPayments, 0.6},
		{"spaced name", `{"category":"Feature Request","confidence":0.6}`, true, CategoryFeatureRequest, 0.6},
		{"unknown category", `{"category":"weather","confidence":0.6}`, true, CategoryOther, 0.6},
		{"missing confidence defaults", `{"category":"other"}`, true, CategoryOther, 0.8},
		{"confidence clamped", `{"category":"other","confidence":1.7}`, true, CategoryOther, 1.0},
		{"not json", "definitely billing", false, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, ok := parseCategory(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if res.Category != tt.wantCat {
				t.Errorf("category = %q, want %q", res.Category, tt.wantCat)
			}
			if res.Confidence != tt.wantConf {
				t.Errorf("confidence = %v, want %v", res.Confidence, tt.wantConf)
			}
		})
	}
}

func TestParseSeverity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantOK  bool
		wantSev Severity
	}{
		{"plain", `{"severity":"P1","reason":"prod down"}`, true, SeverityP1},
		{"lowercase", `{"severity":"p2","reason":"degraded"}`, true, SeverityP2},
		{"unknown settles on P3", `{"severity":"P9","reason":"?"}`, true, SeverityP3},
		{"not json", "P1 probably", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, ok := parseSeverity(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if res.Severity != tt.wantSev {
				t.Errorf("severity = %q, want %q", res.Severity, tt.wantSev)
			}
		})
	}
}
