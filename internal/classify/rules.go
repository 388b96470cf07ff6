package classify

import (
	"regexp"
	"strings"
)

// Keyword rules used when no LLM provider is configured or the provider
// fails. Phrases match as substrings; single words additionally match on
// word boundaries for a bonus.
var categoryKeywords = map[Category][]string{
	CategoryBillingPayments: {
		"bill", "invoice", "payment", "charge", "refund", "subscription",
		"pricing", "plan", "renewal", "credit card", "billing", "overcharge",
	},
	CategoryAccountAccess: {
		"login", "log in", "password", "reset password", "locked out",
		"cannot access", "access denied", "2fa", "mfa", "authenticate",
		"account locked", "forgot password",
	},
	CategoryTechnicalBug: {
		"error", "crash", "broken", "not working", "bug", "defect",
		"failed", "failure", "exception", "stack trace", "500", "404",
		"doesn't work", "won't load", "freeze", "timeout",
	},
	CategoryFeatureRequest: {
		"would be nice", "feature request", "can you add", "suggest",
		"enhancement", "improvement", "wish", "could we have",
		"please add", "support for", "ability to",
	},
	CategoryIntegrationIssue: {
		"api", "webhook", "integration", "connector", "sync", "third party",
		"oauth", "sso", "rest ", "endpoint", "connection failed",
	},
	CategorySecurityAbuse: {
		"security", "breach", "hack", "abuse", "compliance", "gdpr",
		"data leak", "unauthorized", "suspicious", "phishing",
	},
	CategoryGeneralInquiry: {
		"how do i", "how to", "documentation", "guide", "question",
		"what is", "where can i", "can you explain",
	},
}

var wordRe = regexp.MustCompile(`\w+`)

func ruleCategory(text string) CategoryResult {
	if strings.TrimSpace(text) == "" {
		return CategoryResult{Category: CategoryOther, Confidence: 0.0}
	}

	lower := strings.ToLower(text)
	words := make(map[string]bool)
	for _, w := range wordRe.FindAllString(lower, -1) {
		words[w] = true
	}

	var (
		best      Category
		bestScore float64
	)
	for cat, keywords := range categoryKeywords {
		var score float64
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				score += 1.0
			}
			if !strings.Contains(kw, " ") && words[kw] {
				score += 0.5
			}
		}
		// Tie-break on category name so the result does not depend on map
		// iteration order.
		if score > bestScore || (score == bestScore && score > 0 && cat < best) {
			best, bestScore = cat, score
		}
	}

	if bestScore == 0 {
		return CategoryResult{Category: CategoryOther, Confidence: 0.3}
	}

	conf := 0.5 + bestScore*0.15
	if conf > 0.95 {
		conf = 0.95
	}
	return CategoryResult{Category: best, Confidence: conf}
}

var severityP1Patterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(outage|down|production down|system down|service down)\b`),
	regexp.MustCompile(`(?i)\b(cannot access production|prod (is )?down)\b`),
	regexp.MustCompile(`(?i)\b(critical|emergency|urgent)\s+(security|breach)\b`),
	regexp.MustCompile(`(?i)\b(everyone|all users)\s+(affected|cannot)\b`),
}

var severityP2Patterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(major\s+)?(degradation|outage)\b`),
	regexp.MustCompile(`(?i)\b(payment\s+)?(failure|failed|broken)\s+(for\s+)?(all|everyone)\b`),
	regexp.MustCompile(`(?i)\b(revenue\s+impact|revenue\s+at\s+risk)\b`),
	regexp.MustCompile(`(?i)\b(core\s+feature\s+broken|critical\s+feature)\b`),
	regexp.MustCompile(`(?i)\b(sla\s+breach|sla\s+at\s+risk)\b`),
}

var severityP4Patterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(feature\s+request|enhancement|improvement)\b`),
	regexp.MustCompile(`(?i)\b(how\s+to|how\s+do\s+i)\b`),
	regexp.MustCompile(`(?i)\b(would\s+be\s+nice|suggestion)\b`),
}

func ruleSeverity(text string) SeverityResult {
	if strings.TrimSpace(text) == "" {
		return SeverityResult{Severity: SeverityP4, Reason: "empty ticket"}
	}

	for _, p := range severityP1Patterns {
		if p.MatchString(text) {
			return SeverityResult{
				Severity: SeverityP1,
				Reason:   "detected critical, outage, or system-down language",
			}
		}
	}
	for _, p := range severityP2Patterns {
		if p.MatchString(text) {
			return SeverityResult{
				Severity: SeverityP2,
				Reason:   "detected major degradation or high-impact signal",
			}
		}
	}
	for _, p := range severityP4Patterns {
		if p.MatchString(text) {
			return SeverityResult{
				Severity: SeverityP4,
				Reason:   "detected low-priority or request-type language",
			}
		}
	}
	return SeverityResult{
		Severity: SeverityP3,
		Reason:   "standard issue, no critical or low-priority signals",
	}
}
