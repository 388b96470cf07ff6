package classify

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fenceOpenRe  = regexp.MustCompile("^```\\w*\\n?")
	fenceCloseRe = regexp.MustCompile("\\n?```\\s*$")
)

// stripFences removes a surrounding markdown code fence if the model ignored
// the no-markdown instruction.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = fenceOpenRe.ReplaceAllString(raw, "")
		raw = fenceCloseRe.ReplaceAllString(raw, "")
	}
	return raw
}

// categoryAliases maps loose model output onto the canonical taxonomy.
var categoryAliases = map[string]Category{
	"billing":         CategoryBillingPayments,
	"payments":        CategoryBillingPayments,
	"account access":  CategoryAccountAccess,
	"bug":             CategoryTechnicalBug,
	"technical bug":   CategoryTechnicalBug,
	"feature request": CategoryFeatureRequest,
	"integration":     CategoryIntegrationIssue,
	"security":        CategorySecurityAbuse,
	"abuse":           CategorySecurityAbuse,
	"general inquiry": CategoryGeneralInquiry,
}

// parseCategory parses the model's JSON category response. Returns false when
// the payload is not usable, in which case the caller falls back to rules.
func parseCategory(raw string) (CategoryResult, bool) {
	var data struct {
		Category   string   `json:"category"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &data); err != nil {
		return CategoryResult{}, false
	}

	name := strings.ToLower(strings.TrimSpace(data.Category))
	cat := Category(strings.ReplaceAll(name, " ", "_"))
	if !cat.Valid() {
		if alias, ok := categoryAliases[name]; ok {
			cat = alias
		} else {
			cat = CategoryOther
		}
	}

	conf := 0.8
	if data.Confidence != nil {
		conf = *data.Confidence
	}
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return CategoryResult{Category: cat, Confidence: conf}, true
}

// parseSeverity parses the model's JSON severity response. Unknown levels
// settle on P3.
func parseSeverity(raw string) (SeverityResult, bool) {
	var data struct {
		Severity string `json:"severity"`
		Reason   string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &data); err != nil {
		return SeverityResult{}, false
	}

	sev := Severity(strings.ToUpper(strings.TrimSpace(data.Severity)))
	if !sev.Valid() {
		sev = SeverityP3
	}
	reason := strings.TrimSpace(data.Reason)
	if reason == "" {
		reason = "model-assigned"
	}
	return SeverityResult{Severity: sev, Reason: reason}, true
}
