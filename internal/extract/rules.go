package extract

import (
	"regexp"
	"strings"
)

// Regex fallback used when no model is configured or the model call fails.
// Heuristics only; the model path produces richer fields.

type envPattern struct {
	re  *regexp.Regexp
	env string
}

var envPatterns = []envPattern{
	{regexp.MustCompile(`(?i)\b(production|prod)\b`), "Production"},
	{regexp.MustCompile(`(?i)\b(staging|stage)\b`), "Staging"},
	{regexp.MustCompile(`(?i)\b(dev|development|local)\b`), "Development"},
	{regexp.MustCompile(`(?i)\b(test|qa)\s+(env|environment)\b`), "Staging"},
}

var urgencyHighPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(urgent|critical|asap|immediately|emergency|blocking|down)\b`),
	regexp.MustCompile(`(?i)\b(cannot|can't|unable to)\s+(access|login|use)\b`),
}

var urgencyLowPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(when you can|no rush|low priority|nice to have)\b`),
}

var errorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(\d{3}\s+[\w\s]+?(?:\s+error)?)(?:[.\n]|$)`),
	regexp.MustCompile(`(?i)\b(Error:\s*[^\n.]+)`),
	regexp.MustCompile(`(?i)\b(Exception(?:\s+in)?[^\n.]+)`),
	regexp.MustCompile(`\b([A-Z][a-z]+(?:Error|Exception)\s*:?\s*[^\n.]*)`),
	regexp.MustCompile(`(?i)\b(failed\s+(?:with|to)\s+[^\n.]+)`),
}

var timestampRe = regexp.MustCompile(`(?i)\b(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4}|(?:at|since|on)\s+[\w\d:]+)\b`)

var stepsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)steps?\s*(?:to\s+reproduce|:)\s*([^\n]+(?:\n[^\n]+)*)`),
	regexp.MustCompile(`(?is)how\s+to\s+reproduce\s*:?\s*([^\n]+(?:\n[^\n]+)*)`),
}

var attachmentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:attached|attachment|see\s+attached)\s*(?:file)?\s*:?\s*([^\n.,]+)`),
	regexp.MustCompile(`(?i)(\w+\.(?:pdf|log|csv|png|txt|xlsx?))\b`),
}

const (
	maxErrorLen      = 500
	maxStepsLen      = 1000
	maxAttachmentLen = 200
	maxAttachments   = 20
	maxPromptChars   = 6000
	extractionTokens = 1024
)

func ruleExtract(text string) Fields {
	var f Fields
	if text == "" {
		return f
	}

	for _, p := range envPatterns {
		if p.re.MatchString(text) {
			f.Environment = p.env
			break
		}
	}

	for _, p := range urgencyHighPatterns {
		if p.MatchString(text) {
			f.Urgency = "High"
			break
		}
	}
	if f.Urgency == "" {
		for _, p := range urgencyLowPatterns {
			if p.MatchString(text) {
				f.Urgency = "Low"
				break
			}
		}
	}
	if f.Urgency == "" {
		f.Urgency = "Medium"
	}

	for _, p := range errorPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			f.ErrorMessage = truncate(strings.TrimSpace(m[1]), maxErrorLen)
			break
		}
	}

	if m := timestampRe.FindStringSubmatch(text); m != nil {
		f.Timestamp = strings.TrimSpace(m[1])
	}

	for _, p := range stepsPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			f.StepsToReproduce = truncate(strings.TrimSpace(m[1]), maxStepsLen)
			break
		}
	}

	seen := make(map[string]bool)
	for _, p := range attachmentPatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			a := truncate(strings.TrimSpace(m[1]), maxAttachmentLen)
			if a == "" || seen[a] {
				continue
			}
			seen[a] = true
			f.AttachmentsMentioned = append(f.AttachmentsMentioned, a)
			if len(f.AttachmentsMentioned) >= maxAttachments {
				return f
			}
		}
	}

	return f
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
