// Package ingest normalizes incoming support requests from every entry
// channel into the canonical ticket shape the rest of the pipeline consumes.
package ingest

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/ticketflow/internal/ticket"
)

// ErrInvalid marks submissions that fail validation. Callers can distinguish
// caller errors from infrastructure failures with errors.Is.
var ErrInvalid = errors.New("invalid submission")

// Submission is the raw payload a source adapter hands to ingestion.
type Submission struct {
	Source          ticket.Source     `json:"source"`
	RawText         string            `json:"raw_text"`
	Subject         string            `json:"subject,omitempty"`
	SourceID        string            `json:"source_id,omitempty"`
	Customer        ticket.Customer   `json:"customer,omitempty"`
	ReceivedAt      time.Time         `json:"received_at,omitempty"`
	Attachments     []string          `json:"attachments,omitempty"`
	ChannelMetadata map[string]string `json:"channel_metadata,omitempty"`
}

// Validate checks the submission is processable.
func (s *Submission) Validate() error {
	if !s.Source.Valid() {
		return fmt.Errorf("unknown source %q", s.Source)
	}
	if strings.TrimSpace(s.RawText) == "" {
		return fmt.Errorf("raw_text is required")
	}
	return nil
}

// NewTicketID generates a unique ticket id, stable for dedupe and linking.
func NewTicketID() string {
	return "TKT-" + ulid.Make().String()
}

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`[ \t]+`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// CleanText normalizes raw content for classification and extraction: HTML
// tags stripped, entities decoded for the common cases, runs of spaces and
// blank lines collapsed.
func CleanText(raw string) string {
	if raw == "" {
		return ""
	}
	text := htmlTagRe.ReplaceAllString(raw, " ")
	text = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	).Replace(text)
	text = whitespaceRe.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	text = strings.Join(lines, "\n")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Normalize validates a submission and builds the canonical ticket. A zero
// ReceivedAt is stamped with the current time.
func Normalize(s *Submission) (*ticket.Ticket, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	receivedAt := s.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	return &ticket.Ticket{
		TicketID:        NewTicketID(),
		Source:          s.Source,
		RawText:         s.RawText,
		CleanedText:     CleanText(s.RawText),
		Subject:         strings.TrimSpace(s.Subject),
		Customer:        s.Customer,
		ReceivedAt:      receivedAt,
		SourceID:        s.SourceID,
		Attachments:     s.Attachments,
		ChannelMetadata: s.ChannelMetadata,
	}, nil
}
