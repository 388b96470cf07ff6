package pipeline

import (
	"time"

	"github.com/linnemanlabs/ticketflow/internal/classify"
	"github.com/linnemanlabs/ticketflow/internal/dedup"
	"github.com/linnemanlabs/ticketflow/internal/extract"
	"github.com/linnemanlabs/ticketflow/internal/ticket"
)

// Status tracks where a ticket is in the triage pipeline.
type Status string

const (
	// StatusPending means ingested, not yet processed
	StatusPending Status = "pending"

	// StatusInProgress means currently being processed
	StatusInProgress Status = "in_progress"

	// StatusComplete means all stages finished
	StatusComplete Status = "complete"

	// StatusFailed means processing aborted with errors
	StatusFailed Status = "failed"
)

// Result is the full pipeline outcome for one ticket.
type Result struct {
	TicketID string         `json:"ticket_id"`
	Status   Status         `json:"status"`
	Ticket   *ticket.Ticket `json:"ticket"`

	Classification *classify.Result `json:"classification,omitempty"`
	Extraction     *extract.Result  `json:"extraction,omitempty"`
	Dedup          *dedup.Result    `json:"dedup,omitempty"`

	// Embedding is the vector computed for the ticket's cleaned text, kept so
	// later tickets can score against it without recomputation.
	Embedding []float64 `json:"embedding,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	Duration    float64   `json:"duration_seconds,omitempty"`
}

// Candidate projects a processed result into the shape duplicate detection
// scores against.
func (r *Result) Candidate() dedup.Candidate {
	c := dedup.Candidate{
		TicketID:  r.TicketID,
		Embedding: r.Embedding,
	}
	if r.Ticket != nil {
		c.AccountID = r.Ticket.Customer.AccountID
		c.ReceivedAt = r.Ticket.ReceivedAt
		c.CleanedText = r.Ticket.CleanedText
	}
	if r.Extraction != nil {
		if c.AccountID == "" {
			c.AccountID = r.Extraction.Fields.AccountID
		}
		c.ErrorMessage = r.Extraction.Fields.ErrorMessage
	}
	return c
}
