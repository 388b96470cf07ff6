package dedup

import (
	"context"

	"github.com/linnemanlabs/ticketflow/internal/extract"
	"github.com/linnemanlabs/ticketflow/internal/ticket"
)

// CheckTicket adapts the pipeline's richer ticket and extraction shapes onto
// the primitive Check call. This is the only place dedup depends on upstream
// types; everything else works on Descriptor and Candidate.
//
// The account id prefers the ticket's customer metadata and falls back to the
// extracted fields; error message and product come from extraction only.
// currentEmbedding may be nil, in which case the engine computes one on
// demand when an embed callback is configured.
func (e *Engine) CheckTicket(ctx context.Context, t *ticket.Ticket, ex *extract.Result, currentEmbedding []float64, candidates []Candidate) Result {
	d := Descriptor{
		Embedding: currentEmbedding,
	}
	if t != nil {
		d.TicketID = t.TicketID
		d.AccountID = t.Customer.AccountID
		d.ReceivedAt = t.ReceivedAt
		d.CleanedText = t.CleanedText
	}
	if ex != nil {
		if d.AccountID == "" {
			d.AccountID = ex.Fields.AccountID
		}
		d.ErrorMessage = ex.Fields.ErrorMessage
		d.Product = ex.Fields.Product
	}
	return e.Check(ctx, d, candidates)
}
