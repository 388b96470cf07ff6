package dedup

import (
	"context"
	"fmt"
	"time"
)

// EmbedFunc computes an embedding vector for a piece of text. Implementations
// are typically network calls to an embedding service; the engine wraps every
// invocation with its configured callback timeout.
type EmbedFunc func(ctx context.Context, text string) ([]float64, error)

// PollActiveFunc returns the ids of currently active incidents. Poll mode is
// informational: it never links a ticket on its own, it only recognizes
// candidate tickets that are active-incident anchors.
type PollActiveFunc func(ctx context.Context) ([]string, error)

// LinkIncidentFunc resolves a ticket directly to an active incident id, or
// returns "" when none applies. A resolved id produces an incident signal
// independent of any candidate.
type LinkIncidentFunc func(ctx context.Context, ticketID, accountID, product string) (string, error)

// Callbacks are the optional external collaborators an Engine may invoke.
// All are best-effort: a failing or absent callback degrades the matching
// signal it feeds, it never fails a Check.
type Callbacks struct {
	Embed        EmbedFunc
	PollActive   PollActiveFunc
	LinkIncident LinkIncidentFunc
}

// resolveIncident runs the link-resolution callback under the callback
// timeout. Returns "" on absence, failure, or timeout.
func (e *Engine) resolveIncident(ctx context.Context, d *Descriptor) string {
	if !e.hasLink {
		return ""
	}

	cctx, cancel := context.WithTimeout(ctx, e.cfg.CallbackTimeout)
	defer cancel()

	start := time.Now()
	id, err := e.callbacks.LinkIncident(cctx, d.TicketID, d.AccountID, d.Product)
	e.hooks.onIncidentLookup("link", time.Since(start).Seconds(), err)
	if err != nil {
		e.logger.Warn(ctx, "incident link resolution failed, degrading to no incident",
			"ticket_id", d.TicketID, "error", err)
		return ""
	}
	return id
}

// activeIncidents runs the poll callback under the callback timeout. Returns
// the active set as a lookup map, empty on absence, failure, or timeout.
func (e *Engine) activeIncidents(ctx context.Context) map[string]bool {
	if !e.hasPoll {
		return nil
	}

	cctx, cancel := context.WithTimeout(ctx, e.cfg.CallbackTimeout)
	defer cancel()

	start := time.Now()
	ids, err := e.callbacks.PollActive(cctx)
	e.hooks.onIncidentLookup("poll", time.Since(start).Seconds(), err)
	if err != nil {
		e.logger.Warn(ctx, "active incident poll failed, degrading to no incident", "error", err)
		return nil
	}
	if len(ids) == 0 {
		return nil
	}

	active := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" {
			active[id] = true
		}
	}
	return active
}

// incidentSignal builds the signal for a resolved incident id.
func incidentSignal(incidentID, candidateTicketID string) Signal {
	reason := "linked to active incident " + incidentID
	if candidateTicketID != "" {
		reason = fmt.Sprintf("candidate %s is an active incident anchor", candidateTicketID)
	}
	return Signal{
		Kind:              KindIncident,
		Tag:               TagKnownIncident,
		CandidateTicketID: candidateTicketID,
		IncidentID:        incidentID,
		Reason:            reason,
	}
}
