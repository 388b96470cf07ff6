package ticketapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/ticketflow/internal/ingest"
)

// submitResponse is the body returned for an accepted or skipped submission.
type submitResponse struct {
	TicketID string `json:"ticket_id"`
	Skipped  bool   `json:"skipped,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func (a *API) handleSubmitTicket(w http.ResponseWriter, r *http.Request) {
	var sub ingest.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("ticketflow.ticket.source", string(sub.Source)))

	sr, err := a.svc.Submit(r.Context(), &sub)
	if err != nil {
		if errors.Is(err, ingest.ErrInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.logger.Error(r.Context(), err, "failed to submit ticket", "source", sub.Source)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	span.SetAttributes(attribute.String("ticketflow.ticket.id", sr.TicketID))

	w.Header().Set("Content-Type", "application/json")
	if sr.Skipped {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusAccepted)
	}
	_ = json.NewEncoder(w).Encode(submitResponse{
		TicketID: sr.TicketID,
		Skipped:  sr.Skipped,
		Reason:   sr.Reason,
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
