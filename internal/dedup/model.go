package dedup

import "time"

// SignalKind identifies which matcher produced a duplicate signal.
type SignalKind string

const (
	// KindMetadata means same account + same error string + same timeframe.
	KindMetadata SignalKind = "metadata"

	// KindSemantic means embedding cosine similarity above a threshold.
	KindSemantic SignalKind = "semantic"

	// KindIncident means the ticket was linked to a known active incident.
	KindIncident SignalKind = "incident"
)

// Tag classifies the strength of a signal.
type Tag string

const (
	// TagExact drives auto-merge (metadata match or similarity >= exact threshold).
	TagExact Tag = "exact"

	// TagLikely drives agent review (similarity in [likely, exact)).
	TagLikely Tag = "likely"

	// TagKnownIncident drives link + notify.
	TagKnownIncident Tag = "known_incident"
)

// Action is the recommended deduplication action.
type Action string

const (
	// ActionAutoMerge merges into the matched ticket without human involvement.
	ActionAutoMerge Action = "auto_merge"

	// ActionAgentReview queues the pair for a human to confirm.
	ActionAgentReview Action = "agent_review"

	// ActionLinkNotify links the ticket to an active incident and notifies.
	ActionLinkNotify Action = "link_notify"

	// ActionNone means no duplicate was found.
	ActionNone Action = "none"
)

// Descriptor is the incoming ticket as seen by dedup. Immutable for the
// duration of one Check call.
type Descriptor struct {
	TicketID     string
	AccountID    string
	ErrorMessage string
	Product      string
	ReceivedAt   time.Time
	CleanedText  string

	// Embedding is the ticket's own vector, if the caller precomputed one.
	// When nil and an embed callback is configured, the engine computes it
	// on demand from CleanedText.
	Embedding []float64
}

// Candidate is a read-only snapshot of a previously processed ticket. The
// engine borrows it for one Check call and never mutates it.
type Candidate struct {
	TicketID     string
	AccountID    string
	ErrorMessage string
	ReceivedAt   time.Time
	CleanedText  string

	// Embedding is the candidate's precomputed vector, if any. On-demand
	// embeddings computed during a Check are cached per call, never written
	// back here.
	Embedding []float64
}

// Signal is one piece of duplicate evidence from a single matcher.
type Signal struct {
	Kind SignalKind `json:"kind"`
	Tag  Tag        `json:"tag"`

	// Score is cosine similarity for semantic signals and 1.0 for metadata
	// signals. Incident signals carry no score.
	Score float64 `json:"score,omitempty"`

	// CandidateTicketID is the matched candidate. Empty for incident signals,
	// which may match no prior ticket at all.
	CandidateTicketID string `json:"candidate_ticket_id,omitempty"`

	// IncidentID is set on incident signals only.
	IncidentID string `json:"incident_id,omitempty"`

	Reason string `json:"reason"`

	// candidateReceivedAt breaks confidence ties toward the earliest
	// candidate. Not serialized; resolution detail only.
	candidateReceivedAt time.Time
}

// confidence orders signals for resolution: metadata counts as 1.0, semantic
// as its cosine score, incident is handled out of band (always first).
func (s *Signal) confidence() float64 {
	if s.Kind == KindMetadata {
		return 1.0
	}
	return s.Score
}

// Result is the outcome of one deduplication check.
type Result struct {
	TicketID string `json:"ticket_id"`
	Action   Action `json:"action"`

	// IsDuplicate is true exactly when Action != ActionNone.
	IsDuplicate bool `json:"is_duplicate"`

	// Matches lists every discovered signal, highest confidence first, so
	// callers can audit secondary evidence. Empty when Action is ActionNone.
	Matches []Signal `json:"matches,omitempty"`

	// LinkedIncidentID is set exactly when Action is ActionLinkNotify.
	LinkedIncidentID string `json:"linked_incident_id,omitempty"`
}
