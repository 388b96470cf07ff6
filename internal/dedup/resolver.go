package dedup

import "sort"

// resolve folds every gathered signal into one Result. Pure and
// deterministic: same signals in, same result out, regardless of the order
// signals were discovered in.
//
// Priority: incident > metadata > semantic-exact > semantic-likely. Among
// metadata/semantic signals the single highest-confidence one picks the
// action; ties prefer metadata over semantic, then the candidate with the
// earlier received_at, then the lexically smaller candidate id.
func resolve(ticketID string, signals []Signal) Result {
	res := Result{
		TicketID: ticketID,
		Action:   ActionNone,
	}
	if len(signals) == 0 {
		return res
	}

	ordered := make([]Signal, len(signals))
	copy(ordered, signals)
	sort.SliceStable(ordered, func(i, j int) bool {
		return signalLess(&ordered[i], &ordered[j])
	})
	res.Matches = ordered

	top := &ordered[0]
	switch {
	case top.Kind == KindIncident:
		res.Action = ActionLinkNotify
		res.LinkedIncidentID = top.IncidentID
	case top.Kind == KindMetadata || top.Tag == TagExact:
		res.Action = ActionAutoMerge
	default:
		res.Action = ActionAgentReview
	}

	res.IsDuplicate = res.Action != ActionNone
	return res
}

// signalLess orders a before b when a carries more weight in resolution.
func signalLess(a, b *Signal) bool {
	// Incident signals always lead, whatever the accompanying scores.
	if (a.Kind == KindIncident) != (b.Kind == KindIncident) {
		return a.Kind == KindIncident
	}

	if a.confidence() != b.confidence() {
		return a.confidence() > b.confidence()
	}

	// Equal confidence: metadata beats semantic.
	if (a.Kind == KindMetadata) != (b.Kind == KindMetadata) {
		return a.Kind == KindMetadata
	}

	// Earlier candidate wins. Zero timestamps sort last.
	at, bt := a.candidateReceivedAt, b.candidateReceivedAt
	if !at.Equal(bt) {
		if at.IsZero() || bt.IsZero() {
			return bt.IsZero()
		}
		return at.Before(bt)
	}

	return a.CandidateTicketID < b.CandidateTicketID
}
