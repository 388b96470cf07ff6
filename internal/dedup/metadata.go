package dedup

import (
	"fmt"
	"strings"
	"time"
)

// normalizeErrorMessage lowercases and collapses whitespace so error strings
// from different channels compare equal. Empty input stays empty.
func normalizeErrorMessage(msg string) string {
	return strings.Join(strings.Fields(strings.ToLower(msg)), " ")
}

// sameTimeframe reports whether both timestamps are set and within the
// window, boundary inclusive. Zero timestamps never match.
func sameTimeframe(a, b time.Time, windowHours float64) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	delta := a.Sub(b)
	if delta < 0 {
		delta = -delta
	}
	window := time.Duration(windowHours * float64(time.Hour))
	return delta <= window
}

// metadataMatch checks same non-empty account, equal normalized error string,
// and received timestamps within the window. Pure; malformed inputs are
// non-matches, never errors.
func metadataMatch(d *Descriptor, c *Candidate, windowHours float64) (Signal, bool) {
	account := strings.TrimSpace(d.AccountID)
	if account == "" || account != strings.TrimSpace(c.AccountID) {
		return Signal{}, false
	}

	errNew := normalizeErrorMessage(d.ErrorMessage)
	errCand := normalizeErrorMessage(c.ErrorMessage)
	if errNew == "" || errNew != errCand {
		return Signal{}, false
	}

	if !sameTimeframe(d.ReceivedAt, c.ReceivedAt, windowHours) {
		return Signal{}, false
	}

	return Signal{
		Kind:                KindMetadata,
		Tag:                 TagExact,
		Score:               1.0,
		CandidateTicketID:   c.TicketID,
		Reason:              fmt.Sprintf("same account, same error string, received within %gh", windowHours),
		candidateReceivedAt: c.ReceivedAt,
	}, true
}
