package dedup

import (
	"fmt"
	"math"
)

// CosineSimilarity returns the normalized dot product of a and b, in [-1, 1].
// Mismatched dimensionality or a zero-magnitude vector yields 0, the
// non-match sentinel, never an error.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))

	// Guard against float drift pushing identical vectors past 1.
	return math.Max(-1, math.Min(1, sim))
}

// semanticSignal buckets a candidate's cosine score against the configured
// thresholds. Returns false when the score is below the likely threshold.
func semanticSignal(c *Candidate, score, exactThreshold, likelyThreshold float64) (Signal, bool) {
	switch {
	case score >= exactThreshold:
		return Signal{
			Kind:                KindSemantic,
			Tag:                 TagExact,
			Score:               score,
			CandidateTicketID:   c.TicketID,
			Reason:              fmt.Sprintf("semantic similarity %.2f >= %g", score, exactThreshold),
			candidateReceivedAt: c.ReceivedAt,
		}, true
	case score >= likelyThreshold:
		return Signal{
			Kind:                KindSemantic,
			Tag:                 TagLikely,
			Score:               score,
			CandidateTicketID:   c.TicketID,
			Reason:              fmt.Sprintf("semantic similarity %.2f in [%g, %g)", score, likelyThreshold, exactThreshold),
			candidateReceivedAt: c.ReceivedAt,
		}, true
	}
	return Signal{}, false
}
