package dedup

import (
	"testing"
	"time"
)

func semSig(candidate string, score float64, tag Tag, receivedAt time.Time) Signal {
	return Signal{
		Kind:                KindSemantic,
		Tag:                 tag,
		Score:               score,
		CandidateTicketID:   candidate,
		Reason:              "test semantic",
		candidateReceivedAt: receivedAt,
	}
}

func metaSig(candidate string, receivedAt time.Time) Signal {
	return Signal{
		Kind:                KindMetadata,
		Tag:                 TagExact,
		Score:               1.0,
		CandidateTicketID:   candidate,
		Reason:              "test metadata",
		candidateReceivedAt: receivedAt,
	}
}

func TestResolve_NoSignals(t *testing.T) {
	t.Parallel()

	res := resolve("TKT-1", nil)

	if res.Action != ActionNone {
		t.Errorf("action = %q, want %q", res.Action, ActionNone)
	}
	if res.IsDuplicate {
		t.Error("IsDuplicate should be false for ActionNone")
	}
	if len(res.Matches) != 0 {
		t.Errorf("matches = %d, want 0", len(res.Matches))
	}
	if res.LinkedIncidentID != "" {
		t.Errorf("linked incident = %q, want empty", res.LinkedIncidentID)
	}
}

func TestResolve_IncidentOutranksEverything(t *testing.T) {
	t.Parallel()

	signals := []Signal{
		metaSig("TKT-A", baseTime),
		semSig("TKT-B", 0.99, TagExact, baseTime),
		incidentSignal("INC-42", ""),
	}

	res := resolve("TKT-1", signals)

	if res.Action != ActionLinkNotify {
		t.Errorf("action = %q, want %q", res.Action, ActionLinkNotify)
	}
	if res.LinkedIncidentID != "INC-42" {
		t.Errorf("linked incident = %q, want INC-42", res.LinkedIncidentID)
	}
	if res.Matches[0].Kind != KindIncident {
		t.Errorf("first match kind = %q, want incident first", res.Matches[0].Kind)
	}
	// Supporting evidence is preserved, not discarded.
	if len(res.Matches) != 3 {
		t.Errorf("matches = %d, want 3", len(res.Matches))
	}
}

func TestResolve_ActionMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		signals []Signal
		want    Action
	}{
		{"metadata gives auto merge", []Signal{metaSig("TKT-A", baseTime)}, ActionAutoMerge},
		{"semantic exact gives auto merge", []Signal{semSig("TKT-A", 0.95, TagExact, baseTime)}, ActionAutoMerge},
		{"semantic likely gives agent review", []Signal{semSig("TKT-A", 0.88, TagLikely, baseTime)}, ActionAgentReview},
		{
			"exact beats likely",
			[]Signal{
				semSig("TKT-A", 0.86, TagLikely, baseTime),
				semSig("TKT-B", 0.93, TagExact, baseTime),
			},
			ActionAutoMerge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := resolve("TKT-1", tt.signals)
			if res.Action != tt.want {
				t.Errorf("action = %q, want %q", res.Action, tt.want)
			}
			if !res.IsDuplicate {
				t.Error("IsDuplicate should be true when action != none")
			}
			if res.LinkedIncidentID != "" {
				t.Errorf("linked incident = %q, want empty without incident signal", res.LinkedIncidentID)
			}
		})
	}
}

func TestResolve_MatchesSortedByConfidence(t *testing.T) {
	t.Parallel()

	signals := []Signal{
		semSig("TKT-LOW", 0.86, TagLikely, baseTime),
		semSig("TKT-HIGH", 0.97, TagExact, baseTime),
		metaSig("TKT-META", baseTime),
		semSig("TKT-MID", 0.90, TagLikely, baseTime),
	}

	res := resolve("TKT-1", signals)

	want := []string{"TKT-META", "TKT-HIGH", "TKT-MID", "TKT-LOW"}
	if len(res.Matches) != len(want) {
		t.Fatalf("matches = %d, want %d", len(res.Matches), len(want))
	}
	for i, id := range want {
		if res.Matches[i].CandidateTicketID != id {
			t.Errorf("matches[%d] = %q, want %q", i, res.Matches[i].CandidateTicketID, id)
		}
	}
}

func TestResolve_TieBreaks(t *testing.T) {
	t.Parallel()

	t.Run("metadata beats semantic at equal confidence", func(t *testing.T) {
		t.Parallel()

		signals := []Signal{
			semSig("TKT-SEM", 1.0, TagExact, baseTime.Add(-time.Hour)),
			metaSig("TKT-META", baseTime),
		}
		res := resolve("TKT-1", signals)
		if res.Matches[0].CandidateTicketID != "TKT-META" {
			t.Errorf("top match = %q, want TKT-META", res.Matches[0].CandidateTicketID)
		}
	})

	t.Run("earlier candidate wins at equal confidence", func(t *testing.T) {
		t.Parallel()

		signals := []Signal{
			metaSig("TKT-LATE", baseTime.Add(time.Hour)),
			metaSig("TKT-EARLY", baseTime),
		}
		res := resolve("TKT-1", signals)
		if res.Matches[0].CandidateTicketID != "TKT-EARLY" {
			t.Errorf("top match = %q, want TKT-EARLY", res.Matches[0].CandidateTicketID)
		}
	})

	t.Run("candidate id breaks remaining ties", func(t *testing.T) {
		t.Parallel()

		signals := []Signal{
			metaSig("TKT-B", baseTime),
			metaSig("TKT-A", baseTime),
		}
		res := resolve("TKT-1", signals)
		if res.Matches[0].CandidateTicketID != "TKT-A" {
			t.Errorf("top match = %q, want TKT-A", res.Matches[0].CandidateTicketID)
		}
	})
}

func TestResolve_Deterministic(t *testing.T) {
	t.Parallel()

	forward := []Signal{
		semSig("TKT-A", 0.88, TagLikely, baseTime),
		metaSig("TKT-B", baseTime),
		incidentSignal("INC-7", ""),
	}
	reversed := []Signal{forward[2], forward[1], forward[0]}

	a := resolve("TKT-1", forward)
	b := resolve("TKT-1", reversed)

	if a.Action != b.Action || a.LinkedIncidentID != b.LinkedIncidentID {
		t.Fatalf("resolution depends on discovery order: %+v vs %+v", a, b)
	}
	for i := range a.Matches {
		if a.Matches[i].CandidateTicketID != b.Matches[i].CandidateTicketID ||
			a.Matches[i].Kind != b.Matches[i].Kind {
			t.Errorf("match order differs at %d: %+v vs %+v", i, a.Matches[i], b.Matches[i])
		}
	}
}
