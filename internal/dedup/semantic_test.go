package dedup

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1.0},
		{"opposite", []float64{1, 2, 3}, []float64{-1, -2, -3}, -1.0},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0.0},
		{"scaled copy", []float64{1, 1}, []float64{5, 5}, 1.0},
		{"zero vector sentinel", []float64{0, 0, 0}, []float64{1, 2, 3}, 0.0},
		{"both zero", []float64{0, 0}, []float64{0, 0}, 0.0},
		{"dimension mismatch sentinel", []float64{1, 2}, []float64{1, 2, 3}, 0.0},
		{"empty sentinel", nil, []float64{1}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarity_Bounds(t *testing.T) {
	t.Parallel()

	vectors := [][]float64{
		{0.1, 0.9, -0.3},
		{12, -7, 0.001},
		{1e-8, 1e-8, 1e8},
		{-1, -1, -1},
	}
	for _, a := range vectors {
		for _, b := range vectors {
			got := CosineSimilarity(a, b)
			if got < -1 || got > 1 {
				t.Errorf("CosineSimilarity(%v, %v) = %v, out of [-1, 1]", a, b, got)
			}
		}
	}
}

func TestSemanticSignal_Buckets(t *testing.T) {
	t.Parallel()

	c := candidateFixture()

	tests := []struct {
		name    string
		score   float64
		wantOK  bool
		wantTag Tag
	}{
		{"above exact", 0.95, true, TagExact},
		{"at exact boundary", 0.92, true, TagExact},
		{"between thresholds", 0.88, true, TagLikely},
		{"at likely boundary", 0.85, true, TagLikely},
		{"below likely", 0.80, false, ""},
		{"negative", -0.4, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sig, ok := semanticSignal(&c, tt.score, 0.92, 0.85)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if sig.Tag != tt.wantTag {
				t.Errorf("tag = %q, want %q", sig.Tag, tt.wantTag)
			}
			if sig.Kind != KindSemantic {
				t.Errorf("kind = %q, want %q", sig.Kind, KindSemantic)
			}
			if sig.Score != tt.score {
				t.Errorf("score = %v, want %v", sig.Score, tt.score)
			}
			if sig.CandidateTicketID != c.TicketID {
				t.Errorf("candidate = %q, want %q", sig.CandidateTicketID, c.TicketID)
			}
		})
	}
}
