package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/linnemanlabs/ticketflow/internal/extract"
	"github.com/linnemanlabs/ticketflow/internal/pipeline"
	"github.com/linnemanlabs/ticketflow/internal/ticket"
)

var baseTime = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func result(id string, status pipeline.Status, receivedAt time.Time) *pipeline.Result {
	return &pipeline.Result{
		TicketID: id,
		Status:   status,
		Ticket: &ticket.Ticket{
			TicketID:    id,
			Source:      ticket.SourceEmail,
			SourceID:    "src-" + id,
			CleanedText: "text of " + id,
			ReceivedAt:  receivedAt,
			Customer:    ticket.Customer{AccountID: "acct-1"},
		},
		Extraction: &extract.Result{
			TicketID: id,
			Fields:   extract.Fields{ErrorMessage: "401 invalid token"},
		},
		CreatedAt: receivedAt,
	}
}

func TestPutGet(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	r := result("TKT-1", pipeline.StatusPending, baseTime)
	if err := s.Put(ctx, r); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get(ctx, "TKT-1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.TicketID != "TKT-1" || got.Status != pipeline.StatusPending {
		t.Errorf("got %+v", got)
	}

	// Mutating the returned copy must not affect the stored value.
	got.Status = pipeline.StatusFailed
	again, _, _ := s.Get(ctx, "TKT-1")
	if again.Status != pipeline.StatusPending {
		t.Error("Get should return a copy")
	}
}

func TestGet_Missing(t *testing.T) {
	t.Parallel()

	s := New()
	_, ok, err := s.Get(context.Background(), "TKT-NOPE")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected ok=false")
	}
}

func TestGetBySourceID(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	if err := s.Put(ctx, result("TKT-1", pipeline.StatusComplete, baseTime)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.GetBySourceID(ctx, "email", "src-TKT-1")
	if err != nil || !ok {
		t.Fatalf("GetBySourceID: ok=%v err=%v", ok, err)
	}
	if got.TicketID != "TKT-1" {
		t.Errorf("ticket id = %q, want TKT-1", got.TicketID)
	}

	if _, ok, _ := s.GetBySourceID(ctx, "chat", "src-TKT-1"); ok {
		t.Error("source must be part of the key")
	}
}

func TestRecentCandidates(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	puts := []*pipeline.Result{
		result("TKT-OLD", pipeline.StatusComplete, baseTime.Add(-48*time.Hour)),
		result("TKT-A", pipeline.StatusComplete, baseTime.Add(-2*time.Hour)),
		result("TKT-B", pipeline.StatusComplete, baseTime.Add(-1*time.Hour)),
		result("TKT-PENDING", pipeline.StatusPending, baseTime),
	}
	for _, r := range puts {
		if err := s.Put(ctx, r); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	cands, err := s.RecentCandidates(ctx, baseTime.Add(-24*time.Hour), 10)
	if err != nil {
		t.Fatalf("RecentCandidates: %v", err)
	}

	// Only completed tickets within the window, newest first.
	if len(cands) != 2 {
		t.Fatalf("candidates = %d, want 2", len(cands))
	}
	if cands[0].TicketID != "TKT-B" || cands[1].TicketID != "TKT-A" {
		t.Errorf("order = [%s %s], want [TKT-B TKT-A]", cands[0].TicketID, cands[1].TicketID)
	}
	if cands[0].ErrorMessage != "401 invalid token" {
		t.Errorf("error message = %q, want extraction value", cands[0].ErrorMessage)
	}
	if cands[0].AccountID != "acct-1" {
		t.Errorf("account id = %q, want acct-1", cands[0].AccountID)
	}
}

func TestRecentCandidates_Limit(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		r := result("TKT-"+string(rune('A'+i)), pipeline.StatusComplete, baseTime.Add(time.Duration(i)*time.Minute))
		if err := s.Put(ctx, r); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	cands, err := s.RecentCandidates(ctx, baseTime.Add(-time.Hour), 3)
	if err != nil {
		t.Fatalf("RecentCandidates: %v", err)
	}
	if len(cands) != 3 {
		t.Fatalf("candidates = %d, want 3", len(cands))
	}
	// Newest three.
	if cands[0].TicketID != "TKT-E" {
		t.Errorf("first = %q, want TKT-E", cands[0].TicketID)
	}
}
