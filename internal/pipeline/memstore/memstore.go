// Package memstore provides an in-memory implementation of pipeline.Store.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/linnemanlabs/ticketflow/internal/dedup"
	"github.com/linnemanlabs/ticketflow/internal/pipeline"
)

// Store holds pipeline results in memory. Suitable for dev/testing.
type Store struct {
	mu       sync.RWMutex
	results  map[string]*pipeline.Result // ticket ID -> result
	bySource map[string]string           // source + source ID -> ticket ID
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		results:  make(map[string]*pipeline.Result),
		bySource: make(map[string]string),
	}
}

func sourceKey(source, sourceID string) string {
	return source + "\x00" + sourceID
}

// Get retrieves a pipeline result by ticket ID. Returns a copy.
func (s *Store) Get(_ context.Context, ticketID string) (*pipeline.Result, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[ticketID]
	if !ok {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}

// GetBySourceID retrieves a pipeline result by external source id. Returns a copy.
func (s *Store) GetBySourceID(_ context.Context, source, sourceID string) (*pipeline.Result, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySource[sourceKey(source, sourceID)]
	if !ok {
		return nil, false, nil
	}
	r := s.results[id]
	cp := *r
	return &cp, true, nil
}

// Put stores a copy of the pipeline result.
func (s *Store) Put(_ context.Context, r *pipeline.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.results[r.TicketID] = &cp
	if r.Ticket != nil && r.Ticket.SourceID != "" {
		s.bySource[sourceKey(string(r.Ticket.Source), r.Ticket.SourceID)] = r.TicketID
	}
	return nil
}

// RecentCandidates returns completed tickets received at or after since,
// newest first.
func (s *Store) RecentCandidates(_ context.Context, since time.Time, limit int) ([]dedup.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*pipeline.Result
	for _, r := range s.results {
		if r.Status != pipeline.StatusComplete || r.Ticket == nil {
			continue
		}
		if r.Ticket.ReceivedAt.Before(since) {
			continue
		}
		matched = append(matched, r)
	}

	sort.Slice(matched, func(i, j int) bool {
		ti, tj := matched[i].Ticket.ReceivedAt, matched[j].Ticket.ReceivedAt
		if ti.Equal(tj) {
			return matched[i].TicketID < matched[j].TicketID
		}
		return ti.After(tj)
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]dedup.Candidate, 0, len(matched))
	for _, r := range matched {
		out = append(out, r.Candidate())
	}
	return out, nil
}
