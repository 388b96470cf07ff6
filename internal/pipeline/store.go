package pipeline

import (
	"context"
	"time"

	"github.com/linnemanlabs/ticketflow/internal/dedup"
)

// Store is the persistence interface for pipeline results.
type Store interface {
	Get(ctx context.Context, ticketID string) (*Result, bool, error)

	// GetBySourceID retrieves the most recent result for a source-assigned
	// external id, used to skip resubmissions of the same upstream message.
	GetBySourceID(ctx context.Context, source, sourceID string) (*Result, bool, error)

	Put(ctx context.Context, r *Result) error

	// RecentCandidates returns completed tickets received at or after since,
	// newest first, projected into dedup candidates.
	RecentCandidates(ctx context.Context, since time.Time, limit int) ([]dedup.Candidate, error)
}
