package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/ticketflow/internal/classify"
	"github.com/linnemanlabs/ticketflow/internal/dedup"
	"github.com/linnemanlabs/ticketflow/internal/extract"
	"github.com/linnemanlabs/ticketflow/internal/ingest"
)

const (
	DefaultCandidateWindow = 24 * time.Hour
	DefaultCandidateLimit  = 200
)

// SubmitResult is the outcome of submitting a ticket to the pipeline.
type SubmitResult struct {
	TicketID string
	Skipped  bool
	Reason   string
}

// Notifier delivers duplicate notifications to an external channel.
type Notifier interface {
	NotifyDuplicate(ctx context.Context, r *Result) error
}

// ServiceHooks are optional observation points, typically wired to Prometheus
// metrics. Nil hooks are skipped.
type ServiceHooks struct {
	OnSubmit   func(source string, outcome string)
	OnComplete func(status Status, action dedup.Action, duration float64)
}

func (h *ServiceHooks) onSubmit(source, outcome string) {
	if h.OnSubmit != nil {
		h.OnSubmit(source, outcome)
	}
}

func (h *ServiceHooks) onComplete(status Status, action dedup.Action, duration float64) {
	if h.OnComplete != nil {
		h.OnComplete(status, action, duration)
	}
}

// ServiceOptions carries the optional collaborators and tuning of a Service.
type ServiceOptions struct {
	// Embed computes the incoming ticket's embedding before dedup so the
	// stored result carries it. Optional; without it the dedup engine may
	// still compute one through its own callback.
	Embed dedup.EmbedFunc

	// Notifier is told about every duplicate-positive result. Optional.
	Notifier Notifier

	Hooks ServiceHooks

	// CandidateWindow bounds how far back RecentCandidates reaches. Zero
	// means DefaultCandidateWindow.
	CandidateWindow time.Duration

	// CandidateLimit caps the candidate set per check. Zero means
	// DefaultCandidateLimit.
	CandidateLimit int
}

// Service is the business boundary for ticket pipeline operations.
type Service struct {
	store      Store
	classifier *classify.Classifier
	extractor  *extract.Extractor
	engine     *dedup.Engine
	opts       ServiceOptions
	logger     log.Logger
}

// NewService creates a new pipeline service.
func NewService(store Store, classifier *classify.Classifier, extractor *extract.Extractor, engine *dedup.Engine, opts ServiceOptions, logger log.Logger) *Service {
	if opts.CandidateWindow == 0 {
		opts.CandidateWindow = DefaultCandidateWindow
	}
	if opts.CandidateLimit == 0 {
		opts.CandidateLimit = DefaultCandidateLimit
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:      store,
		classifier: classifier,
		extractor:  extractor,
		engine:     engine,
		opts:       opts,
		logger:     logger,
	}
}

// Submit normalizes a submission, skips resubmissions of the same upstream
// message, persists a pending result, and kicks off async processing.
func (s *Service) Submit(ctx context.Context, sub *ingest.Submission) (*SubmitResult, error) {
	tk, err := ingest.Normalize(sub)
	if err != nil {
		s.opts.Hooks.onSubmit(string(sub.Source), "rejected")
		return nil, err
	}

	if tk.SourceID != "" {
		if existing, ok, err := s.store.GetBySourceID(ctx, string(tk.Source), tk.SourceID); err != nil {
			return nil, err
		} else if ok {
			s.opts.Hooks.onSubmit(string(tk.Source), "skipped")
			return &SubmitResult{TicketID: existing.TicketID, Skipped: true, Reason: "already ingested"}, nil
		}
	}

	result := &Result{
		TicketID:  tk.TicketID,
		Status:    StatusPending,
		Ticket:    tk,
		CreatedAt: time.Now(),
	}
	if err := s.store.Put(ctx, result); err != nil {
		return nil, err
	}

	s.opts.Hooks.onSubmit(string(tk.Source), "accepted")

	// async processing - pass only the ID to avoid sharing the Result pointer.
	go s.process(context.WithoutCancel(ctx), tk.TicketID)

	return &SubmitResult{TicketID: tk.TicketID}, nil
}

// Get retrieves a pipeline result by ticket ID.
func (s *Service) Get(ctx context.Context, ticketID string) (*Result, bool, error) {
	return s.store.Get(ctx, ticketID)
}

func (s *Service) process(ctx context.Context, ticketID string) {
	L := s.logger.With("ticket_id", ticketID)

	result, ok, err := s.store.Get(ctx, ticketID)
	if err != nil || !ok {
		L.Error(ctx, err, "failed to fetch result for processing")
		return
	}

	result.Status = StatusInProgress
	if err := s.store.Put(ctx, result); err != nil {
		L.Error(ctx, err, "failed to update status to in_progress")
		return
	}

	start := time.Now()

	// Classification, extraction, and the ticket's own embedding are
	// independent; run them together.
	var (
		cls       classify.Result
		ext       extract.Result
		embedding []float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cls = s.classifier.Classify(gctx, result.Ticket)
		return nil
	})
	g.Go(func() error {
		ext = s.extractor.Extract(gctx, result.Ticket)
		return nil
	})
	if s.opts.Embed != nil && result.Ticket.CleanedText != "" {
		g.Go(func() error {
			v, err := s.opts.Embed(gctx, result.Ticket.CleanedText)
			if err != nil {
				L.Warn(gctx, "ticket embedding failed, dedup will degrade", "error", err)
				return nil
			}
			embedding = v
			return nil
		})
	}
	_ = g.Wait() // stages degrade internally, they never fail the pipeline

	if ctx.Err() != nil {
		result.Status = StatusFailed
		if err := s.store.Put(ctx, result); err != nil {
			L.Error(ctx, err, "failed to persist failed status")
		}
		return
	}

	since := result.Ticket.ReceivedAt.Add(-s.opts.CandidateWindow)
	candidates, err := s.store.RecentCandidates(ctx, since, s.opts.CandidateLimit)
	if err != nil {
		L.Warn(ctx, "candidate fetch failed, checking without candidates", "error", err)
		candidates = nil
	}

	dres := s.engine.CheckTicket(ctx, result.Ticket, &ext, embedding, candidates)

	result.Classification = &cls
	result.Extraction = &ext
	result.Dedup = &dres
	result.Embedding = embedding
	result.Status = StatusComplete
	result.CompletedAt = time.Now()
	result.Duration = time.Since(start).Seconds()

	if err := s.store.Put(ctx, result); err != nil {
		L.Error(ctx, err, "failed to persist pipeline result")
	}

	if s.opts.Notifier != nil && dres.IsDuplicate {
		if err := s.opts.Notifier.NotifyDuplicate(ctx, result); err != nil {
			L.Warn(ctx, "duplicate notification failed", "error", err)
		}
	}

	s.opts.Hooks.onComplete(result.Status, dres.Action, result.Duration)

	L.Info(ctx, "pipeline complete",
		"status", result.Status,
		"category", cls.Category.Category,
		"severity", cls.Severity.Severity,
		"action", dres.Action,
		"duration", result.Duration,
	)
}
