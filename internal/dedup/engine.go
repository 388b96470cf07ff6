package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/linnemanlabs/go-core/log"
)

var tracer = otel.Tracer("github.com/linnemanlabs/ticketflow/internal/dedup")

const (
	DefaultExactThreshold   = 0.92
	DefaultLikelyThreshold  = 0.85
	DefaultWindowHours      = 1.0
	DefaultEmbedConcurrency = 4
	DefaultCallbackTimeout  = 5 * time.Second
)

// Config is the construction-time tuning of an Engine. Immutable after
// NewEngine; construct a new Engine to change it.
type Config struct {
	// SemanticExactThreshold is the cosine score at or above which a
	// semantic match is treated as exact (auto-merge grade). Must be >=
	// SemanticLikelyThreshold.
	SemanticExactThreshold float64

	// SemanticLikelyThreshold is the cosine score at or above which a
	// semantic match is worth agent review.
	SemanticLikelyThreshold float64

	// MetadataWindowHours bounds the received-at delta for metadata matches,
	// boundary inclusive.
	MetadataWindowHours float64

	// EmbedConcurrency caps concurrent embed callback invocations during one
	// Check. Zero means DefaultEmbedConcurrency.
	EmbedConcurrency int

	// CallbackTimeout bounds each embed / incident callback invocation. A
	// timeout degrades that signal source, it never fails the Check. Zero
	// means DefaultCallbackTimeout.
	CallbackTimeout time.Duration
}

// DefaultConfig returns the standard thresholds and limits.
func DefaultConfig() Config {
	return Config{
		SemanticExactThreshold:  DefaultExactThreshold,
		SemanticLikelyThreshold: DefaultLikelyThreshold,
		MetadataWindowHours:     DefaultWindowHours,
		EmbedConcurrency:        DefaultEmbedConcurrency,
		CallbackTimeout:         DefaultCallbackTimeout,
	}
}

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	var errs []error
	if c.SemanticExactThreshold < c.SemanticLikelyThreshold {
		errs = append(errs, fmt.Errorf("semantic exact threshold %g must be >= likely threshold %g",
			c.SemanticExactThreshold, c.SemanticLikelyThreshold))
	}
	if c.SemanticExactThreshold > 1 || c.SemanticLikelyThreshold < -1 {
		errs = append(errs, fmt.Errorf("semantic thresholds must be within [-1, 1], got %g/%g",
			c.SemanticExactThreshold, c.SemanticLikelyThreshold))
	}
	if c.MetadataWindowHours < 0 {
		errs = append(errs, fmt.Errorf("metadata time window must be non-negative, got %g", c.MetadataWindowHours))
	}
	if c.EmbedConcurrency < 0 {
		errs = append(errs, fmt.Errorf("embed concurrency must be non-negative, got %d", c.EmbedConcurrency))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EngineHooks are optional observation points, typically wired to Prometheus
// metrics. Nil hooks are skipped.
type EngineHooks struct {
	OnCheck          func(action Action, duration float64, candidates, signals int)
	OnEmbed          func(duration float64, err error)
	OnIncidentLookup func(mode string, duration float64, err error)
}

func (h *EngineHooks) onCheck(action Action, duration float64, candidates, signals int) {
	if h.OnCheck != nil {
		h.OnCheck(action, duration, candidates, signals)
	}
}

func (h *EngineHooks) onEmbed(duration float64, err error) {
	if h.OnEmbed != nil {
		h.OnEmbed(duration, err)
	}
}

func (h *EngineHooks) onIncidentLookup(mode string, duration float64, err error) {
	if h.OnIncidentLookup != nil {
		h.OnIncidentLookup(mode, duration, err)
	}
}

// Engine runs duplicate detection over a caller-supplied candidate set. It is
// stateless across calls: configuration and callback references are fixed at
// construction, everything else lives for one Check only, so a single Engine
// is safe for concurrent use.
type Engine struct {
	cfg       Config
	callbacks Callbacks
	logger    log.Logger
	hooks     EngineHooks

	// Capability flags decided once at construction so matcher code branches
	// on a known bool rather than inspecting callbacks mid-call.
	hasEmbed bool
	hasPoll  bool
	hasLink  bool
}

// NewEngine validates cfg and returns a ready Engine. All callbacks are
// optional; absent ones degrade the corresponding signal source.
func NewEngine(cfg Config, callbacks Callbacks, logger log.Logger, hooks EngineHooks) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("dedup config: %w", err)
	}
	if cfg.EmbedConcurrency == 0 {
		cfg.EmbedConcurrency = DefaultEmbedConcurrency
	}
	if cfg.CallbackTimeout == 0 {
		cfg.CallbackTimeout = DefaultCallbackTimeout
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		cfg:       cfg,
		callbacks: callbacks,
		logger:    logger,
		hooks:     hooks,
		hasEmbed:  callbacks.Embed != nil,
		hasPoll:   callbacks.PollActive != nil,
		hasLink:   callbacks.LinkIncident != nil,
	}, nil
}

// Check runs metadata, incident, and semantic matching for one ticket against
// the candidate set and resolves the signals into a single Result. It is
// total: malformed per-call data degrades to non-match, and external callback
// failures degrade their signal source, so Check always returns a Result.
func (e *Engine) Check(ctx context.Context, d Descriptor, candidates []Candidate) Result {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "dedup.check", trace.WithAttributes(
		attribute.String("ticketflow.ticket.id", d.TicketID),
		attribute.Int("ticketflow.dedup.candidates", len(candidates)),
	))
	defer span.End()

	var signals []Signal

	// Metadata pass: cheap and pure, runs for every candidate.
	matched := make(map[string]bool)
	for i := range candidates {
		c := &candidates[i]
		if c.TicketID == d.TicketID || matched[c.TicketID] {
			continue
		}
		if sig, ok := metadataMatch(&d, c, e.cfg.MetadataWindowHours); ok {
			signals = append(signals, sig)
			matched[c.TicketID] = true
		}
	}

	// Link-resolution incident lookup: a resolved id is an incident signal on
	// its own, with or without candidates.
	incidentFound := false
	if id := e.resolveIncident(ctx, &d); id != "" {
		signals = append(signals, incidentSignal(id, ""))
		incidentFound = true
	}

	// Semantic pass. An existing metadata match is already auto-merge grade,
	// so on-demand embedding is skipped then; candidates with precomputed
	// vectors are still scored since that costs no external calls.
	skipOnDemand := len(matched) > 0
	signals = append(signals, e.semanticScan(ctx, &d, candidates, matched, skipOnDemand)...)

	// Poll-mode incidents: recognize matched candidates that are themselves
	// active-incident anchors. Link-resolution takes precedence when both
	// callbacks are wired.
	if !incidentFound && e.hasPoll {
		if active := e.activeIncidents(ctx); len(active) > 0 {
			for i := range signals {
				if active[signals[i].CandidateTicketID] {
					signals = append(signals, incidentSignal(signals[i].CandidateTicketID, signals[i].CandidateTicketID))
					break
				}
			}
		}
	}

	res := resolve(d.TicketID, signals)
	span.SetAttributes(
		attribute.String("ticketflow.dedup.action", string(res.Action)),
		attribute.Int("ticketflow.dedup.signals", len(signals)),
	)
	e.hooks.onCheck(res.Action, time.Since(start).Seconds(), len(candidates), len(signals))
	return res
}

// semanticScan scores candidates against the ticket's embedding. Candidates
// already carrying a metadata signal are skipped; candidates without a
// precomputed vector are embedded on demand (bounded concurrency, cached per
// call) unless skipOnDemand is set.
func (e *Engine) semanticScan(ctx context.Context, d *Descriptor, candidates []Candidate, matched map[string]bool, skipOnDemand bool) []Signal {
	current := d.Embedding
	if len(current) == 0 {
		if !e.hasEmbed || d.CleanedText == "" {
			return nil // degraded: no vector and no way to compute one
		}
		v, err := e.embedText(ctx, d.CleanedText)
		if err != nil {
			e.logger.Warn(ctx, "embedding of incoming ticket failed, skipping semantic matching",
				"ticket_id", d.TicketID, "error", err)
			return nil
		}
		current = v
	}

	skip := func(c *Candidate) bool {
		return c.TicketID == d.TicketID || matched[c.TicketID]
	}

	// Gather candidate vectors. firstIdx caches per ticket id so a candidate
	// appearing more than once is embedded at most once per call.
	vectors := make([][]float64, len(candidates))
	firstIdx := make(map[string]int)
	var pending []int
	for i := range candidates {
		c := &candidates[i]
		if skip(c) {
			continue
		}
		if len(c.Embedding) > 0 {
			vectors[i] = c.Embedding
			continue
		}
		if skipOnDemand || !e.hasEmbed || c.CleanedText == "" {
			continue
		}
		if _, ok := firstIdx[c.TicketID]; ok {
			continue
		}
		firstIdx[c.TicketID] = i
		pending = append(pending, i)
	}

	if len(pending) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.cfg.EmbedConcurrency)
		for _, i := range pending {
			g.Go(func() error {
				v, err := e.embedText(gctx, candidates[i].CleanedText)
				if err != nil {
					e.logger.Warn(gctx, "candidate embedding failed, skipping candidate",
						"candidate_ticket_id", candidates[i].TicketID, "error", err)
					return nil
				}
				vectors[i] = v
				return nil
			})
		}
		_ = g.Wait() // workers never return errors, they degrade

		// Repeated candidates share the vector computed for their first
		// occurrence.
		for i := range candidates {
			if vectors[i] != nil {
				continue
			}
			if j, ok := firstIdx[candidates[i].TicketID]; ok && j != i {
				vectors[i] = vectors[j]
			}
		}
	}

	// Score sequentially so signal order (and thus the Result) stays
	// deterministic for identical inputs.
	var signals []Signal
	for i := range candidates {
		c := &candidates[i]
		if skip(c) || vectors[i] == nil {
			continue
		}
		score := CosineSimilarity(current, vectors[i])
		if sig, ok := semanticSignal(c, score, e.cfg.SemanticExactThreshold, e.cfg.SemanticLikelyThreshold); ok {
			signals = append(signals, sig)
			matched[c.TicketID] = true
		}
	}
	return signals
}

// embedText invokes the embed callback under the callback timeout.
func (e *Engine) embedText(ctx context.Context, text string) ([]float64, error) {
	cctx, cancel := context.WithTimeout(ctx, e.cfg.CallbackTimeout)
	defer cancel()

	cctx, span := tracer.Start(cctx, "dedup.embed")
	defer span.End()

	start := time.Now()
	v, err := e.callbacks.Embed(cctx, text)
	e.hooks.onEmbed(time.Since(start).Seconds(), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return v, err
}
