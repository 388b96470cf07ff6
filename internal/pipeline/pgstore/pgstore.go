// Package pgstore provides a PostgreSQL implementation of pipeline.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/ticketflow/internal/classify"
	"github.com/linnemanlabs/ticketflow/internal/dedup"
	"github.com/linnemanlabs/ticketflow/internal/extract"
	"github.com/linnemanlabs/ticketflow/internal/pipeline"
	"github.com/linnemanlabs/ticketflow/internal/ticket"
)

var tracer = otel.Tracer("github.com/linnemanlabs/ticketflow/internal/pipeline/pgstore")

//go:embed schema.sql
var schema string

// Store persists pipeline results in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store on an existing pool.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close shuts down the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

const resultColumns = `ticket_id, status, ticket, classification, extraction, dedup,
	embedding, created_at, completed_at, duration_s`

// Get retrieves a pipeline result by ticket ID.
//
//nolint:dupl // similar structure to GetBySourceID is intentional
func (s *Store) Get(ctx context.Context, ticketID string) (*pipeline.Result, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + resultColumns + ` FROM tickets WHERE ticket_id = $1`
	r, err := scanResultRow(s.pool.QueryRow(ctx, query, ticketID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// GetBySourceID retrieves the most recent pipeline result for an external
// source id.
//
//nolint:dupl // similar structure to Get is intentional
func (s *Store) GetBySourceID(ctx context.Context, source, sourceID string) (*pipeline.Result, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.GetBySourceID", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + resultColumns + ` FROM tickets
		WHERE source = $1 AND source_id = $2 ORDER BY created_at DESC LIMIT 1`
	r, err := scanResultRow(s.pool.QueryRow(ctx, query, source, sourceID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// Put inserts or updates a pipeline result.
func (s *Store) Put(ctx context.Context, r *pipeline.Result) error {
	ctx, span := tracer.Start(ctx, "pgstore.Put", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	ticketJSON, err := json.Marshal(r.Ticket)
	if err != nil {
		return fmt.Errorf("marshal ticket: %w", err)
	}
	var classificationJSON, extractionJSON, dedupJSON []byte
	if r.Classification != nil {
		if classificationJSON, err = json.Marshal(r.Classification); err != nil {
			return fmt.Errorf("marshal classification: %w", err)
		}
	}
	if r.Extraction != nil {
		if extractionJSON, err = json.Marshal(r.Extraction); err != nil {
			return fmt.Errorf("marshal extraction: %w", err)
		}
	}
	if r.Dedup != nil {
		if dedupJSON, err = json.Marshal(r.Dedup); err != nil {
			return fmt.Errorf("marshal dedup: %w", err)
		}
	}

	var completedAt *time.Time
	if !r.CompletedAt.IsZero() {
		completedAt = &r.CompletedAt
	}

	var source, sourceID, accountID, errorMessage string
	var receivedAt time.Time
	if r.Ticket != nil {
		source = string(r.Ticket.Source)
		sourceID = r.Ticket.SourceID
		accountID = r.Ticket.Customer.AccountID
		receivedAt = r.Ticket.ReceivedAt
	}
	if r.Extraction != nil {
		if accountID == "" {
			accountID = r.Extraction.Fields.AccountID
		}
		errorMessage = r.Extraction.Fields.ErrorMessage
	}

	query := `INSERT INTO tickets (
		ticket_id, status, source, source_id, account_id, error_message, received_at,
		ticket, classification, extraction, dedup, embedding, created_at, completed_at, duration_s
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	ON CONFLICT (ticket_id) DO UPDATE SET
		status         = EXCLUDED.status,
		source         = EXCLUDED.source,
		source_id      = EXCLUDED.source_id,
		account_id     = EXCLUDED.account_id,
		error_message  = EXCLUDED.error_message,
		received_at    = EXCLUDED.received_at,
		ticket         = EXCLUDED.ticket,
		classification = EXCLUDED.classification,
		extraction     = EXCLUDED.extraction,
		dedup          = EXCLUDED.dedup,
		embedding      = EXCLUDED.embedding,
		completed_at   = EXCLUDED.completed_at,
		duration_s     = EXCLUDED.duration_s`

	_, err = s.pool.Exec(ctx, query,
		r.TicketID, string(r.Status), source, sourceID, accountID, errorMessage, receivedAt,
		ticketJSON, classificationJSON, extractionJSON, dedupJSON, r.Embedding,
		r.CreatedAt, completedAt, r.Duration,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert ticket: %w", err)
	}
	return nil
}

// RecentCandidates returns completed tickets received at or after since,
// newest first, projected into dedup candidates.
func (s *Store) RecentCandidates(ctx context.Context, since time.Time, limit int) ([]dedup.Candidate, error) {
	ctx, span := tracer.Start(ctx, "pgstore.RecentCandidates", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT ticket_id, account_id, error_message, received_at,
			ticket->>'cleaned_text', embedding
		 FROM tickets
		 WHERE status = 'complete' AND received_at >= $1
		 ORDER BY received_at DESC
		 LIMIT $2`,
		since, limit,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var out []dedup.Candidate
	for rows.Next() {
		var (
			c           dedup.Candidate
			accountID   *string
			errMsg      *string
			cleanedText *string
		)
		if err := rows.Scan(&c.TicketID, &accountID, &errMsg, &c.ReceivedAt, &cleanedText, &c.Embedding); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		if accountID != nil {
			c.AccountID = *accountID
		}
		if errMsg != nil {
			c.ErrorMessage = *errMsg
		}
		if cleanedText != nil {
			c.CleanedText = *cleanedText
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}

// scanResultRow scans a single row into a pipeline.Result. Returns (nil, nil)
// when no row is found.
func scanResultRow(row pgx.Row) (*pipeline.Result, error) {
	var (
		r                  pipeline.Result
		status             string
		ticketJSON         []byte
		classificationJSON []byte
		extractionJSON     []byte
		dedupJSON          []byte
		completedAt        *time.Time
	)

	err := row.Scan(
		&r.TicketID, &status, &ticketJSON, &classificationJSON, &extractionJSON,
		&dedupJSON, &r.Embedding, &r.CreatedAt, &completedAt, &r.Duration,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	r.Status = pipeline.Status(status)
	if completedAt != nil {
		r.CompletedAt = *completedAt
	}

	r.Ticket = &ticket.Ticket{}
	if err := json.Unmarshal(ticketJSON, r.Ticket); err != nil {
		return nil, fmt.Errorf("unmarshal ticket: %w", err)
	}
	if len(classificationJSON) > 0 {
		r.Classification = &classify.Result{}
		if err := json.Unmarshal(classificationJSON, r.Classification); err != nil {
			return nil, fmt.Errorf("unmarshal classification: %w", err)
		}
	}
	if len(extractionJSON) > 0 {
		r.Extraction = &extract.Result{}
		if err := json.Unmarshal(extractionJSON, r.Extraction); err != nil {
			return nil, fmt.Errorf("unmarshal extraction: %w", err)
		}
	}
	if len(dedupJSON) > 0 {
		r.Dedup = &dedup.Result{}
		if err := json.Unmarshal(dedupJSON, r.Dedup); err != nil {
			return nil, fmt.Errorf("unmarshal dedup: %w", err)
		}
	}

	return &r, nil
}
