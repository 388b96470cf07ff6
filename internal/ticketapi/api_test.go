package ticketapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/ticketflow/internal/ingest"
	"github.com/linnemanlabs/ticketflow/internal/pipeline"
)

// mockService implements TicketService for handler tests.
type mockService struct {
	mu        sync.Mutex
	results   map[string]*pipeline.Result
	submitted []*ingest.Submission
	submitErr error
	getErr    error
	nextID    int
}

func newMockService() *mockService {
	return &mockService{results: make(map[string]*pipeline.Result)}
}

func (m *mockService) Submit(_ context.Context, sub *ingest.Submission) (*pipeline.SubmitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	if err := sub.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ingest.ErrInvalid, err)
	}
	m.submitted = append(m.submitted, sub)
	m.nextID++
	return &pipeline.SubmitResult{TicketID: fmt.Sprintf("TKT-%03d", m.nextID)}, nil
}

func (m *mockService) Get(_ context.Context, ticketID string) (*pipeline.Result, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	r, ok := m.results[ticketID]
	return r, ok, nil
}

func newTestRouter(t *testing.T) (chi.Router, *mockService) {
	t.Helper()
	svc := newMockService()
	api := New(nil, svc)
	r := chi.NewRouter()
	api.RegisterRoutes(r)
	return r, svc
}

//  New / constructor

func TestNew_NilLogger(t *testing.T) {
	t.Parallel()

	api := New(nil, newMockService())
	if api == nil {
		t.Fatal("New(nil, svc) returned nil API")
	}
	if api.logger == nil {
		t.Fatal("New(nil, svc) left logger nil; expected Nop logger")
	}
}

func TestNew_WithLogger(t *testing.T) {
	t.Parallel()

	api := New(log.Nop(), newMockService())
	if api == nil {
		t.Fatal("New(logger, svc) returned nil API")
	}
	if api.logger == nil {
		t.Fatal("New(logger, svc) left logger nil")
	}
}

func TestNew_NilService_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("New(nil, nil) did not panic; expected panic for nil service")
		}
	}()
	New(nil, nil)
}

// Routing

func TestRegisterRoutes_TicketSubmission(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
	}{
		{"POST valid submission", http.MethodPost, `{"source":"email","raw_text":"login is broken","source_id":"msg-1"}`, http.StatusAccepted},
		{"POST invalid JSON", http.MethodPost, `{bad`, http.StatusBadRequest},
		{"POST unknown source", http.MethodPost, `{"source":"fax","raw_text":"hi"}`, http.StatusBadRequest},
		{"POST empty text", http.MethodPost, `{"source":"email","raw_text":"  "}`, http.StatusBadRequest},
		{"GET not allowed", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"PUT not allowed", http.MethodPut, "", http.StatusMethodNotAllowed},
		{"DELETE not allowed", http.MethodDelete, "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, "/api/v1/tickets", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("%s /api/v1/tickets = %d, want %d", tt.method, rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRegisterRoutes_NotFound(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	paths := []string{
		"/",
		"/api/v1",
		"/api/v2/tickets",
		"/api/v1/tickets/",
		"/api/v1/unknown",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != http.StatusNotFound {
				t.Errorf("GET %s = %d, want %d", path, rec.Code, http.StatusNotFound)
			}
		})
	}
}

// Ticket submission logic

func TestHandleSubmitTicket_Accepted(t *testing.T) {
	t.Parallel()

	r, svc := newTestRouter(t)

	body := `{
		"source": "email",
		"raw_text": "Payment fails with 402 on checkout",
		"subject": "Checkout broken",
		"source_id": "msg-100",
		"customer": {"account_id": "acct-9", "company": "Acme"}
	}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}

	var resp submitResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TicketID == "" {
		t.Fatal("expected a ticket_id in the response")
	}
	if resp.Skipped {
		t.Error("expected skipped=false for a fresh submission")
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if len(svc.submitted) != 1 {
		t.Fatalf("service received %d submissions, want 1", len(svc.submitted))
	}
	got := svc.submitted[0]
	if got.SourceID != "msg-100" {
		t.Errorf("source_id = %q, want msg-100", got.SourceID)
	}
	if got.Customer.AccountID != "acct-9" {
		t.Errorf("account_id = %q, want acct-9", got.Customer.AccountID)
	}
}

func TestHandleSubmitTicket_SkippedResubmission(t *testing.T) {
	t.Parallel()

	svc := newMockService()
	api := New(nil, skippedService{svc})
	r := chi.NewRouter()
	api.RegisterRoutes(r)

	body := `{"source":"email","raw_text":"same message again","source_id":"msg-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d for a skipped resubmission", rec.Code, http.StatusOK)
	}

	var resp submitResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Skipped {
		t.Error("expected skipped=true")
	}
	if resp.TicketID != "TKT-EXISTING" {
		t.Errorf("ticket_id = %q, want TKT-EXISTING", resp.TicketID)
	}
	if resp.Reason != "already ingested" {
		t.Errorf("reason = %q, want %q", resp.Reason, "already ingested")
	}
}

func TestHandleSubmitTicket_ServiceError(t *testing.T) {
	t.Parallel()

	r, svc := newTestRouter(t)
	svc.submitErr = errors.New("store unavailable")

	body := `{"source":"email","raw_text":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

// Ticket retrieval logic

func TestHandleGetTicket_Found(t *testing.T) {
	t.Parallel()

	r, svc := newTestRouter(t)
	svc.results["TKT-1"] = &pipeline.Result{TicketID: "TKT-1", Status: pipeline.StatusComplete}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tickets/TKT-1", http.NoBody)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp pipeline.Result
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TicketID != "TKT-1" {
		t.Errorf("ticket_id = %q, want TKT-1", resp.TicketID)
	}
	if resp.Status != pipeline.StatusComplete {
		t.Errorf("status = %q, want %q", resp.Status, pipeline.StatusComplete)
	}
}

func TestHandleGetTicket_NotFound(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tickets/TKT-NOPE", http.NoBody)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleGetTicket_ServiceError(t *testing.T) {
	t.Parallel()

	r, svc := newTestRouter(t)
	svc.getErr = errors.New("db down")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tickets/TKT-1", http.NoBody)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

// Fuzz

func FuzzTicketSubmission(f *testing.F) {
	svc := newMockService()
	api := New(nil, svc)
	r := chi.NewRouter()
	api.RegisterRoutes(r)

	seeds := []struct {
		body        []byte
		contentType string
	}{
		{nil, ""},
		{[]byte(""), "application/json"},
		{[]byte("{}"), "application/json"},
		{[]byte(`{"source":"email","raw_text":"help"}`), "application/json"},
		{[]byte(`{"source":"chat","raw_text":"a","customer":{"account_id":"x"}}`), "application/json"},
		{[]byte("{invalid json"), "application/json"},
		{[]byte("\x00\x01\x02\xff\xfe"), "application/octet-stream"},
		{[]byte("<xml>not json</xml>"), "text/xml"},
		{[]byte(strings.Repeat("a", 10000)), "text/plain"},
	}
	for _, s := range seeds {
		f.Add(s.body, s.contentType)
	}

	f.Fuzz(func(t *testing.T, body []byte, contentType string) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets", strings.NewReader(string(body)))
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		rec := httptest.NewRecorder()

		// Must not panic
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusAccepted && rec.Code != http.StatusBadRequest {
			t.Errorf("POST /api/v1/tickets with body len=%d content-type=%q = %d, want 202 or 400",
				len(body), contentType, rec.Code)
		}
	})
}

// skippedService wraps a mock to always report a resubmission.
type skippedService struct{ *mockService }

func (s skippedService) Submit(context.Context, *ingest.Submission) (*pipeline.SubmitResult, error) {
	return &pipeline.SubmitResult{TicketID: "TKT-EXISTING", Skipped: true, Reason: "already ingested"}, nil
}
