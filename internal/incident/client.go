// Package incident is an HTTP client for the incident management service.
// It feeds the duplicate detection engine's two incident signal modes: poll,
// which lists currently active incident ids, and link resolution, which asks
// the service whether a specific ticket belongs to an active incident.
package incident

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linnemanlabs/ticketflow/internal/dedup"
)

// Client talks to the incident service.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// New creates an incident client for the given endpoint. token may be empty
// when the service is unauthenticated.
func New(endpoint, token string) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		httpClient: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type activeResponse struct {
	Incidents []struct {
		ID string `json:"id"`
	} `json:"incidents"`
}

// Active returns the ids of currently active incidents via GET /v1/incidents/active.
func (c *Client) Active(ctx context.Context) ([]string, error) {
	body, err := c.do(ctx, http.MethodGet, "v1/incidents/active", nil)
	if err != nil {
		return nil, err
	}

	var out activeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	ids := make([]string, 0, len(out.Incidents))
	for _, inc := range out.Incidents {
		if inc.ID != "" {
			ids = append(ids, inc.ID)
		}
	}
	return ids, nil
}

type resolveRequest struct {
	TicketID  string `json:"ticket_id"`
	AccountID string `json:"account_id,omitempty"`
	Product   string `json:"product,omitempty"`
}

type resolveResponse struct {
	IncidentID string `json:"incident_id"`
}

// Resolve asks the service whether the ticket belongs to an active incident
// via POST /v1/incidents/resolve. Returns "" when none applies.
func (c *Client) Resolve(ctx context.Context, ticketID, accountID, product string) (string, error) {
	payload, err := json.Marshal(resolveRequest{
		TicketID:  ticketID,
		AccountID: accountID,
		Product:   product,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "v1/incidents/resolve", payload)
	if err != nil {
		return "", err
	}

	var out resolveResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	return out.IncidentID, nil
}

func (c *Client) do(ctx context.Context, method, endpointPath string, payload []byte) ([]byte, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	u.Path = path.Join(u.Path, endpointPath)

	var reqBody io.Reader = http.NoBody
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("incident request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("incident service returned %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// Callbacks adapts the client to the dedup engine's callback shapes.
func (c *Client) Callbacks() (dedup.PollActiveFunc, dedup.LinkIncidentFunc) {
	return c.Active, c.Resolve
}
