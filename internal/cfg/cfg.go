package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config adds application-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APIToken              string
	ClaudeAPIKey          string
	ClaudeModel           string
	ConfidenceThreshold   float64
	DatabaseURL           string
	SlackWebhookURL       string
	EmbedEndpoint         string
	EmbedModel            string
	IncidentEndpoint      string
	IncidentToken         string
	ExactThreshold        float64
	LikelyThreshold       float64
	MetadataWindowHours   float64
	CandidateWindowHours  float64
	CandidateLimit        int
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on ticket API requests")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for the Claude LLM provider (empty = rule-based classification only)")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.Float64Var(&c.ConfidenceThreshold, "confidence-threshold", 0.8, "minimum model confidence before a classification needs human review (0..1]")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for duplicate notifications")
	fs.StringVar(&c.EmbedEndpoint, "embed-endpoint", "", "embedding service base URL (empty = no semantic dedup)")
	fs.StringVar(&c.EmbedModel, "embed-model", "", "embedding model name passed to the embedding service")
	fs.StringVar(&c.IncidentEndpoint, "incident-endpoint", "", "incident service base URL (empty = no incident linking)")
	fs.StringVar(&c.IncidentToken, "incident-token", "", "bearer token for the incident service")
	fs.Float64Var(&c.ExactThreshold, "exact-threshold", 0.92, "cosine similarity at or above which a pair auto-merges (0..1]")
	fs.Float64Var(&c.LikelyThreshold, "likely-threshold", 0.85, "cosine similarity at or above which a pair goes to agent review (0..1]")
	fs.Float64Var(&c.MetadataWindowHours, "metadata-window-hours", 1.0, "timeframe in hours for metadata-based duplicate matching (> 0)")
	fs.Float64Var(&c.CandidateWindowHours, "candidate-window-hours", 24.0, "how far back to fetch dedup candidates, in hours (> 0)")
	fs.IntVar(&c.CandidateLimit, "candidate-limit", 200, "maximum candidates compared per dedup check (> 0)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// API token protects the public ticket endpoints
	if c.APIToken == "" {
		errs = append(errs, errors.New("API_TOKEN is required"))
	}

	// Model is only consulted when a key is configured
	if c.ClaudeAPIKey != "" && c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required when CLAUDE_API_KEY is set"))
	}

	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("invalid CONFIDENCE_THRESHOLD %v (must be in (0, 1])", c.ConfidenceThreshold))
	}

	if c.ExactThreshold <= 0 || c.ExactThreshold > 1 {
		errs = append(errs, fmt.Errorf("invalid EXACT_THRESHOLD %v (must be in (0, 1])", c.ExactThreshold))
	}
	if c.LikelyThreshold <= 0 || c.LikelyThreshold > 1 {
		errs = append(errs, fmt.Errorf("invalid LIKELY_THRESHOLD %v (must be in (0, 1])", c.LikelyThreshold))
	}
	if c.LikelyThreshold > c.ExactThreshold {
		errs = append(errs, fmt.Errorf("LIKELY_THRESHOLD %v must not exceed EXACT_THRESHOLD %v", c.LikelyThreshold, c.ExactThreshold))
	}

	if c.MetadataWindowHours <= 0 {
		errs = append(errs, fmt.Errorf("invalid METADATA_WINDOW_HOURS %v (must be > 0)", c.MetadataWindowHours))
	}
	if c.CandidateWindowHours <= 0 {
		errs = append(errs, fmt.Errorf("invalid CANDIDATE_WINDOW_HOURS %v (must be > 0)", c.CandidateWindowHours))
	}
	if c.CandidateLimit <= 0 {
		errs = append(errs, fmt.Errorf("invalid CANDIDATE_LIMIT %d (must be > 0)", c.CandidateLimit))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
