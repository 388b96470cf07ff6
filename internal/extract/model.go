package extract

// Fields are the required fields pulled out of a ticket body. Everything is
// optional; extraction reports what it found and leaves the rest empty.
type Fields struct {
	CustomerName         string   `json:"customer_name,omitempty"`
	Company              string   `json:"company,omitempty"`
	AccountID            string   `json:"account_id,omitempty"`
	Product              string   `json:"product,omitempty"`
	IssueType            string   `json:"issue_type,omitempty"`
	Environment          string   `json:"environment,omitempty"`
	ErrorMessage         string   `json:"error_message,omitempty"`
	Urgency              string   `json:"urgency,omitempty"`
	Timestamp            string   `json:"timestamp,omitempty"`
	StepsToReproduce     string   `json:"steps_to_reproduce,omitempty"`
	AttachmentsMentioned []string `json:"attachments_mentioned,omitempty"`
}

// Result is the extraction output for one ticket.
type Result struct {
	TicketID string `json:"ticket_id"`
	Fields   Fields `json:"fields"`

	// Degraded is set when the model call failed or returned garbage and
	// Fields came from the regex fallback instead.
	Degraded bool `json:"degraded,omitempty"`
}
