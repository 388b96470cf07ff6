// Package ticket defines the canonical normalized ticket produced by
// ingestion and consumed by every downstream pipeline stage.
package ticket

import "time"

// Source identifies the channel a ticket arrived through.
type Source string

const (
	SourceEmail   Source = "email"
	SourceWebForm Source = "web_form"
	SourceChat    Source = "chat"
	SourceCRM     Source = "crm_import"
	SourceSlack   Source = "slack"
	SourceTeams   Source = "teams"
)

// Valid reports whether s is a known ticket source.
func (s Source) Valid() bool {
	switch s {
	case SourceEmail, SourceWebForm, SourceChat, SourceCRM, SourceSlack, SourceTeams:
		return true
	}
	return false
}

// Customer holds optional customer/account context from the source or CRM.
type Customer struct {
	CustomerID string            `json:"customer_id,omitempty"`
	Company    string            `json:"company,omitempty"`
	Email      string            `json:"email,omitempty"`
	Name       string            `json:"name,omitempty"`
	AccountID  string            `json:"account_id,omitempty"`
	PlanTier   string            `json:"plan_tier,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Ticket is the single canonical representation after ingestion.
//
// TicketID is assigned by ingestion and stable for dedup and linking.
// RawText preserves the original body for auditing; CleanedText is the
// normalized form classification, extraction, and dedup operate on.
type Ticket struct {
	TicketID        string            `json:"ticket_id"`
	Source          Source            `json:"source"`
	RawText         string            `json:"raw_text"`
	CleanedText     string            `json:"cleaned_text"`
	Subject         string            `json:"subject,omitempty"`
	Customer        Customer          `json:"customer"`
	ReceivedAt      time.Time         `json:"received_at"`
	SourceID        string            `json:"source_id,omitempty"`
	Attachments     []string          `json:"attachments,omitempty"`
	ChannelMetadata map[string]string `json:"channel_metadata,omitempty"`
}
