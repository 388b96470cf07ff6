// Package llm defines the provider-neutral contract for language model
// backends used by classification and field extraction.
package llm

import "context"

// Provider is the interface for any LLM backend.
type Provider interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// Request represents the input to the LLM provider.
type Request struct {
	MaxTokens int
	System    string
	Messages  []Message
}

// Message is a single turn in the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response represents the output from the LLM provider, including the
// generated text, stop reason, and token usage.
type Response struct {
	Text       string
	StopReason StopReason
	Usage      Usage
}

// StopReason indicates why the model stopped generating.
type StopReason string

const (
	StopEnd       StopReason = "end_turn"
	StopMaxTokens StopReason = "max_tokens"
)

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
