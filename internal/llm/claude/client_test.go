package claude

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/linnemanlabs/ticketflow/internal/llm"
)

func TestToSDKMessages(t *testing.T) {
	t.Parallel()

	msgs := []llm.Message{
		{Role: llm.RoleUser, Content: "classify this ticket"},
		{Role: llm.RoleAssistant, Content: `{"category":"technical_issue"}`},
	}

	result := toSDKMessages(msgs)

	if len(result) != 2 {
		t.Fatalf("len = %d, want 2", len(result))
	}
	if result[0].Role != "user" {
		t.Errorf("role = %q, want %q", result[0].Role, "user")
	}
	if len(result[0].Content) != 1 {
		t.Fatalf("content len = %d, want 1", len(result[0].Content))
	}
	if result[0].Content[0].OfText == nil {
		t.Fatal("expected OfText to be set")
	}
	if result[0].Content[0].OfText.Text != "classify this ticket" {
		t.Errorf("text = %q, want %q", result[0].Content[0].OfText.Text, "classify this ticket")
	}
	if result[1].Role != "assistant" {
		t.Errorf("role = %q, want %q", result[1].Role, "assistant")
	}
}

func TestFromSDKResponse_TextContent(t *testing.T) {
	t.Parallel()

	msg := &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "first "},
			{Type: "text", Text: "second"},
		},
		StopReason: anthropic.StopReasonEndTurn,
		Usage:      anthropic.Usage{InputTokens: 100, OutputTokens: 50},
	}

	result := fromSDKResponse(msg)

	if result.Text != "first second" {
		t.Errorf("text = %q, want %q", result.Text, "first second")
	}
	if result.StopReason != llm.StopEnd {
		t.Errorf("stop reason = %q, want %q", result.StopReason, llm.StopEnd)
	}
}

func TestFromSDKResponse_StopReasons(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sdk      anthropic.StopReason
		expected llm.StopReason
	}{
		{"end_turn", anthropic.StopReasonEndTurn, llm.StopEnd},
		{"max_tokens", anthropic.StopReasonMaxTokens, llm.StopMaxTokens},
		{"unknown passes through", anthropic.StopReason("refusal"), llm.StopReason("refusal")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg := &anthropic.Message{
				StopReason: tt.sdk,
				Usage:      anthropic.Usage{},
			}
			result := fromSDKResponse(msg)
			if result.StopReason != tt.expected {
				t.Errorf("stop reason = %q, want %q", result.StopReason, tt.expected)
			}
		})
	}
}

func TestFromSDKResponse_Usage(t *testing.T) {
	t.Parallel()

	msg := &anthropic.Message{
		StopReason: anthropic.StopReasonEndTurn,
		Usage:      anthropic.Usage{InputTokens: 1234, OutputTokens: 567},
	}

	result := fromSDKResponse(msg)

	if result.Usage.InputTokens != 1234 {
		t.Errorf("input tokens = %d, want 1234", result.Usage.InputTokens)
	}
	if result.Usage.OutputTokens != 567 {
		t.Errorf("output tokens = %d, want 567", result.Usage.OutputTokens)
	}
}
