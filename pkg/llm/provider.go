// Package llm provides abstractions for LLM provider integration.
//
// Providers handle API communication with LLM services and return plain
// completion text. This keeps providers focused on LLM concerns without
// coupling them to planning or orchestration: the planner package turns
// completions into plans, and providers stay reusable and independently
// testable.
package llm

import "context"

// Message is a single chat message sent to a provider.
type Message struct {
	Role    string
	Content string
}

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SystemMessage builds a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Provider defines the interface for LLM integrations.
type Provider interface {
	// Complete sends messages to the LLM and returns the full response
	// text. The call blocks until the model answers or ctx is done.
	Complete(ctx context.Context, messages []Message) (string, error)

	// GetModel returns the model name being used.
	GetModel() string
}
