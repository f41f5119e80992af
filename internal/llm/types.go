// Package llm talks to chat-completion APIs. Every backend implements
// Provider; NewProvider picks one by name and the wrappers in this package
// add rate limiting and retries on top.
package llm

import "context"

// Provider is a chat-completion backend.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Name() string
}

// Role is the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat prompt.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is provider-neutral. An empty Model selects the
// provider's configured model and a zero MaxTokens the package default.
// JSONMode asks the backend for a JSON object where it supports that.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// CompletionResponse carries the generated text and token usage.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

// SystemUser builds the usual two-message prompt.
func SystemUser(system, user string) []Message {
	return []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: user},
	}
}

const defaultMaxTokens = 1024
