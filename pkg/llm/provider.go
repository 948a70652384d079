// Package llm abstracts chat-completion providers behind a single
// tool-aware interface so the orchestrator never touches vendor SDKs.
package llm

import (
	"context"
	"fmt"
)

// Message roles understood by every provider adapter.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Provider is a chat-completion backend.
type Provider interface {
	// Call performs one model invocation.
	Call(ctx context.Context, request Request) (*Response, error)

	// Name returns the provider name.
	Name() string
}

// Message is one conversation turn in provider-neutral form.
type Message struct {
	Role       string
	Content    string
	ToolCallID string
	ToolCalls  []ToolCall
}

// ToolCall is a model request to invoke a named tool with parsed
// arguments.
type ToolCall struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

// ToolSchema declares a tool the model may call. InputSchema is a JSON
// Schema object.
type ToolSchema struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Request contains the parameters for one model invocation.
type Request struct {
	Model        string
	SystemPrompt string
	Messages     []Message
	Tools        []ToolSchema
	Temperature  float64
	MaxTokens    int
}

// Response is the provider-neutral model output.
type Response struct {
	Content   string
	ToolCalls []ToolCall
	Usage     *TokenUsage
}

// TokenUsage reports token accounting for one call.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// NewProvider constructs the provider named by the configuration.
func NewProvider(name, apiKey string) (Provider, error) {
	switch name {
	case "openai":
		return NewOpenAIProvider(apiKey), nil
	case "anthropic":
		return NewAnthropicProvider(apiKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}
