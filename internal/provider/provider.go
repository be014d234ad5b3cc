// Package provider defines the contract the gateway needs from an upstream
// language-model provider and an OpenAI-compatible implementation of it.
package provider

import (
	"context"
)

type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

type Completion struct {
	Content      string
	InputTokens  int
	OutputTokens int

	// UsageMissing is set when the provider omitted usage counts; token
	// fields are zero and the usage-log entry is flagged.
	UsageMissing bool
}

// Client is a single credential pool's connection to the upstream provider.
type Client interface {
	CreateCompletion(ctx context.Context, req *Request) (*Completion, error)
}
