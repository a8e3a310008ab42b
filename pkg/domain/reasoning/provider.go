// Package reasoning defines the contract between the decision pipeline and
// the external reasoning service. The pipeline never produces natural
// language itself; it validates what comes back and falls back
// deterministically when the service misbehaves.
package reasoning

import "context"

// Message is one turn of a reasoning conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request is the uniform shape of every reasoning call the pipeline makes.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// Response is the raw reasoning answer plus usage accounting.
type Response struct {
	Text  string
	Model string
	Usage TokenUsage
}

// TokenUsage tracks costs.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// Provider is the interface all reasoning backends implement.
type Provider interface {
	ID() string
	Complete(ctx context.Context, req Request) (*Response, error)
}
