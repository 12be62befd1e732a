// File path: internal/llm/providers/provider.go
package providers

import "context"

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Params tunes one chat call. Zero values mean provider defaults.
type Params struct {
	Temperature *float32
	MaxTokens   int
	JSONObject  bool
}

// Provider sends chat requests to one model family.
type Provider interface {
	Chat(ctx context.Context, model string, messages []Message, params Params) (string, error)
	Name() string
}
