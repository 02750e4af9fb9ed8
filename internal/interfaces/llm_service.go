package interfaces

import (
	"context"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// GenerateRequest is a provider-agnostic structured generation request.
// When OutputSchema is set the provider is asked for JSON matching it.
type GenerateRequest struct {
	Messages          []Message
	Model             string
	SystemInstruction string
	Temperature       float32
	MaxTokens         int
	OutputSchema      map[string]interface{}
}

// ContentGenerator generates text from a language model. The correction
// gateway and the synthesis stage depend on this rather than on a concrete
// provider so tests can substitute canned responses.
type ContentGenerator interface {
	Generate(ctx context.Context, request *GenerateRequest) (string, error)

	// Available reports whether a provider is configured (API key present).
	Available() bool
}
