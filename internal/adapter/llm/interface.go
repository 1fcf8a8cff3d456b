// Package llm provides an abstraction for OpenAI-compatible model backends.
package llm

import "context"

// LLMClient defines the interface for model backend operations.
type LLMClient interface {
	// CreateChatCompletion sends a chat completion request (non-streaming).
	// Used for plain text generation and, with a ResponseFormat, for structured generation.
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)

	// CreateChatCompletionStream sends a streaming chat completion request.
	// The callback is called for each chunk received.
	CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) (*Usage, error)
}

// Ensure Client implements LLMClient interface.
var _ LLMClient = (*Client)(nil)
