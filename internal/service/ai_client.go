package service

import (
	"context"

	"listingfilter/internal/model"
)

// ChatClient is the interface for OpenAI-compatible chat providers
type ChatClient interface {
	// ChatCompletion performs a single non-streaming completion
	ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error)

	// ChatCompletionStream performs a streaming completion, calling callback per chunk
	ChatCompletionStream(ctx context.Context, req ChatCompletionRequest, callback StreamCallback) error

	// IsEnabled returns whether the client is configured and ready
	IsEnabled() bool
}

// QueryDispatcher turns a filter query plus the dataset into a raw model reply
type QueryDispatcher interface {
	Dispatch(ctx context.Context, query string, listings []model.Listing) (string, error)
}

// StreamDispatcher is a QueryDispatcher that can also stream the reply as it is generated
type StreamDispatcher interface {
	QueryDispatcher
	DispatchStream(ctx context.Context, query string, listings []model.Listing, onChunk StreamCallback) (string, error)
}

// StreamChunk represents a generic streaming response chunk
type StreamChunk struct {
	// Regular content
	Content string

	// Thinking/reasoning content (provider-specific, e.g., DeepSeek)
	ThinkingContent string

	// Set on the chunk carrying a finish_reason
	Done bool
}

// StreamChunkParser is the interface for provider-specific chunk parsing
type StreamChunkParser interface {
	ParseChunk(data []byte) (*StreamChunk, error)
}

// StreamCallback is called for each chunk in streaming mode
type StreamCallback func(chunk *StreamChunk) error

// Ensure implementations satisfy the interfaces
var (
	_ ChatClient       = (*OpenAIClient)(nil)
	_ StreamDispatcher = (*Dispatcher)(nil)
)
