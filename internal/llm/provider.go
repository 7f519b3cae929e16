// Package llm provides a unified interface for chat completion providers.
package llm

import (
	"context"
	"net/http"
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a chat message.
type Message struct {
	Role    Role
	Content string
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// CompletionRequest represents a request to the LLM.
type CompletionRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
	// JSONMode asks the provider to constrain output to a single JSON object
	// where it has a native switch for that.
	JSONMode bool
}

// CompletionResponse represents the LLM response.
type CompletionResponse struct {
	Content      string
	FinishReason string
	Usage        Usage
	Model        string
}

// ChunkFunc receives each text fragment of a streamed completion in order.
type ChunkFunc func(chunk string)

// Provider is the core abstraction over LLM backends. Implementations are
// safe for concurrent use.
type Provider interface {
	// Complete sends a completion request and waits for the full answer.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// Stream sends a completion request in streaming mode, calling onChunk
	// for every text fragment. The returned response carries the assembled
	// content.
	Stream(ctx context.Context, req CompletionRequest, onChunk ChunkFunc) (CompletionResponse, error)

	// Name returns the provider identifier.
	Name() string

	// SupportsJSONMode reports whether JSONMode is honoured natively.
	SupportsJSONMode() bool
}

// ProviderConfig holds common configuration for providers.
type ProviderConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
	Timeout    time.Duration
	HTTPClient *http.Client // optional, mainly for tests
}

func (c ProviderConfig) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.Timeout}
}

func defaultMaxTokens(n int) int {
	if n <= 0 {
		return 2048
	}
	return n
}

func emit(onChunk ChunkFunc, s string) {
	if onChunk != nil && s != "" {
		onChunk(s)
	}
}
