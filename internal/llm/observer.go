package llm

import (
	"context"
	"time"
)

// Observer is notified after every completion call, whether it succeeded or
// not. Implementations must not block.
type Observer interface {
	OnLLMCall(ctx context.Context, event CallEvent)
}

// CallEvent describes one completion call.
type CallEvent struct {
	Provider     string
	Model        string
	Stream       bool
	Usage        Usage
	FinishReason string
	ResponseSize int
	StartedAt    time.Time
	Duration     time.Duration
	// Err is nil on success.
	Err error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, event CallEvent)

// OnLLMCall calls f.
func (f ObserverFunc) OnLLMCall(ctx context.Context, event CallEvent) { f(ctx, event) }
