package rewrite

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jmylchreest/listingopt/internal/domain"
	"github.com/jmylchreest/listingopt/internal/llm"
	"github.com/jmylchreest/listingopt/internal/logger"
)

// Config selects the completion provider and sampling parameters.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	// EnvKey names the variable the key is usually read from; used only in
	// the missing-credential message.
	EnvKey     string
	HTTPClient *http.Client
}

// DefaultConfig returns the tuning the prompt was written for.
func DefaultConfig() Config {
	return Config{
		Provider:    "groq",
		Temperature: 0.7,
		MaxTokens:   2048,
		Timeout:     90 * time.Second,
		EnvKey:      "GROQ_API_KEY",
	}
}

// ProviderFactory builds a provider; llm.NewProvider by default.
type ProviderFactory func(name string, cfg llm.ProviderConfig) (llm.Provider, error)

// Requester sends listings to the completion provider. The provider is
// created on first use and shared by all callers afterwards.
type Requester struct {
	cfg      Config
	factory  ProviderFactory
	observer llm.Observer

	mu       sync.Mutex
	provider llm.Provider
}

// Option configures a Requester.
type Option func(*Requester)

// WithProviderFactory replaces how the provider is constructed.
func WithProviderFactory(f ProviderFactory) Option {
	return func(r *Requester) { r.factory = f }
}

// WithProvider uses p instead of building one from Config.
func WithProvider(p llm.Provider) Option {
	return func(r *Requester) { r.provider = p }
}

// WithObserver reports every completion call to o.
func WithObserver(o llm.Observer) Option {
	return func(r *Requester) { r.observer = o }
}

// New creates a Requester. No provider is contacted and no credential is
// checked until the first request.
func New(cfg Config, opts ...Option) *Requester {
	d := DefaultConfig()
	if cfg.Provider == "" {
		cfg.Provider = d.Provider
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = d.MaxTokens
	}
	r := &Requester{cfg: cfg, factory: llm.NewProvider}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// client returns the shared provider, creating it if needed. Failed
// attempts are not remembered, so a later call can succeed.
func (r *Requester) client() (llm.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.provider != nil {
		return r.provider, nil
	}

	if r.cfg.APIKey == "" && llm.RequiresAPIKey(r.cfg.Provider) {
		hint := r.cfg.EnvKey
		if hint == "" {
			hint = "llm.api_key"
		}
		return nil, domain.Errorf(domain.KindConfiguration, "rewrite",
			"%s API key not configured (set %s)", r.cfg.Provider, hint)
	}

	p, err := r.factory(r.cfg.Provider, llm.ProviderConfig{
		APIKey:     r.cfg.APIKey,
		BaseURL:    r.cfg.BaseURL,
		Model:      r.cfg.Model,
		Timeout:    r.cfg.Timeout,
		HTTPClient: r.cfg.HTTPClient,
	})
	if err != nil {
		return nil, domain.NewError(domain.KindConfiguration, "rewrite", err)
	}

	logger.Debug("completion provider initialized", "provider", p.Name(), "model", r.cfg.Model)
	r.provider = p
	return p, nil
}

func (r *Requester) request(p llm.Provider, listing domain.Listing) llm.CompletionRequest {
	return llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: SystemPrompt},
			{Role: llm.RoleUser, Content: BuildPrompt(listing)},
		},
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
		JSONMode:    p.SupportsJSONMode(),
	}
}

// Optimize requests a rewrite and waits for the complete answer.
func (r *Requester) Optimize(ctx context.Context, listing domain.Listing) (domain.Rewrite, error) {
	p, err := r.client()
	if err != nil {
		return domain.Rewrite{}, err
	}

	start := time.Now()
	logger.DebugContext(ctx, "sending listing to completion provider", "provider", p.Name(), "mode", "sync")

	resp, err := p.Complete(ctx, r.request(p, listing))
	r.observe(ctx, p, false, start, resp, len(resp.Content), err)
	if err != nil {
		return domain.Rewrite{}, completionError(err)
	}

	logger.DebugContext(ctx, "completion received",
		"provider", p.Name(),
		"response_len", len(resp.Content),
		"finish_reason", resp.FinishReason,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"duration", time.Since(start))

	return ParseResponse(resp.Content)
}

// OptimizeStream requests a rewrite in streaming mode. Chunks are collected
// into one buffer and parsed once the stream ends, so the result equals what
// Optimize would return for the same text.
func (r *Requester) OptimizeStream(ctx context.Context, listing domain.Listing) (domain.Rewrite, error) {
	p, err := r.client()
	if err != nil {
		return domain.Rewrite{}, err
	}

	start := time.Now()
	logger.DebugContext(ctx, "sending listing to completion provider", "provider", p.Name(), "mode", "stream")

	var (
		buf    strings.Builder
		chunks int
	)
	resp, err := p.Stream(ctx, r.request(p, listing), func(chunk string) {
		buf.WriteString(chunk)
		chunks++
	})
	r.observe(ctx, p, true, start, resp, buf.Len(), err)
	if err != nil {
		return domain.Rewrite{}, completionError(err)
	}

	logger.DebugContext(ctx, "completion stream finished",
		"provider", p.Name(),
		"chunks", chunks,
		"response_len", buf.Len(),
		"finish_reason", resp.FinishReason,
		"duration", time.Since(start))

	return ParseResponse(buf.String())
}

func (r *Requester) observe(ctx context.Context, p llm.Provider, stream bool, start time.Time,
	resp llm.CompletionResponse, size int, err error) {
	if r.observer == nil {
		return
	}
	model := resp.Model
	if model == "" {
		model = r.cfg.Model
	}
	r.observer.OnLLMCall(ctx, llm.CallEvent{
		Provider:     p.Name(),
		Model:        model,
		Stream:       stream,
		Usage:        resp.Usage,
		FinishReason: resp.FinishReason,
		ResponseSize: size,
		StartedAt:    start,
		Duration:     time.Since(start),
		Err:          err,
	})
}

func completionError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewError(domain.KindTimeout, "rewrite", fmt.Errorf("completion request timed out: %w", err))
	}
	return domain.NewError(domain.KindUnknown, "rewrite", fmt.Errorf("completion request failed: %w", err))
}
