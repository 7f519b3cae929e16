package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

// OllamaProvider communicates with a local Ollama instance.
type OllamaProvider struct {
	client *resty.Client
	model  string
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(cfg ProviderConfig) (*OllamaProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = OllamaBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModels["ollama"]
	}

	client := resty.NewWithClient(cfg.httpClient()).
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &OllamaProvider{client: client, model: model}, nil
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Format   string          `json:"format,omitempty"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	DoneReason      string        `json:"done_reason"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
	Error           string        `json:"error"`
}

func (p *OllamaProvider) request(req CompletionRequest, stream bool) ollamaRequest {
	messages := make([]ollamaMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, ollamaMessage{Role: string(msg.Role), Content: msg.Content})
	}

	out := ollamaRequest{
		Model:    p.model,
		Messages: messages,
		Stream:   stream,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}
	if req.JSONMode {
		out.Format = "json"
	}
	return out
}

func (r ollamaResponse) finish(out *CompletionResponse) {
	out.Model = r.Model
	out.FinishReason = r.DoneReason
	if out.FinishReason == "" {
		out.FinishReason = "stop"
	}
	out.Usage = Usage{InputTokens: r.PromptEvalCount, OutputTokens: r.EvalCount}
}

// Complete sends a completion request to Ollama.
func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	var result ollamaResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(p.request(req, false)).
		SetResult(&result).
		Post("/api/chat")
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("ollama request failed: %w", err)
	}
	if resp.IsError() {
		return CompletionResponse{}, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode(), resp.String())
	}

	out := CompletionResponse{Content: result.Message.Content}
	result.finish(&out)
	return out, nil
}

// Stream reads Ollama's newline-delimited JSON stream.
func (p *OllamaProvider) Stream(ctx context.Context, req CompletionRequest, onChunk ChunkFunc) (CompletionResponse, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(p.request(req, true)).
		SetDoNotParseResponse(true).
		Post("/api/chat")
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("ollama request failed: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() >= 400 {
		return CompletionResponse{}, fmt.Errorf("ollama returned status %d", resp.StatusCode())
	}

	var (
		sb  strings.Builder
		out CompletionResponse
	)
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var chunk ollamaResponse
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			return CompletionResponse{}, fmt.Errorf("failed to decode ollama stream line: %w", err)
		}
		if chunk.Error != "" {
			return CompletionResponse{}, fmt.Errorf("ollama stream error: %s", chunk.Error)
		}
		sb.WriteString(chunk.Message.Content)
		emit(onChunk, chunk.Message.Content)
		if chunk.Done {
			chunk.finish(&out)
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return CompletionResponse{}, fmt.Errorf("ollama stream read failed: %w", err)
	}

	out.Content = sb.String()
	return out, nil
}

// Name returns the provider identifier.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// SupportsJSONMode returns true; Ollama accepts format "json".
func (p *OllamaProvider) SupportsJSONMode() bool {
	return true
}

func init() {
	RegisterProvider("ollama", func(cfg ProviderConfig) (Provider, error) {
		return NewOllamaProvider(cfg)
	})
}
