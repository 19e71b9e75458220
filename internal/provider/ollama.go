package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"
)

// OllamaInvoker implements Invoker for a local Ollama server. Runs
// models locally - no data sent to external APIs.
type OllamaInvoker struct {
	client *api.Client
	name   string
	logger zerolog.Logger
}

// NewOllamaInvoker creates an invoker for the Ollama family.
func NewOllamaInvoker(cfg Config, logger zerolog.Logger) (*OllamaInvoker, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434" // Default Ollama URL
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("provider %s: invalid ollama URL: %w", cfg.Name, err)
	}

	return &OllamaInvoker{
		client: api.NewClient(parsedURL, http.DefaultClient),
		name:   cfg.Name,
		logger: logger,
	}, nil
}

// Invoke sends the transcript to the Ollama chat API without
// streaming and collects the final response.
func (oi *OllamaInvoker) Invoke(ctx context.Context, messages []Message, params Params) (*Result, error) {
	chatMessages := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		chatMessages = append(chatMessages, api.Message{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	options := map[string]any{
		"temperature": params.Temperature,
	}
	if params.MaxTokens > 0 {
		options["num_predict"] = params.MaxTokens
	}
	if params.TopP > 0 {
		options["top_p"] = params.TopP
	}

	stream := false
	req := &api.ChatRequest{
		Model:    params.Model,
		Messages: chatMessages,
		Stream:   &stream,
		Options:  options,
	}

	var content strings.Builder
	var last api.ChatResponse
	err := oi.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		last = resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama API error: %w", err)
	}

	result := &Result{
		Content:      content.String(),
		InputTokens:  last.Metrics.PromptEvalCount,
		OutputTokens: last.Metrics.EvalCount,
		Model:        params.Model,
	}

	oi.logger.Debug().
		Str("provider", oi.name).
		Str("model", params.Model).
		Int("input_tokens", result.InputTokens).
		Int("output_tokens", result.OutputTokens).
		Int64("duration_ms", last.Metrics.TotalDuration.Milliseconds()).
		Msg("Ollama chat request completed")

	return result, nil
}
