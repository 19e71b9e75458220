package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
)

// AnthropicInvoker implements Invoker for Anthropic's Claude API.
type AnthropicInvoker struct {
	client anthropic.Client
	name   string
	logger zerolog.Logger
}

// NewAnthropicInvoker creates an invoker for the Anthropic family.
func NewAnthropicInvoker(cfg Config, logger zerolog.Logger) (*AnthropicInvoker, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider %s: API key is required", cfg.Name)
	}

	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
	)

	return &AnthropicInvoker{
		client: client,
		name:   cfg.Name,
		logger: logger,
	}, nil
}

// Invoke sends the transcript to the Messages API. System messages are
// collected into the request's system field; the rest keep their roles.
func (ai *AnthropicInvoker) Invoke(ctx context.Context, messages []Message, params Params) (*Result, error) {
	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	req := anthropic.MessageNewParams{
		Model:       anthropic.Model(params.Model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(params.Temperature),
	}
	if params.TopP > 0 {
		req.TopP = anthropic.Float(params.TopP)
	}

	for _, m := range messages {
		switch m.Role {
		case "system":
			req.System = append(req.System, anthropic.TextBlockParam{
				Text: m.Content,
				Type: "text",
			})
		case "assistant":
			req.Messages = append(req.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			req.Messages = append(req.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	message, err := ai.client.Messages.New(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	if len(message.Content) == 0 {
		return nil, fmt.Errorf("empty response from %s", ai.name)
	}

	var content strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	result := &Result{
		Content:      content.String(),
		InputTokens:  int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
		Model:        string(message.Model),
	}

	ai.logger.Debug().
		Str("provider", ai.name).
		Str("model", result.Model).
		Int("input_tokens", result.InputTokens).
		Int("output_tokens", result.OutputTokens).
		Str("stop_reason", string(message.StopReason)).
		Msg("Claude API request completed")

	return result, nil
}
