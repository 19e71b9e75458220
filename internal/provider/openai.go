package provider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
)

// GroqBaseURL is the OpenAI-compatible endpoint for Groq. The Groq
// family reuses the OpenAI adapter with this base URL.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// OpenAIInvoker implements Invoker for OpenAI-compatible chat APIs
// (OpenAI itself and Groq).
type OpenAIInvoker struct {
	client openai.Client
	name   string
	logger zerolog.Logger
}

// NewOpenAIInvoker creates an invoker for the OpenAI or Groq family.
func NewOpenAIInvoker(cfg Config, logger zerolog.Logger) (*OpenAIInvoker, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider %s: API key is required", cfg.Name)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}

	baseURL := cfg.BaseURL
	if baseURL == "" && cfg.Family == FamilyGroq {
		baseURL = GroqBaseURL
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIInvoker{
		client: openai.NewClient(opts...),
		name:   cfg.Name,
		logger: logger,
	}, nil
}

// Invoke sends the transcript to the chat completions API.
func (oi *OpenAIInvoker) Invoke(ctx context.Context, messages []Message, params Params) (*Result, error) {
	chatMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			chatMessages = append(chatMessages, openai.SystemMessage(m.Content))
		case "assistant":
			chatMessages = append(chatMessages, openai.AssistantMessage(m.Content))
		default:
			chatMessages = append(chatMessages, openai.UserMessage(m.Content))
		}
	}

	req := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(params.Model),
		Messages:    chatMessages,
		Temperature: openai.Float(params.Temperature),
	}
	if params.MaxTokens > 0 {
		req.MaxTokens = openai.Int(int64(params.MaxTokens))
	}
	if params.TopP > 0 {
		req.TopP = openai.Float(params.TopP)
	}

	completion, err := oi.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("empty response from %s", oi.name)
	}

	result := &Result{
		Content:      completion.Choices[0].Message.Content,
		InputTokens:  int(completion.Usage.PromptTokens),
		OutputTokens: int(completion.Usage.CompletionTokens),
		Model:        completion.Model,
	}

	oi.logger.Debug().
		Str("provider", oi.name).
		Str("model", result.Model).
		Int("input_tokens", result.InputTokens).
		Int("output_tokens", result.OutputTokens).
		Msg("Chat completion request completed")

	return result, nil
}
