package chat

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/aoba-labs/mocabot/internal/memory"
)

// OpenAICompleter implements the Completer interface using OpenAI's chat
// API, or any OpenAI-compatible endpoint via Config.BaseURL.
type OpenAICompleter struct {
	client openai.Client
	config Config
}

// NewOpenAICompleter creates a new OpenAI completer instance
func NewOpenAICompleter(config Config) (*OpenAICompleter, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ErrInvalidConfig)
	}
	if config.Model == "" {
		return nil, fmt.Errorf("%w: missing model", ErrInvalidConfig)
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &OpenAICompleter{
		client: openai.NewClient(opts...),
		config: config,
	}, nil
}

// Complete sends the full transcript and returns the model's reply.
func (c *OpenAICompleter) Complete(ctx context.Context, turns []memory.Turn) (*Reply, error) {
	if len(turns) == 0 {
		return nil, ErrEmptyHistory
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case memory.RoleSystem:
			messages = append(messages, openai.SystemMessage(turn.Content))
		case memory.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       shared.ChatModel(c.config.Model),
		Temperature: openai.Float(c.config.Temperature),
	}
	if c.config.MaxTokens > 0 {
		params.MaxTokens = openai.Int(c.config.MaxTokens)
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrCompletionFailed)
	}

	return &Reply{
		Text: completion.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			TotalTokens:      completion.Usage.TotalTokens,
		},
	}, nil
}
