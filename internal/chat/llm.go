package chat

import (
	"context"
	"errors"
	"os"
	"strconv"

	"github.com/aoba-labs/mocabot/internal/memory"
)

// Common errors for completion operations
var (
	ErrCompletionFailed = errors.New("chat completion failed")
	ErrInvalidConfig    = errors.New("invalid completion configuration")
	ErrEmptyHistory     = errors.New("no turns to complete")
)

// Usage reports token consumption for a single completion.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Reply is the model's answer to a conversation transcript.
type Reply struct {
	Text  string
	Usage Usage
}

// Completer produces a reply for a full conversation transcript.
type Completer interface {
	Complete(ctx context.Context, turns []memory.Turn) (*Reply, error)
}

// Config holds completion configuration
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int64
	APIKey      string
	BaseURL     string
}

// DefaultConfig returns configuration from environment variables with
// sensible defaults. OPENAI_BASE_URL supports OpenAI-compatible
// endpoints such as DeepSeek.
func DefaultConfig() Config {
	temperature := 1.3
	if raw := os.Getenv("LLM_TEMPERATURE"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			temperature = parsed
		}
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "deepseek-chat"
	}

	return Config{
		Model:       model,
		Temperature: temperature,
		APIKey:      os.Getenv("OPENAI_API_KEY"),
		BaseURL:     os.Getenv("OPENAI_BASE_URL"),
	}
}
