package chat

import (
	"context"
	"testing"

	"github.com/aoba-labs/mocabot/internal/memory"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("LLM_TEMPERATURE", "")

	config := DefaultConfig()
	if config.Model != "deepseek-chat" {
		t.Errorf("Expected default model, got %q", config.Model)
	}
	if config.Temperature != 1.3 {
		t.Errorf("Expected default temperature 1.3, got %f", config.Temperature)
	}

	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("LLM_TEMPERATURE", "0.7")
	config = DefaultConfig()
	if config.Model != "gpt-4o-mini" {
		t.Errorf("Expected gpt-4o-mini, got %q", config.Model)
	}
	if config.Temperature != 0.7 {
		t.Errorf("Expected temperature 0.7, got %f", config.Temperature)
	}

	t.Setenv("LLM_TEMPERATURE", "not a number")
	if got := DefaultConfig().Temperature; got != 1.3 {
		t.Errorf("Unparseable temperature should fall back, got %f", got)
	}
}

func TestNewOpenAICompleter_ValidatesConfig(t *testing.T) {
	if _, err := NewOpenAICompleter(Config{Model: "m"}); err == nil {
		t.Error("Expected error for missing API key")
	}
	if _, err := NewOpenAICompleter(Config{APIKey: "k"}); err == nil {
		t.Error("Expected error for missing model")
	}
	if _, err := NewOpenAICompleter(Config{APIKey: "k", Model: "m"}); err != nil {
		t.Errorf("Valid config rejected: %v", err)
	}
}

func TestMockCompleter_ConsumesReplies(t *testing.T) {
	mock := &MockCompleter{Reply: "fallback", Replies: []string{"one", "two"}}
	turns := []memory.Turn{{Role: memory.RoleUser, Content: "hi"}}

	for _, want := range []string{"one", "two", "fallback"} {
		reply, err := mock.Complete(context.Background(), turns)
		if err != nil {
			t.Fatalf("Complete failed: %v", err)
		}
		if reply.Text != want {
			t.Errorf("Expected %q, got %q", want, reply.Text)
		}
	}
	if mock.Calls != 3 {
		t.Errorf("Expected 3 calls, got %d", mock.Calls)
	}
	if len(mock.LastTurns) != 1 || mock.LastTurns[0].Content != "hi" {
		t.Errorf("LastTurns not recorded: %+v", mock.LastTurns)
	}
}
