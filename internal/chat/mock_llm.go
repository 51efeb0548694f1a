package chat

import (
	"context"

	"github.com/aoba-labs/mocabot/internal/memory"
)

// MockCompleter is a deterministic Completer implementation for testing.
type MockCompleter struct {
	// Reply is the text returned by Complete.
	Reply string

	// Replies, if non-empty, is consumed one element per call before
	// falling back to Reply.
	Replies []string

	// Err, if set, is returned by Complete instead of a reply.
	Err error

	// Usage is attached to every reply.
	Usage Usage

	// LastTurns records the transcript from the most recent call.
	LastTurns []memory.Turn

	// Calls counts Complete invocations.
	Calls int
}

// Complete returns the configured reply and records the transcript.
func (m *MockCompleter) Complete(ctx context.Context, turns []memory.Turn) (*Reply, error) {
	m.Calls++
	m.LastTurns = append([]memory.Turn(nil), turns...)

	if m.Err != nil {
		return nil, m.Err
	}

	text := m.Reply
	if len(m.Replies) > 0 {
		text = m.Replies[0]
		m.Replies = m.Replies[1:]
	}

	return &Reply{Text: text, Usage: m.Usage}, nil
}
