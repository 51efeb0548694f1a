package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aoba-labs/mocabot/internal/chat"
)

// MatchRecord is the retrieval hit recorded alongside a turn.
type MatchRecord struct {
	Event   string  `json:"event"`
	Chapter string  `json:"chapter"`
	Score   float32 `json:"score"`
	Summary string  `json:"summary"`
}

// TurnRecord is one line of the append-only turn log.
type TurnRecord struct {
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	User      string       `json:"user"`
	Message   string       `json:"message"`
	Reply     string       `json:"reply"`
	Match     *MatchRecord `json:"match,omitempty"`
	Usage     *chat.Usage  `json:"usage,omitempty"`
}

// TurnLog appends turn records as JSON lines. Safe for concurrent use.
type TurnLog struct {
	mu   sync.Mutex
	file *os.File
}

// OpenTurnLog opens or creates the log file for appending.
func OpenTurnLog(path string) (*TurnLog, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open turn log: %w", err)
	}
	return &TurnLog{file: file}, nil
}

// Append writes one record, filling the ID and timestamp when unset.
func (l *TurnLog) Append(record TurnRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode turn record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append turn record: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (l *TurnLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
