package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/aoba-labs/mocabot/internal/chat"
	"github.com/aoba-labs/mocabot/internal/memory"
	"github.com/aoba-labs/mocabot/internal/rag"
)

// Config holds engine configuration
type Config struct {
	PersonaName     string
	PersonaFullName string
	KnowledgeBase   string
	Language        string
	MaxRounds       int
	TurnLogPath     string
}

// DefaultConfig returns configuration from environment variables with
// sensible defaults. The knowledge base file is read by the caller.
func DefaultConfig() Config {
	maxRounds := 50
	if raw := os.Getenv("MAX_ROUNDS"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			maxRounds = parsed
		}
	}

	name := os.Getenv("CHARACTER_NAME")
	if name == "" {
		name = "Moka"
	}
	fullName := os.Getenv("CHARACTER_FULL_NAME")
	if fullName == "" {
		fullName = "Moca Aoba"
	}

	return Config{
		PersonaName:     name,
		PersonaFullName: fullName,
		Language:        os.Getenv("BOT_LANG"),
		MaxRounds:       maxRounds,
		TurnLogPath:     os.Getenv("TURN_LOG_PATH"),
	}
}

// Retriever is the slice of retrieval the engine needs.
type Retriever interface {
	FindRelevant(ctx context.Context, query string, topN int) ([]rag.Result, error)
}

// Engine turns incoming group chat messages into persona replies. Each
// message is enriched with the best story match, answered through the
// completer, and recorded in the bounded conversation memory whether or
// not a reply goes out.
type Engine struct {
	config    Config
	retriever Retriever
	completer chat.Completer
	memory    *memory.Memory
	turnLog   *TurnLog
	deny      map[string]struct{}
}

// New creates an engine. A turn log path in the config is opened here;
// an empty path disables turn logging.
func New(config Config, retriever Retriever, completer chat.Completer) (*Engine, error) {
	var turnLog *TurnLog
	if config.TurnLogPath != "" {
		opened, err := OpenTurnLog(config.TurnLogPath)
		if err != nil {
			return nil, err
		}
		turnLog = opened
	}

	deny := map[string]struct{}{
		"(NO REPLY)":  {},
		"NO REPLY":    {},
		"（NO REPLY）": {},
		fmt.Sprintf("(%sNO REPLY)", config.PersonaName):   {},
		fmt.Sprintf("（%sNO REPLY）.", config.PersonaName): {},
	}

	return &Engine{
		config:    config,
		retriever: retriever,
		completer: completer,
		memory: memory.New(
			builtinTemplate(config.Language),
			config.KnowledgeBase,
			config.PersonaName,
			config.PersonaFullName,
			config.MaxRounds,
		),
		turnLog: turnLog,
		deny:    deny,
	}, nil
}

// HandleIncomingMessage processes one group chat message and returns the
// persona's reply. The second return is false when the persona stays
// silent: either the model declined with a no-reply marker, or completion
// failed. Retrieval failures degrade to an exchange without story context.
func (e *Engine) HandleIncomingMessage(ctx context.Context, author, text, isoTimestamp string) (string, bool) {
	var match *MatchRecord

	results, err := e.retriever.FindRelevant(ctx, text, 1)
	if err != nil {
		log.Printf("[Engine] Retrieval failed: %v", err)
	}

	storyPrompt := ""
	if len(results) > 0 {
		top := results[0]
		storyPrompt = fmt.Sprintf(
			"\n %s (EVENT: %s CHAPTER: %s SIMILARITY: %.2f)\n```story\n%s\n```",
			ragPrefix(e.config.Language),
			top.Entry.EventName, top.Entry.ChapterTitle, top.Score, top.FullContent,
		)
		match = &MatchRecord{
			Event:   top.Entry.EventName,
			Chapter: top.Entry.ChapterTitle,
			Score:   top.Score,
			Summary: top.Entry.Summary,
		}
	}

	e.memory.UpdateRetrievedContext(storyPrompt)
	e.memory.AppendUserTurn(author, fmt.Sprintf(" %s :%s", isoTimestamp, text))

	reply, err := e.completer.Complete(ctx, e.memory.History())
	if err != nil {
		// The user turn stays; the persona just missed this one.
		log.Printf("[Engine] Completion failed: %v", err)
		return "", false
	}

	answer := strings.TrimSpace(reply.Text)
	e.memory.AppendAssistantTurn(answer)

	e.logTurn(TurnRecord{
		User:    author,
		Message: text,
		Reply:   answer,
		Match:   match,
		Usage:   &reply.Usage,
	})

	if _, denied := e.deny[answer]; denied {
		return "", false
	}
	return answer, true
}

// ResetConversation drops the dialogue history and retrieval context.
func (e *Engine) ResetConversation() {
	e.memory.Reset()
}

// Memory exposes the conversation transcript, mainly for inspection.
func (e *Engine) Memory() *memory.Memory {
	return e.memory
}

// Close releases the turn log.
func (e *Engine) Close() error {
	if e.turnLog == nil {
		return nil
	}
	return e.turnLog.Close()
}

func (e *Engine) logTurn(record TurnRecord) {
	if e.turnLog == nil {
		return
	}
	if err := e.turnLog.Append(record); err != nil {
		log.Printf("[Engine] Failed to log turn: %v", err)
	}
}
