package memory

import (
	"fmt"
	"sync"
)

// Turn roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in the conversation transcript.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Slots carries the values a prompt template may interpolate. Templates
// take the whole struct so adding a slot never breaks call sites.
type Slots struct {
	KnowledgeBase    string
	PersonaName      string
	PersonaFullName  string
	RetrievedContext string
}

// TemplateFunc renders the system prompt from the current slot values.
type TemplateFunc func(Slots) string

// Memory is a bounded conversation transcript with a rebuilt system turn.
// The system turn always sits at position 0 and is re-rendered whenever
// the retrieved context changes; dialogue turns beyond the round limit
// are dropped oldest-first.
type Memory struct {
	mu        sync.Mutex
	template  TemplateFunc
	slots     Slots
	turns     []Turn
	maxRounds int
}

// New creates a conversation memory. maxRounds bounds the retained
// dialogue to that many user/assistant pairs; values below 1 keep one.
func New(template TemplateFunc, knowledgeBase, personaName, personaFullName string, maxRounds int) *Memory {
	if maxRounds < 1 {
		maxRounds = 1
	}
	m := &Memory{
		template: template,
		slots: Slots{
			KnowledgeBase:   knowledgeBase,
			PersonaName:     personaName,
			PersonaFullName: personaFullName,
		},
		maxRounds: maxRounds,
	}
	m.turns = []Turn{{Role: RoleSystem, Content: template(m.slots)}}
	return m
}

// UpdateRetrievedContext replaces the retrieval slot and re-renders the
// system turn in place. An empty string clears the slot.
func (m *Memory) UpdateRetrievedContext(context string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots.RetrievedContext = context
	m.turns[0].Content = m.template(m.slots)
}

// AppendUserTurn records a user message with the author name inlined, so
// the model can tell speakers apart in group conversations.
func (m *Memory) AppendUserTurn(author, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, Turn{
		Role:    RoleUser,
		Content: fmt.Sprintf("%s : %s", author, content),
	})
	m.trim()
}

// AppendAssistantTurn records the assistant reply, then clears the
// retrieval slot: retrieved context belongs to exactly one exchange.
func (m *Memory) AppendAssistantTurn(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, Turn{Role: RoleAssistant, Content: content})
	m.slots.RetrievedContext = ""
	m.turns[0].Content = m.template(m.slots)
	m.trim()
}

// trim drops the oldest dialogue turns past the round limit. The system
// turn is never dropped. Caller holds the lock.
func (m *Memory) trim() {
	limit := 2 * m.maxRounds
	dialogue := len(m.turns) - 1
	if dialogue <= limit {
		return
	}
	keep := m.turns[:1]
	keep = append(keep, m.turns[len(m.turns)-limit:]...)
	m.turns = keep
}

// History returns a copy of the transcript, system turn first.
func (m *Memory) History() []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

// Len returns the transcript length including the system turn.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns)
}

// Reset drops all dialogue and re-renders the system turn with an empty
// retrieval slot.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots.RetrievedContext = ""
	m.turns = []Turn{{Role: RoleSystem, Content: m.template(m.slots)}}
}
