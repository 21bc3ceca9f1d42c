package history

import (
	"sync"

	"chat-widget/internal/llm"
)

// Manager keeps per-chat LLM context in memory. Returned slices are copies.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string][]llm.Message
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string][]llm.Message)}
}

func (m *Manager) Reset(chatID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}

func (m *Manager) AppendUser(chatID, content string) {
	m.append(chatID, llm.Message{Role: llm.RoleUser, Content: content})
}

func (m *Manager) AppendAssistant(chatID, content string) {
	m.append(chatID, llm.Message{Role: llm.RoleAssistant, Content: content})
}

func (m *Manager) append(chatID string, msg llm.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[chatID] = append(m.sessions[chatID], msg)
}

func (m *Manager) Get(chatID string) []llm.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	es := m.sessions[chatID]
	out := make([]llm.Message, len(es))
	copy(out, es)
	return out
}

// Trim drops the oldest messages of a chat so that at most max remain.
// A non-positive max leaves the chat untouched.
func (m *Manager) Trim(chatID string, max int) {
	if max <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	es := m.sessions[chatID]
	if len(es) <= max {
		return
	}
	kept := make([]llm.Message, max)
	copy(kept, es[len(es)-max:])
	m.sessions[chatID] = kept
}

// Len reports how many chats have context.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
