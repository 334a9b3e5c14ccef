package engine

import (
	"strings"
	"sync"
)

// SessionMemory keeps short per-symbol summaries of past runs and
// feeds them back into debate prompts. Process-local only; nothing is
// persisted across restarts.
type SessionMemory struct {
	mu    sync.RWMutex
	notes map[string][]string
	limit int
}

// NewSessionMemory creates a memory keeping at most limit notes per symbol
func NewSessionMemory(limit int) *SessionMemory {
	if limit <= 0 {
		limit = 5
	}
	return &SessionMemory{
		notes: make(map[string][]string),
		limit: limit,
	}
}

// Recall returns past notes for the symbol joined into one block, or ""
func (m *SessionMemory) Recall(symbol string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return strings.Join(m.notes[symbol], "\n")
}

// Remember records a note for the symbol, evicting the oldest past the limit
func (m *SessionMemory) Remember(symbol, note string) {
	if note == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	notes := append(m.notes[symbol], note)
	if len(notes) > m.limit {
		notes = notes[len(notes)-m.limit:]
	}
	m.notes[symbol] = notes
}
