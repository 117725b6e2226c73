// Package chat holds the conversation state and the LLM chat client used to
// turn retrieved context into answers.
package chat

import (
	"sync"
	"time"
)

// Turn is one completed query/answer exchange.
type Turn struct {
	Query     string
	Answer    string
	Timestamp time.Time
}

// History is a bounded, ordered record of prior turns. Eviction is strict
// FIFO: once the bound is reached, appending drops the oldest turn. Nothing
// is persisted across restarts.
type History struct {
	mu       sync.Mutex
	turns    []Turn
	capacity int
}

// NewHistory creates a history bounded to capacity turns. A capacity of zero
// or less keeps no history at all.
func NewHistory(capacity int) *History {
	if capacity < 0 {
		capacity = 0
	}
	return &History{capacity: capacity}
}

// Append records a turn, evicting the oldest when the bound is exceeded.
func (h *History) Append(query, answer string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.capacity == 0 {
		return
	}
	h.turns = append(h.turns, Turn{Query: query, Answer: answer, Timestamp: time.Now()})
	if len(h.turns) > h.capacity {
		h.turns = h.turns[1:]
	}
}

// Snapshot returns the recorded turns, oldest first. The returned slice is
// the caller's to keep.
func (h *History) Snapshot() []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len reports the number of recorded turns.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

// Clear drops all recorded turns.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}
