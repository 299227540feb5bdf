// Package memory holds Seraphina's per-user conversational state: a bounded
// message history and the active game context. State is in-memory only and
// lost on restart.
package memory

import (
	"hash/fnv"
	"sync"

	"github.com/seraphina-bot/seraphina/pkg/provider/llm"
)

// maxEntries is the per-user history cap. Ten entries cover five
// user/assistant exchanges.
const maxEntries = 10

// lockStripes bounds lock contention: users hash onto a fixed set of locks so
// the map of histories never needs a global write lock on the hot path.
const lockStripes = 32

// History stores a bounded conversation per user. Different users never
// contend on the same lock unless they hash to the same stripe.
//
// Every history obeys two invariants: it never exceeds maxEntries, and its
// first entry is always a user turn, so a snapshot can be sent to a model
// API that requires conversations to open with the user.
type History struct {
	stripes [lockStripes]sync.Mutex
	mu      sync.RWMutex
	users   map[string][]llm.Message
}

// NewHistory returns an empty History.
func NewHistory() *History {
	return &History{users: make(map[string][]llm.Message)}
}

// stripe returns the lock guarding userID's entry list.
func (h *History) stripe(userID string) *sync.Mutex {
	f := fnv.New32a()
	f.Write([]byte(userID))
	return &h.stripes[f.Sum32()%lockStripes]
}

// load returns the current entry list for userID.
func (h *History) load(userID string) []llm.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.users[userID]
}

// store replaces the entry list for userID.
func (h *History) store(userID string, entries []llm.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.users[userID] = entries
}

// AppendUser adds a user turn to userID's history and applies the cap in the
// same critical section.
func (h *History) AppendUser(userID, content string) {
	h.append(userID, llm.Message{Role: llm.RoleUser, Content: content})
}

// AppendAssistant adds an assistant turn to userID's history and applies the
// cap in the same critical section.
func (h *History) AppendAssistant(userID, content string) {
	h.append(userID, llm.Message{Role: llm.RoleAssistant, Content: content})
}

func (h *History) append(userID string, msg llm.Message) {
	mu := h.stripe(userID)
	mu.Lock()
	defer mu.Unlock()

	entries := append(h.load(userID), msg)

	// Trim oldest entries beyond the cap, then drop a dangling assistant
	// turn left at the head so the history still opens with the user.
	if len(entries) > maxEntries {
		entries = entries[len(entries)-maxEntries:]
	}
	if len(entries) > 0 && entries[0].Role == llm.RoleAssistant {
		entries = entries[1:]
	}

	h.store(userID, entries)
}

// RollbackLast removes the most recent entry from userID's history. It undoes
// an optimistic AppendUser after the model call fails, so the failed turn is
// not replayed on the next request. No-op for an empty history.
func (h *History) RollbackLast(userID string) {
	mu := h.stripe(userID)
	mu.Lock()
	defer mu.Unlock()

	entries := h.load(userID)
	if len(entries) == 0 {
		return
	}
	h.store(userID, entries[:len(entries)-1])
}

// Snapshot returns a copy of userID's history, oldest first. The copy is safe
// to hand to a provider while other goroutines keep appending.
func (h *History) Snapshot(userID string) []llm.Message {
	mu := h.stripe(userID)
	mu.Lock()
	defer mu.Unlock()

	entries := h.load(userID)
	out := make([]llm.Message, len(entries))
	copy(out, entries)
	return out
}
