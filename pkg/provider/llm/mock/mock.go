// Package mock provides a test double for the llm.Responder interface.
package mock

import (
	"context"
	"sync"

	"github.com/seraphina-bot/seraphina/pkg/provider/llm"
)

// Compile-time interface assertion.
var _ llm.Responder = (*Responder)(nil)

// Call records the arguments of one Converse invocation.
type Call struct {
	System  string
	History []llm.Message
}

// Responder is a configurable llm.Responder double.
type Responder struct {
	// Reply is returned by Converse when Err and Fn are nil.
	Reply string

	// Err, when non-nil, is returned by every Converse call.
	Err error

	// Fn, when non-nil, replaces the default behaviour entirely.
	Fn func(ctx context.Context, system string, history []llm.Message) (string, error)

	mu    sync.Mutex
	calls []Call
}

func (m *Responder) Converse(ctx context.Context, system string, history []llm.Message) (string, error) {
	snap := make([]llm.Message, len(history))
	copy(snap, history)

	m.mu.Lock()
	m.calls = append(m.calls, Call{System: system, History: snap})
	m.mu.Unlock()

	if m.Fn != nil {
		return m.Fn(ctx, system, history)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}

// Calls returns a copy of all recorded invocations, in order.
func (m *Responder) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}
