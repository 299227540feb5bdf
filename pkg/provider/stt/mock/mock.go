// Package mock provides a test double for the stt.Transcriber interface.
package mock

import (
	"context"
	"sync"

	"github.com/seraphina-bot/seraphina/pkg/provider/stt"
)

// Compile-time interface assertion.
var _ stt.Transcriber = (*Transcriber)(nil)

// Transcriber is a configurable stt.Transcriber double.
type Transcriber struct {
	// Text is returned by Transcribe when Err and Fn are nil.
	Text string

	// Err, when non-nil, is returned by every Transcribe call.
	Err error

	// Fn, when non-nil, replaces the default behaviour entirely.
	Fn func(ctx context.Context, pcm []byte, cfg stt.AudioConfig) (string, error)

	mu    sync.Mutex
	calls [][]byte
}

func (m *Transcriber) Transcribe(ctx context.Context, pcm []byte, cfg stt.AudioConfig) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]byte(nil), pcm...))
	m.mu.Unlock()

	if m.Fn != nil {
		return m.Fn(ctx, pcm, cfg)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}

// Calls returns a copy of the PCM buffers passed to Transcribe, in order.
func (m *Transcriber) Calls() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.calls))
	copy(out, m.calls)
	return out
}
