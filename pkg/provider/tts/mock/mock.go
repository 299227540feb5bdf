// Package mock provides a test double for the tts.Synthesizer interface.
package mock

import (
	"context"
	"sync"

	"github.com/seraphina-bot/seraphina/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Synthesizer = (*Synthesizer)(nil)

// Synthesizer is a configurable tts.Synthesizer double.
type Synthesizer struct {
	// PCM is returned by Synthesize when Err is nil.
	PCM []byte

	// Err, when non-nil, is returned by every Synthesize call.
	Err error

	// SampleRate and Channels are reported by Format. Zero values default to
	// 24 kHz mono.
	SampleRate int
	Channels   int

	mu    sync.Mutex
	texts []string
}

func (m *Synthesizer) Synthesize(_ context.Context, text, _ string) ([]byte, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.PCM, nil
}

func (m *Synthesizer) Format() (int, int) {
	rate, channels := m.SampleRate, m.Channels
	if rate == 0 {
		rate = 24000
	}
	if channels == 0 {
		channels = 1
	}
	return rate, channels
}

// Texts returns a copy of the texts passed to Synthesize, in order.
func (m *Synthesizer) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.texts))
	copy(out, m.texts)
	return out
}
