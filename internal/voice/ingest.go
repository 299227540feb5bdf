// Package voice implements Seraphina's listening pipeline: per-speaker audio
// buffering, silence-based utterance segmentation, bounded dispatch into the
// transcribe/respond/speak pipeline, and serialized playback on the shared
// voice output.
package voice

import (
	"context"
	"sync"
	"time"

	"github.com/seraphina-bot/seraphina/internal/observe"
	"github.com/seraphina-bot/seraphina/pkg/audio"
)

// Utterance is one complete phrase captured from a speaker: all PCM received
// from the first frame until the silence threshold expired.
type Utterance struct {
	SpeakerID  string
	PCM        []byte
	SampleRate int
	Channels   int

	// Captured marks when the silence sweep finalized the utterance.
	Captured time.Time
}

// speakerBuffer accumulates one in-progress utterance.
type speakerBuffer struct {
	pcm          []byte
	sampleRate   int
	channels     int
	lastActivity time.Time
}

// IngestBuffer accumulates raw frames per speaker until the silence detector
// detaches them. The critical section covers only the append and timestamp
// update, so the platform receive goroutine is never blocked on downstream
// work.
type IngestBuffer struct {
	mu      sync.Mutex
	buffers map[string]*speakerBuffer
	metrics *observe.Metrics

	// now is the clock source; replaced in tests.
	now func() time.Time
}

// NewIngestBuffer returns an empty IngestBuffer. metrics may be nil.
func NewIngestBuffer(metrics *observe.Metrics) *IngestBuffer {
	return &IngestBuffer{
		buffers: make(map[string]*speakerBuffer),
		metrics: metrics,
		now:     time.Now,
	}
}

// Ingest appends one frame to speakerID's buffer, creating it on first use,
// and records the activity time. Frames from one speaker are appended in
// call order.
func (b *IngestBuffer) Ingest(speakerID string, frame audio.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, ok := b.buffers[speakerID]
	if !ok {
		buf = &speakerBuffer{
			sampleRate: frame.SampleRate,
			channels:   frame.Channels,
		}
		b.buffers[speakerID] = buf
		if b.metrics != nil {
			b.metrics.ActiveSpeakers.Add(context.Background(), 1)
		}
	}
	buf.pcm = append(buf.pcm, frame.PCM...)
	buf.lastActivity = b.now()
}

// DetachExpired removes every buffer whose last activity is older than
// threshold and returns the non-empty ones as finalized utterances. Detach
// and emit happen under one lock acquisition, so a frame arriving
// concurrently lands either in the detached utterance or in a fresh buffer,
// never both and never nowhere.
func (b *IngestBuffer) DetachExpired(threshold time.Duration) []Utterance {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	var out []Utterance
	for speakerID, buf := range b.buffers {
		if now.Sub(buf.lastActivity) <= threshold {
			continue
		}
		delete(b.buffers, speakerID)
		if b.metrics != nil {
			b.metrics.ActiveSpeakers.Add(context.Background(), -1)
		}
		if len(buf.pcm) == 0 {
			continue
		}
		out = append(out, Utterance{
			SpeakerID:  speakerID,
			PCM:        buf.pcm,
			SampleRate: buf.sampleRate,
			Channels:   buf.channels,
			Captured:   now,
		})
	}
	return out
}

// Active returns the number of speakers with an in-progress buffer.
func (b *IngestBuffer) Active() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffers)
}
