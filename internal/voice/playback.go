package voice

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/seraphina-bot/seraphina/internal/observe"
	"github.com/seraphina-bot/seraphina/pkg/audio"
)

// ErrOutputBusy is returned by Playback.Play when another reply is already
// playing on the shared output.
var ErrOutputBusy = errors.New("voice: output busy, reply dropped")

// ErrNoOutput is returned when no voice channel is joined.
var ErrNoOutput = errors.New("voice: no active voice output")

// Playback serializes synthesized replies onto the single shared voice
// output. At most one reply plays at a time; a reply arriving while the
// output is busy is dropped rather than queued, because a conversational
// answer delivered late lands in a conversation that has moved on.
type Playback struct {
	mu   sync.Mutex
	out  audio.Output
	gate chan struct{}

	metrics *observe.Metrics
	log     *slog.Logger
}

// NewPlayback returns a Playback with no output attached.
func NewPlayback(metrics *observe.Metrics, log *slog.Logger) *Playback {
	p := &Playback{
		gate:    make(chan struct{}, 1),
		metrics: metrics,
		log:     log,
	}
	p.gate <- struct{}{}
	return p
}

// SetOutput attaches the shared output of the currently joined voice channel.
// Pass nil after leaving the channel.
func (p *Playback) SetOutput(out audio.Output) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = out
}

// output returns the currently attached output, if any.
func (p *Playback) output() audio.Output {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out
}

// Play writes one PCM reply to the shared output. When the output is busy
// with another reply the call returns ErrOutputBusy immediately and the
// audio is discarded.
func (p *Playback) Play(ctx context.Context, pcm []byte, sampleRate, channels int) error {
	out := p.output()
	if out == nil {
		return ErrNoOutput
	}

	select {
	case <-p.gate:
	default:
		p.metrics.RecordPlaybackDrop(ctx)
		p.log.Warn("voice: shared output busy, dropping reply",
			"ms", audio.Duration(pcm, sampleRate, channels),
		)
		return ErrOutputBusy
	}
	defer func() { p.gate <- struct{}{} }()

	return out.Play(ctx, pcm, sampleRate, channels)
}
