package voice

import (
	"context"
	"log/slog"
	"time"
)

// Default segmentation parameters.
const (
	DefaultPollInterval     = 100 * time.Millisecond
	DefaultSilenceThreshold = 1500 * time.Millisecond
)

// SilenceDetector periodically sweeps an IngestBuffer and emits finalized
// utterances once a speaker has been quiet for the configured threshold.
type SilenceDetector struct {
	buf       *IngestBuffer
	poll      time.Duration
	threshold time.Duration
	emit      func(Utterance)
	log       *slog.Logger
}

// NewSilenceDetector creates a detector that emits each finalized utterance
// through emit. Non-positive durations fall back to the defaults.
func NewSilenceDetector(buf *IngestBuffer, poll, threshold time.Duration, emit func(Utterance), log *slog.Logger) *SilenceDetector {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if threshold <= 0 {
		threshold = DefaultSilenceThreshold
	}
	return &SilenceDetector{
		buf:       buf,
		poll:      poll,
		threshold: threshold,
		emit:      emit,
		log:       log,
	}
}

// Run sweeps the buffer until ctx is cancelled. Buffers still accumulating at
// shutdown are discarded without emission.
func (d *SilenceDetector) Run(ctx context.Context) {
	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, utt := range d.buf.DetachExpired(d.threshold) {
				d.log.Debug("voice: utterance finalized",
					"speaker", utt.SpeakerID,
					"bytes", len(utt.PCM),
				)
				d.emit(utt)
			}
		}
	}
}
