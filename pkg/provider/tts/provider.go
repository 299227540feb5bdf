// Package tts defines the text-to-speech provider interface used by the
// voice pipeline. Backends live in subpackages (e.g. tts/elevenlabs); a test
// double lives in tts/mock.
package tts

import "context"

// Synthesizer converts one reply text into a complete PCM stream.
// Implementations must be safe for concurrent use.
type Synthesizer interface {
	// Synthesize returns 16-bit little-endian PCM audio for text, spoken with
	// the given provider voice. The sample rate and channel count of the
	// result are reported by [Synthesizer.Format].
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)

	// Format reports the sample rate (Hz) and channel count of audio
	// produced by Synthesize.
	Format() (sampleRate, channels int)
}
