// Package stt defines the speech-to-text provider interface used by the
// voice pipeline. Backends live in subpackages (e.g. stt/deepgram); test
// doubles live in stt/mock.
package stt

import (
	"context"
	"errors"
)

// ErrNoSpeech is returned by [Transcriber.Transcribe] when the provider could
// not find any words in the audio. Callers treat it as a silent drop, not a
// failure.
var ErrNoSpeech = errors.New("stt: no speech recognized")

// AudioConfig describes the raw PCM handed to a Transcriber.
type AudioConfig struct {
	// SampleRate in Hz.
	SampleRate int

	// Channels: 1 for mono, 2 for stereo.
	Channels int

	// Language is an optional BCP-47 hint (e.g. "en", "de-DE").
	Language string
}

// Transcriber converts one complete utterance of 16-bit little-endian PCM
// into text. Implementations must be safe for concurrent use: the dispatcher
// runs one call per in-flight utterance.
type Transcriber interface {
	// Transcribe returns the recognized text for pcm, or [ErrNoSpeech] when
	// the audio contains no recognizable words.
	Transcribe(ctx context.Context, pcm []byte, cfg AudioConfig) (string, error)
}
