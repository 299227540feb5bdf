// Package audio defines the types and interfaces for voice-channel
// connectivity within Seraphina.
//
// The two primary abstractions are:
//
//   - [Platform] — joins a voice channel and returns a [Connection].
//   - [Connection] — an active session on that channel, delivering
//     per-speaker PCM frames to a registered sink and exposing the single
//     shared [Output] all synthesized replies compete for.
//
// Implementations are provided by platform-specific adapter packages
// (e.g., audio/discord). The interfaces are intentionally narrow so the
// voice pipeline stays decoupled from provider details.
package audio

import (
	"context"
	"time"
)

// Frame is a single chunk of raw audio delivered by a platform adapter.
// Discord delivers one frame per speaker roughly every 20 ms.
type Frame struct {
	// PCM holds interleaved 16-bit little-endian signed samples.
	PCM []byte

	// SampleRate in Hz (48000 for Discord Opus decode output).
	SampleRate int

	// Channels: 1 for mono, 2 for stereo.
	Channels int

	// Received marks when the frame arrived from the platform.
	Received time.Time
}

// FrameSink receives decoded frames from a platform connection.
// Implementations must return quickly: the platform invokes the sink on its
// receive goroutine and a slow sink delays every speaker's audio.
type FrameSink func(speakerID string, frame Frame)

// Output is the single shared playback destination for synthesized replies.
// At most one stream may play at a time; callers must check [Output.IsIdle]
// (or rely on a serializing wrapper) before calling [Output.Play].
type Output interface {
	// IsIdle reports whether the output is currently free.
	IsIdle() bool

	// Play writes one complete PCM stream to the output and blocks until
	// the last frame has been handed to the platform. Concurrent calls are
	// not supported; serialize through a single owner.
	Play(ctx context.Context, pcm []byte, sampleRate, channels int) error
}

// Connection represents an active session on a voice channel.
//
// A Connection is obtained from [Platform.Connect] and remains valid until
// [Connection.Disconnect] is called. Implementations must be safe for
// concurrent use.
type Connection interface {
	// OnFrame registers sink as the receiver for all incoming per-speaker
	// frames. Only one sink may be registered at a time; subsequent calls
	// replace the previous registration.
	OnFrame(sink FrameSink)

	// Output returns the shared playback output for this channel.
	Output() Output

	// Disconnect tears down the connection and stops frame delivery. It is
	// safe to call more than once; subsequent calls are no-ops.
	Disconnect() error
}

// Platform is the entry point for a voice-channel provider.
type Platform interface {
	// Connect joins the voice channel identified by channelID and returns an
	// active [Connection]. ctx governs the connection attempt only.
	Connect(ctx context.Context, channelID string) (Connection, error)
}
