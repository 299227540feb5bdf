package discord

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/seraphina-bot/seraphina/pkg/audio"
)

// Compile-time interface assertions.
var (
	_ audio.Connection = (*Connection)(nil)
	_ audio.Output     = (*output)(nil)
)

// Connection wraps a discordgo.VoiceConnection and adapts it to the
// [audio.Connection] interface. It demuxes incoming Opus packets by SSRC,
// decodes them to PCM, and delivers per-speaker frames to the registered
// sink. The outgoing side encodes PCM replies to Opus for transmission.
//
// Connection is safe for concurrent use.
type Connection struct {
	vc      *discordgo.VoiceConnection
	session *discordgo.Session
	guildID string

	sinkMu sync.RWMutex
	sink   audio.FrameSink

	ssrcMu   sync.RWMutex
	ssrcUser map[uint32]string // SSRC -> userID, from VoiceSpeakingUpdate

	out *output

	done      chan struct{}
	closeOnce sync.Once

	// disconnectVC is called during Disconnect to tear down the voice
	// connection. Defaults to vc.Disconnect; overridden in tests.
	disconnectVC func() error
}

// newConnection initialises a Connection for an already-joined voice channel
// and starts the receive loop.
func newConnection(vc *discordgo.VoiceConnection, session *discordgo.Session, guildID string) (*Connection, error) {
	c := &Connection{
		vc:           vc,
		session:      session,
		guildID:      guildID,
		ssrcUser:     make(map[uint32]string),
		done:         make(chan struct{}),
		disconnectVC: vc.Disconnect,
	}
	c.out = newOutput(vc, c.done)

	// Discord announces the SSRC -> user mapping via speaking updates.
	vc.AddHandler(c.handleSpeakingUpdate)

	go c.recvLoop()

	return c, nil
}

// OnFrame registers sink as the receiver for incoming per-speaker frames.
// Only one sink may be registered; subsequent calls replace the previous one.
func (c *Connection) OnFrame(sink audio.FrameSink) {
	c.sinkMu.Lock()
	defer c.sinkMu.Unlock()
	c.sink = sink
}

// Output returns the shared playback output for this channel.
func (c *Connection) Output() audio.Output {
	return c.out
}

// Disconnect cleanly tears down the voice connection and stops the receive
// loop. It is safe to call more than once; subsequent calls return nil.
func (c *Connection) Disconnect() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.disconnectVC != nil {
			err = c.disconnectVC()
		}
	})
	return err
}

// recvLoop reads Opus packets from the Discord voice connection, demuxes them
// by SSRC, decodes to PCM, and hands frames to the registered sink.
func (c *Connection) recvLoop() {
	// Each SSRC gets its own decoder to maintain state across frames.
	decoders := make(map[uint32]*opusDecoder)

	for {
		select {
		case <-c.done:
			return
		case pkt, ok := <-c.vc.OpusRecv:
			if !ok {
				return
			}
			if pkt == nil {
				continue
			}

			dec, exists := decoders[pkt.SSRC]
			if !exists {
				var err error
				dec, err = newOpusDecoder()
				if err != nil {
					slog.Error("discord: failed to create opus decoder", "ssrc", pkt.SSRC, "error", err)
					continue
				}
				decoders[pkt.SSRC] = dec
			}

			pcm, err := dec.decode(pkt.Opus)
			if err != nil {
				slog.Warn("discord: opus decode error", "ssrc", pkt.SSRC, "error", err)
				continue
			}

			c.sinkMu.RLock()
			sink := c.sink
			c.sinkMu.RUnlock()
			if sink == nil {
				continue
			}

			sink(c.speakerID(pkt.SSRC), audio.Frame{
				PCM:        pcm,
				SampleRate: opusSampleRate,
				Channels:   opusChannels,
				Received:   time.Now(),
			})
		}
	}
}

// handleSpeakingUpdate records the SSRC -> user mapping Discord announces
// whenever a participant starts or stops speaking.
func (c *Connection) handleSpeakingUpdate(_ *discordgo.VoiceConnection, su *discordgo.VoiceSpeakingUpdate) {
	if su == nil || su.UserID == "" {
		return
	}
	c.ssrcMu.Lock()
	c.ssrcUser[uint32(su.SSRC)] = su.UserID
	c.ssrcMu.Unlock()
}

// speakerID resolves an SSRC to a user ID. Until the first speaking update
// arrives for an SSRC the decimal SSRC string is used as a stable stand-in.
func (c *Connection) speakerID(ssrc uint32) string {
	c.ssrcMu.RLock()
	defer c.ssrcMu.RUnlock()
	if userID, ok := c.ssrcUser[ssrc]; ok {
		return userID
	}
	return strconv.FormatUint(uint64(ssrc), 10)
}

// ---- output ----

// output implements [audio.Output] on top of the voice connection's OpusSend
// channel. Play encodes exact Opus-frame-sized PCM chunks and relies on
// discordgo's send loop for 20 ms pacing.
type output struct {
	vc   *discordgo.VoiceConnection
	done chan struct{}
	busy atomic.Bool

	playMu sync.Mutex
}

func newOutput(vc *discordgo.VoiceConnection, done chan struct{}) *output {
	return &output{vc: vc, done: done}
}

// IsIdle reports whether no stream is currently playing.
func (o *output) IsIdle() bool {
	return !o.busy.Load()
}

// Play encodes the PCM stream to Opus and writes it to Discord, blocking
// until the last frame has been handed to the send loop. Input that is not
// 48 kHz stereo is resampled first.
func (o *output) Play(ctx context.Context, pcm []byte, sampleRate, channels int) error {
	o.playMu.Lock()
	defer o.playMu.Unlock()

	o.busy.Store(true)
	defer o.busy.Store(false)

	enc, err := newOpusEncoder()
	if err != nil {
		return err
	}

	data := resample(pcm, sampleRate, channels)

	// Pad the tail so the final partial frame is still played.
	if rem := len(data) % opusFrameBytes; rem != 0 {
		data = append(data, make([]byte, opusFrameBytes-rem)...)
	}

	if err := o.vc.Speaking(true); err != nil {
		slog.Warn("discord: speaking notification error", "speaking", true, "error", err)
	}
	defer func() {
		if err := o.vc.Speaking(false); err != nil {
			slog.Warn("discord: speaking notification error", "speaking", false, "error", err)
		}
	}()

	for len(data) >= opusFrameBytes {
		opus, err := enc.encode(data[:opusFrameBytes])
		data = data[opusFrameBytes:]
		if err != nil {
			slog.Warn("discord: opus encode error", "error", err)
			continue
		}

		select {
		case o.vc.OpusSend <- opus:
		case <-ctx.Done():
			return ctx.Err()
		case <-o.done:
			return nil
		}
	}
	return nil
}
