// Package mock provides test doubles for the audio interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/seraphina-bot/seraphina/pkg/audio"
)

// Compile-time interface assertions.
var (
	_ audio.Platform   = (*Platform)(nil)
	_ audio.Connection = (*Connection)(nil)
	_ audio.Output     = (*Output)(nil)
)

// Output is a configurable [audio.Output] double that records Play calls.
type Output struct {
	mu    sync.Mutex
	idle  bool
	plays [][]byte

	// PlayErr, when non-nil, is returned by every Play call.
	PlayErr error

	// OnPlay, when non-nil, is invoked inside Play while the mock is busy.
	OnPlay func()
}

// NewOutput returns an idle Output.
func NewOutput() *Output {
	return &Output{idle: true}
}

// SetIdle overrides the idle state reported by IsIdle.
func (o *Output) SetIdle(idle bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.idle = idle
}

func (o *Output) IsIdle() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.idle
}

func (o *Output) Play(_ context.Context, pcm []byte, _, _ int) error {
	o.mu.Lock()
	o.idle = false
	o.plays = append(o.plays, append([]byte(nil), pcm...))
	cb := o.OnPlay
	o.mu.Unlock()

	if cb != nil {
		cb()
	}

	o.mu.Lock()
	o.idle = true
	err := o.PlayErr
	o.mu.Unlock()
	return err
}

// Plays returns a copy of all PCM streams handed to Play, in order.
func (o *Output) Plays() [][]byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([][]byte, len(o.plays))
	copy(out, o.plays)
	return out
}

// Connection is an [audio.Connection] double that lets tests push frames at
// the registered sink.
type Connection struct {
	mu           sync.Mutex
	sink         audio.FrameSink
	out          *Output
	disconnected bool
}

// NewConnection returns a Connection with a fresh idle Output.
func NewConnection() *Connection {
	return &Connection{out: NewOutput()}
}

func (c *Connection) OnFrame(sink audio.FrameSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
}

func (c *Connection) Output() audio.Output { return c.out }

// MockOutput exposes the underlying Output double for assertions.
func (c *Connection) MockOutput() *Output { return c.out }

func (c *Connection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	return nil
}

// Disconnected reports whether Disconnect has been called.
func (c *Connection) Disconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected
}

// Deliver invokes the registered sink with the given frame, mimicking a
// platform receive loop. No-op when no sink is registered.
func (c *Connection) Deliver(speakerID string, frame audio.Frame) {
	c.mu.Lock()
	sink := c.sink
	c.mu.Unlock()
	if sink != nil {
		sink(speakerID, frame)
	}
}

// Platform is an [audio.Platform] double returning a preconfigured Connection.
type Platform struct {
	// Conn is returned by Connect. Defaults to a fresh Connection.
	Conn *Connection

	// ConnectErr, when non-nil, is returned by Connect.
	ConnectErr error

	mu        sync.Mutex
	connected []string
}

func NewPlatform() *Platform {
	return &Platform{Conn: NewConnection()}
}

func (p *Platform) Connect(_ context.Context, channelID string) (audio.Connection, error) {
	p.mu.Lock()
	p.connected = append(p.connected, channelID)
	p.mu.Unlock()
	if p.ConnectErr != nil {
		return nil, p.ConnectErr
	}
	return p.Conn, nil
}

// ConnectedChannels returns the channel IDs passed to Connect, in order.
func (p *Platform) ConnectedChannels() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.connected))
	copy(out, p.connected)
	return out
}
