// Package discord provides an [audio.Platform] implementation backed by
// Discord voice channels via the bwmarrin/discordgo library. It bridges
// Discord's Opus-based voice transport with Seraphina's PCM [audio.Frame]
// pipeline.
//
// The platform requires an active *discordgo.Session (owned by the bot layer)
// and a guild ID. Each call to [Platform.Connect] joins the specified voice
// channel and returns a [Connection] that delivers per-speaker audio input
// and exposes the shared playback output.
package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/seraphina-bot/seraphina/pkg/audio"
)

// Compile-time interface assertion.
var _ audio.Platform = (*Platform)(nil)

// Platform implements [audio.Platform] using a discordgo voice connection.
// It requires an active *discordgo.Session (owned by the bot layer).
//
// Platform is safe for concurrent use.
type Platform struct {
	session *discordgo.Session
	guildID string
}

// New creates a new Discord Platform for the given session and guild.
func New(session *discordgo.Session, guildID string) *Platform {
	return &Platform{
		session: session,
		guildID: guildID,
	}
}

// Connect joins the voice channel identified by channelID and returns an
// active [audio.Connection]. ctx governs the join handshake only; once the
// Connection is returned it lives until [Connection.Disconnect] is called.
func (p *Platform) Connect(ctx context.Context, channelID string) (audio.Connection, error) {
	if channelID == "" {
		return nil, errors.New("discord: channelID must not be empty")
	}

	// ChannelVoiceJoin blocks until the voice gateway handshake finishes and
	// takes no context, so the join runs on its own goroutine and the select
	// below enforces ctx. An abandoned join is disconnected once it lands.
	type joinResult struct {
		vc  *discordgo.VoiceConnection
		err error
	}
	joined := make(chan joinResult, 1)
	go func() {
		vc, err := p.session.ChannelVoiceJoin(p.guildID, channelID, false, false)
		joined <- joinResult{vc: vc, err: err}
	}()

	var vc *discordgo.VoiceConnection
	select {
	case res := <-joined:
		if res.err != nil {
			return nil, fmt.Errorf("discord: join voice channel %q: %w", channelID, res.err)
		}
		vc = res.vc
	case <-ctx.Done():
		go func() {
			if res := <-joined; res.err == nil {
				_ = res.vc.Disconnect()
			}
		}()
		return nil, fmt.Errorf("discord: join voice channel %q: %w", channelID, ctx.Err())
	}

	conn, err := newConnection(vc, p.session, p.guildID)
	if err != nil {
		_ = vc.Disconnect()
		return nil, fmt.Errorf("discord: create connection: %w", err)
	}
	return conn, nil
}
