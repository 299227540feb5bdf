// Package discord is Seraphina's face on Discord: the gateway session, the
// slash command surface (/hello, /flip, /chess, /voice) and the text chat
// handler. It owns no conversation logic; everything user-visible is built
// from the game managers and the response pipeline.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/seraphina-bot/seraphina/internal/game"
	"github.com/seraphina-bot/seraphina/internal/voice"
	"github.com/seraphina-bot/seraphina/pkg/audio"
)

// connectTimeout bounds the voice channel handshake on /voice join.
const connectTimeout = 10 * time.Second

// Deps collects the bot's collaborators. Chess may be nil when no engine is
// configured; the /chess command then reports itself unavailable.
type Deps struct {
	GuildID  string
	Platform audio.Platform
	Playback *voice.Playback
	Ingest   *voice.IngestBuffer
	Pipeline *voice.Pipeline
	Chess    *game.Chess
	CoinFlip *game.CoinFlip
	Log      *slog.Logger
}

// Bot wires the Discord session to the pipeline: slash commands, the chat
// handler, and the voice channel lifecycle.
type Bot struct {
	session  *discordgo.Session
	guildID  string
	platform audio.Platform
	playback *voice.Playback
	ingest   *voice.IngestBuffer
	pipeline *voice.Pipeline
	chess    *game.Chess
	coin     *game.CoinFlip
	log      *slog.Logger

	ready atomic.Bool

	// mu guards conn, the voice connection of the currently joined channel.
	mu   sync.Mutex
	conn audio.Connection

	removeHandlers []func()
}

// New creates a Bot on an unopened session. Call [Bot.Start] to connect.
func New(session *discordgo.Session, deps Deps) *Bot {
	return &Bot{
		session:  session,
		guildID:  deps.GuildID,
		platform: deps.Platform,
		playback: deps.Playback,
		ingest:   deps.Ingest,
		pipeline: deps.Pipeline,
		chess:    deps.Chess,
		coin:     deps.CoinFlip,
		log:      deps.Log,
	}
}

// Start opens the gateway session and registers the slash commands. The
// message-content intent is required for the chat handler and must be enabled
// for the bot in the Discord developer portal.
func (b *Bot) Start(ctx context.Context) error {
	b.session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMessages |
		discordgo.IntentGuildVoiceStates |
		discordgo.IntentMessageContent

	b.removeHandlers = append(b.removeHandlers,
		b.session.AddHandler(b.onReady),
		b.session.AddHandler(b.onInteractionCreate),
		b.session.AddHandler(b.onMessageCreate),
	)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}

	if _, err := b.session.ApplicationCommandBulkOverwrite(
		b.session.State.User.ID, b.guildID, commands(),
	); err != nil {
		b.session.Close()
		return fmt.Errorf("discord: register commands: %w", err)
	}
	return nil
}

// Close leaves any joined voice channel and shuts the gateway session down.
func (b *Bot) Close() error {
	b.leaveVoice()
	for _, remove := range b.removeHandlers {
		remove()
	}
	b.removeHandlers = nil
	b.ready.Store(false)

	if err := b.session.Close(); err != nil {
		return fmt.Errorf("discord: close session: %w", err)
	}
	return nil
}

// Ready reports whether the gateway session has received its Ready event.
// Used as a readiness check.
func (b *Bot) Ready(context.Context) error {
	if !b.ready.Load() {
		return errors.New("discord gateway not ready")
	}
	return nil
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.ready.Store(true)
	b.log.Info("discord: gateway ready",
		"user", r.User.Username,
		"guilds", len(r.Guilds),
	)
}

// joinVoice connects to channelID, feeds received frames into the ingest
// buffer, and attaches the channel's output to the playback serializer. An
// existing connection is dropped first, so the bot moves between channels.
func (b *Bot) joinVoice(ctx context.Context, channelID string) error {
	b.leaveVoice()

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	conn, err := b.platform.Connect(ctx, channelID)
	if err != nil {
		return fmt.Errorf("discord: join voice channel %s: %w", channelID, err)
	}
	conn.OnFrame(func(speakerID string, frame audio.Frame) {
		b.ingest.Ingest(speakerID, frame)
	})
	b.playback.SetOutput(conn.Output())

	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()

	b.log.Info("discord: joined voice channel", "channel", channelID)
	return nil
}

// leaveVoice detaches playback and disconnects from the current voice
// channel. Reports whether the bot was connected.
func (b *Bot) leaveVoice() bool {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()

	if conn == nil {
		return false
	}

	b.playback.SetOutput(nil)
	if err := conn.Disconnect(); err != nil {
		b.log.Warn("discord: voice disconnect", "error", err)
	}
	b.log.Info("discord: left voice channel")
	return true
}

// callerVoiceChannel returns the voice channel the interaction's user is
// currently in, or "" when they are not in one.
func (b *Bot) callerVoiceChannel(s *discordgo.Session, userID string) string {
	vs, err := s.State.VoiceState(b.guildID, userID)
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}
