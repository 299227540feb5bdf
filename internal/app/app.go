// Package app wires all Seraphina subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the listening loop, and Shutdown tears everything
// down in order.
//
// For testing, inject doubles via functional options (WithAudioPlatform,
// WithTranscriptRecorder). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seraphina-bot/seraphina/internal/config"
	seradiscord "github.com/seraphina-bot/seraphina/internal/discord"
	"github.com/seraphina-bot/seraphina/internal/game"
	"github.com/seraphina-bot/seraphina/internal/health"
	"github.com/seraphina-bot/seraphina/internal/memory"
	"github.com/seraphina-bot/seraphina/internal/observe"
	"github.com/seraphina-bot/seraphina/internal/transcriptlog"
	"github.com/seraphina-bot/seraphina/internal/voice"
	"github.com/seraphina-bot/seraphina/pkg/audio"
	discordaudio "github.com/seraphina-bot/seraphina/pkg/audio/discord"
	"github.com/seraphina-bot/seraphina/pkg/provider/llm"
	"github.com/seraphina-bot/seraphina/pkg/provider/stt"
	"github.com/seraphina-bot/seraphina/pkg/provider/tts"
)

// Providers holds the pipeline's provider implementations. All three are
// required; main.go builds them from the config.
type Providers struct {
	STT stt.Transcriber
	LLM llm.Responder
	TTS tts.Synthesizer
}

// App owns all subsystem lifetimes and runs the listening loop.
type App struct {
	cfg       *config.Config
	providers *Providers
	log       *slog.Logger

	metrics  *observe.Metrics
	promReg  *prometheus.Registry
	history  *memory.History
	games    *memory.GameStates
	playback *voice.Playback
	ingest   *voice.IngestBuffer
	pipeline *voice.Pipeline

	platform audio.Platform
	recorder voice.TranscriptRecorder
	store    *transcriptlog.Store
	chess    *game.Chess
	coin     *game.CoinFlip
	bot      *seradiscord.Bot

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithAudioPlatform injects an audio platform instead of the Discord adapter.
func WithAudioPlatform(p audio.Platform) Option {
	return func(a *App) { a.platform = p }
}

// WithTranscriptRecorder injects a transcript recorder instead of creating a
// PostgreSQL store from config.
func WithTranscriptRecorder(r voice.TranscriptRecorder) Option {
	return func(a *App) { a.recorder = r }
}

// New creates an App by wiring all subsystems together: telemetry, memory,
// games, the response pipeline, and the Discord bot. The bot is only created
// when a Discord token is configured, so tests can run the core without a
// gateway connection.
func New(ctx context.Context, cfg *config.Config, providers *Providers, log *slog.Logger, opts ...Option) (*App, error) {
	if providers == nil || providers.STT == nil || providers.LLM == nil || providers.TTS == nil {
		return nil, errors.New("app: stt, llm and tts providers are all required")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
		log:       log,
	}
	for _, o := range opts {
		o(a)
	}

	if err := a.initTelemetry(ctx); err != nil {
		return nil, fmt.Errorf("app: init telemetry: %w", err)
	}
	if err := a.initTranscripts(ctx); err != nil {
		return nil, fmt.Errorf("app: init transcripts: %w", err)
	}
	if err := a.initGames(); err != nil {
		return nil, fmt.Errorf("app: init games: %w", err)
	}
	a.initPipeline()
	if err := a.initBot(); err != nil {
		return nil, fmt.Errorf("app: init discord: %w", err)
	}

	return a, nil
}

// initTelemetry registers the global meter provider and creates the
// pipeline's instruments.
func (a *App) initTelemetry(ctx context.Context) error {
	reg, shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		return err
	}
	a.promReg = reg
	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdown(ctx)
	})

	a.metrics = observe.DefaultMetrics()
	return nil
}

// initTranscripts connects the optional PostgreSQL exchange log.
func (a *App) initTranscripts(ctx context.Context) error {
	if a.recorder != nil || a.cfg.Transcripts.PostgresDSN == "" {
		return nil
	}
	store, err := transcriptlog.NewStore(ctx, a.cfg.Transcripts.PostgresDSN)
	if err != nil {
		return err
	}
	a.store = store
	a.recorder = store
	a.closers = append(a.closers, func() error {
		store.Close()
		return nil
	})
	return nil
}

// initGames creates the coin flip and, when an engine is configured, the
// chess manager.
func (a *App) initGames() error {
	a.games = memory.NewGameStates()
	a.coin = game.NewCoinFlip(a.games)

	if a.cfg.Games.EnginePath == "" {
		return nil
	}
	engine, err := game.NewUCIEngine(a.cfg.Games.EnginePath, a.cfg.Games.MoveTime)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, engine.Close)
	a.chess = game.NewChess(engine, a.games)
	return nil
}

// initPipeline builds the conversation core: history, playback serializer and
// the response pipeline.
func (a *App) initPipeline() {
	a.history = memory.NewHistory()
	a.playback = voice.NewPlayback(a.metrics, a.log)
	a.ingest = voice.NewIngestBuffer(a.metrics)

	var opts []voice.PipelineOption
	if a.recorder != nil {
		opts = append(opts, voice.WithTranscriptRecorder(a.recorder))
	}
	a.pipeline = voice.NewPipeline(
		a.providers.STT,
		a.providers.LLM,
		a.providers.TTS,
		a.history,
		a.games,
		a.playback,
		a.cfg.Providers.TTS.VoiceID,
		a.metrics,
		a.log,
		opts...,
	)
}

// initBot creates the Discord session and bot when a token is configured.
func (a *App) initBot() error {
	if a.cfg.Discord.Token == "" {
		a.log.Warn("app: no discord token configured, running without a bot")
		return nil
	}

	session, err := discordgo.New("Bot " + a.cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if a.platform == nil {
		a.platform = discordaudio.New(session, a.cfg.Discord.GuildID)
	}

	a.bot = seradiscord.New(session, seradiscord.Deps{
		GuildID:  a.cfg.Discord.GuildID,
		Platform: a.platform,
		Playback: a.playback,
		Ingest:   a.ingest,
		Pipeline: a.pipeline,
		Chess:    a.chess,
		CoinFlip: a.coin,
		Log:      a.log,
	})
	return nil
}

// Run starts the bot, the silence sweep and the observability endpoint, then
// blocks until ctx is cancelled. In-flight pipeline runs are drained before
// Run returns.
func (a *App) Run(ctx context.Context) error {
	dispatcher := voice.NewDispatcher(
		a.pipeline.HandleUtterance,
		a.cfg.Voice.MaxInFlight,
		a.metrics,
		a.log,
	)
	detector := voice.NewSilenceDetector(
		a.ingest,
		a.cfg.Voice.PollInterval,
		a.cfg.Voice.SilenceThreshold,
		func(utt voice.Utterance) { dispatcher.Dispatch(ctx, utt) },
		a.log,
	)

	if a.bot != nil {
		if err := a.bot.Start(ctx); err != nil {
			return err
		}
	}
	a.startHTTP()

	var wg sync.WaitGroup
	wg.Go(func() { detector.Run(ctx) })

	a.log.Info("app running",
		"chess", a.chess != nil,
		"transcripts", a.recorder != nil,
	)
	<-ctx.Done()

	wg.Wait()
	dispatcher.Wait()
	return ctx.Err()
}

// startHTTP serves /metrics, /healthz and /readyz when a listen address is
// configured.
func (a *App) startHTTP() {
	if a.cfg.Server.ListenAddr == "" {
		return
	}

	var checkers []health.Checker
	if a.bot != nil {
		checkers = append(checkers, health.Checker{Name: "discord", Check: a.bot.Ready})
	}
	if a.store != nil {
		// The transcript log is an audit sink: losing it degrades readiness
		// but must not pull the bot out of rotation.
		checkers = append(checkers, health.Checker{Name: "transcripts", Check: a.store.Ping, Optional: true})
	}

	mux := http.NewServeMux()
	health.New(checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(a.promReg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: a.cfg.Server.ListenAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("app: http server", "error", err)
		}
	}()
	a.closers = append(a.closers, func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	a.log.Info("app: observability endpoint listening", "addr", a.cfg.Server.ListenAddr)
}

// Shutdown tears subsystems down: the bot first so no new work arrives, then
// the closers in registration order. Honors the ctx deadline.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		a.log.Info("shutting down", "closers", len(a.closers))

		if a.bot != nil {
			if err := a.bot.Close(); err != nil {
				a.log.Warn("app: bot close", "error", err)
			}
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				a.log.Warn("app: shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				a.log.Warn("app: closer error", "index", i, "error", err)
			}
		}

		a.log.Info("shutdown complete")
	})
	return shutdownErr
}
