// Command seraphina runs the Seraphina Discord voice companion bot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/seraphina-bot/seraphina/internal/app"
	"github.com/seraphina-bot/seraphina/internal/config"
	"github.com/seraphina-bot/seraphina/pkg/provider/llm"
	"github.com/seraphina-bot/seraphina/pkg/provider/llm/nova"
	"github.com/seraphina-bot/seraphina/pkg/provider/llm/openai"
	"github.com/seraphina-bot/seraphina/pkg/provider/stt/deepgram"
	"github.com/seraphina-bot/seraphina/pkg/provider/tts/elevenlabs"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "seraphina: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "seraphina: %v\n", err)
		}
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Server.LogLevel.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("seraphina starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"llm_backend", cfg.Providers.LLM.Backend,
	)

	providers, err := buildProviders(cfg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, providers, logger)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	slog.Info("shutdown signal received, stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildProviders constructs the STT, LLM and TTS providers from config.
func buildProviders(cfg *config.Config) (*app.Providers, error) {
	var sttOpts []deepgram.Option
	if cfg.Providers.STT.Model != "" {
		sttOpts = append(sttOpts, deepgram.WithModel(cfg.Providers.STT.Model))
	}
	if cfg.Providers.STT.Language != "" {
		sttOpts = append(sttOpts, deepgram.WithLanguage(cfg.Providers.STT.Language))
	}
	transcriber, err := deepgram.New(cfg.Providers.STT.APIKey, sttOpts...)
	if err != nil {
		return nil, fmt.Errorf("stt: %w", err)
	}

	responder, err := buildResponder(cfg.Providers.LLM)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}

	var ttsOpts []elevenlabs.Option
	if cfg.Providers.TTS.Model != "" {
		ttsOpts = append(ttsOpts, elevenlabs.WithModel(cfg.Providers.TTS.Model))
	}
	if cfg.Providers.TTS.OutputFormat != "" {
		ttsOpts = append(ttsOpts, elevenlabs.WithOutputFormat(cfg.Providers.TTS.OutputFormat))
	}
	synthesizer, err := elevenlabs.New(cfg.Providers.TTS.APIKey, ttsOpts...)
	if err != nil {
		return nil, fmt.Errorf("tts: %w", err)
	}

	return &app.Providers{
		STT: transcriber,
		LLM: responder,
		TTS: synthesizer,
	}, nil
}

// buildResponder selects the conversation backend.
func buildResponder(cfg config.LLMConfig) (llm.Responder, error) {
	switch cfg.Backend {
	case config.BackendOpenAI:
		var opts []openai.Option
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(cfg.APIKey, cfg.Model, opts...)

	case config.BackendNova, "":
		var opts []nova.Option
		if cfg.BaseURL != "" {
			opts = append(opts, nova.WithBaseURL(cfg.BaseURL))
		}
		if cfg.Model != "" {
			opts = append(opts, nova.WithModelID(cfg.Model))
		}
		return nova.New(cfg.APIKey, opts...)

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
