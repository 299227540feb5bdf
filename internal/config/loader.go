package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Discord.Token == "" {
		errs = append(errs, errors.New("discord.token is required"))
	}
	if cfg.Discord.GuildID == "" {
		slog.Warn("discord.guild_id is empty; slash commands will be registered globally and may take up to an hour to appear")
	}

	if cfg.Providers.STT.APIKey == "" {
		errs = append(errs, errors.New("providers.stt.api_key is required"))
	}
	if cfg.Providers.LLM.Backend != "" && !cfg.Providers.LLM.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("providers.llm.backend %q is invalid; valid values: nova, openai", cfg.Providers.LLM.Backend))
	}
	if cfg.Providers.LLM.APIKey == "" {
		errs = append(errs, errors.New("providers.llm.api_key is required"))
	}
	if cfg.Providers.LLM.Backend == BackendOpenAI && cfg.Providers.LLM.Model == "" {
		errs = append(errs, errors.New("providers.llm.model is required when backend is openai"))
	}
	if cfg.Providers.TTS.APIKey == "" {
		errs = append(errs, errors.New("providers.tts.api_key is required"))
	}
	if cfg.Providers.TTS.VoiceID == "" {
		errs = append(errs, errors.New("providers.tts.voice_id is required"))
	}

	if cfg.Voice.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("voice.poll_interval %s must not be negative", cfg.Voice.PollInterval))
	}
	if cfg.Voice.SilenceThreshold < 0 {
		errs = append(errs, fmt.Errorf("voice.silence_threshold %s must not be negative", cfg.Voice.SilenceThreshold))
	}
	if cfg.Voice.MaxInFlight < 0 {
		errs = append(errs, fmt.Errorf("voice.max_in_flight %d must not be negative", cfg.Voice.MaxInFlight))
	}
	if cfg.Voice.PollInterval > 0 && cfg.Voice.SilenceThreshold > 0 &&
		cfg.Voice.PollInterval > cfg.Voice.SilenceThreshold {
		slog.Warn("voice.poll_interval exceeds voice.silence_threshold; utterances will be detected late",
			"poll_interval", cfg.Voice.PollInterval,
			"silence_threshold", cfg.Voice.SilenceThreshold,
		)
	}

	if cfg.Games.MoveTime < 0 {
		errs = append(errs, fmt.Errorf("games.move_time %s must not be negative", cfg.Games.MoveTime))
	}
	if cfg.Games.EnginePath == "" {
		slog.Warn("games.engine_path is empty; the chess game will be unavailable")
	}

	if cfg.Transcripts.PostgresDSN == "" {
		slog.Warn("transcripts.postgres_dsn is empty; exchanges will not be persisted")
	}

	return errors.Join(errs...)
}

// SlogLevel maps the configured log level to a [slog.Level].
// An empty or unknown value maps to [slog.LevelInfo].
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
