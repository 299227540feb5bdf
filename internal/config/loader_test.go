package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

const validYAML = `
server:
  listen_addr: ":8080"
  log_level: debug
discord:
  token: bot-token
  guild_id: "123456789"
providers:
  stt:
    api_key: dg-key
    model: nova-3
  llm:
    backend: nova
    api_key: bedrock-key
  tts:
    api_key: el-key
    voice_id: voice-123
voice:
  poll_interval: 100ms
  silence_threshold: 1.5s
  max_in_flight: 8
games:
  engine_path: /usr/bin/stockfish
  move_time: 100ms
transcripts:
  postgres_dsn: postgres://localhost/seraphina
`

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != LogDebug {
		t.Errorf("log_level = %q", cfg.Server.LogLevel)
	}
	if cfg.Discord.Token != "bot-token" {
		t.Errorf("token = %q", cfg.Discord.Token)
	}
	if cfg.Providers.LLM.Backend != BackendNova {
		t.Errorf("llm backend = %q", cfg.Providers.LLM.Backend)
	}
	if cfg.Voice.SilenceThreshold != 1500*time.Millisecond {
		t.Errorf("silence_threshold = %s", cfg.Voice.SilenceThreshold)
	}
	if cfg.Voice.MaxInFlight != 8 {
		t.Errorf("max_in_flight = %d", cfg.Voice.MaxInFlight)
	}
	if cfg.Games.EnginePath != "/usr/bin/stockfish" {
		t.Errorf("engine_path = %q", cfg.Games.EnginePath)
	}
	if cfg.Transcripts.PostgresDSN != "postgres://localhost/seraphina" {
		t.Errorf("postgres_dsn = %q", cfg.Transcripts.PostgresDSN)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	yaml := validYAML + "\nextra_field: surprise\n"
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for unknown top-level field")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := LoadFromReader(strings.NewReader(validYAML))
		if err != nil {
			t.Fatalf("fixture config is invalid: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing discord token",
			mutate:  func(c *Config) { c.Discord.Token = "" },
			wantErr: "discord.token is required",
		},
		{
			name:    "missing stt key",
			mutate:  func(c *Config) { c.Providers.STT.APIKey = "" },
			wantErr: "providers.stt.api_key is required",
		},
		{
			name:    "missing llm key",
			mutate:  func(c *Config) { c.Providers.LLM.APIKey = "" },
			wantErr: "providers.llm.api_key is required",
		},
		{
			name:    "bad llm backend",
			mutate:  func(c *Config) { c.Providers.LLM.Backend = "claude" },
			wantErr: `providers.llm.backend "claude" is invalid`,
		},
		{
			name: "openai backend needs a model",
			mutate: func(c *Config) {
				c.Providers.LLM.Backend = BackendOpenAI
				c.Providers.LLM.Model = ""
			},
			wantErr: "providers.llm.model is required when backend is openai",
		},
		{
			name:    "missing tts voice",
			mutate:  func(c *Config) { c.Providers.TTS.VoiceID = "" },
			wantErr: "providers.tts.voice_id is required",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Server.LogLevel = "verbose" },
			wantErr: `server.log_level "verbose" is invalid`,
		},
		{
			name:    "negative silence threshold",
			mutate:  func(c *Config) { c.Voice.SilenceThreshold = -time.Second },
			wantErr: "voice.silence_threshold",
		},
		{
			name:    "negative max in flight",
			mutate:  func(c *Config) { c.Voice.MaxInFlight = -1 },
			wantErr: "voice.max_in_flight",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)

			err := Validate(cfg)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate should fail with %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	err := Validate(&Config{})
	if err == nil {
		t.Fatal("empty config should not validate")
	}
	for _, want := range []string{
		"discord.token",
		"providers.stt.api_key",
		"providers.llm.api_key",
		"providers.tts.api_key",
		"providers.tts.voice_id",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error missing %q: %v", want, err)
		}
	}
}

func TestLogLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		in   LogLevel
		want slog.Level
	}{
		{LogDebug, slog.LevelDebug},
		{LogInfo, slog.LevelInfo},
		{LogWarn, slog.LevelWarn},
		{LogError, slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tc := range tests {
		if got := tc.in.SlogLevel(); got != tc.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
