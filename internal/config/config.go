// Package config provides the configuration schema and YAML loader for the
// Seraphina bot.
package config

import "time"

// LogLevel controls log verbosity for the bot.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// LLMBackend selects which chat-completion provider backs the conversation.
type LLMBackend string

const (
	// BackendNova talks to Amazon Bedrock's Converse API.
	BackendNova LLMBackend = "nova"

	// BackendOpenAI talks to the OpenAI chat completions API.
	BackendOpenAI LLMBackend = "openai"
)

// IsValid reports whether b is a recognised LLM backend.
func (b LLMBackend) IsValid() bool {
	return b == BackendNova || b == BackendOpenAI
}

// Config is the root configuration structure for Seraphina.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Discord     DiscordConfig     `yaml:"discord"`
	Providers   ProvidersConfig   `yaml:"providers"`
	Voice       VoiceConfig       `yaml:"voice"`
	Games       GamesConfig       `yaml:"games"`
	Transcripts TranscriptsConfig `yaml:"transcripts"`
}

// ServerConfig holds the observability endpoint and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the metrics/health server listens on
	// (e.g., ":8080"). Empty disables the HTTP server.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Defaults to "info".
	LogLevel LogLevel `yaml:"log_level"`
}

// DiscordConfig holds the Discord session settings.
type DiscordConfig struct {
	// Token is the bot token. Required.
	Token string `yaml:"token"`

	// GuildID restricts slash command registration to one guild. When empty,
	// commands are registered globally (which Discord propagates slowly).
	GuildID string `yaml:"guild_id"`
}

// ProvidersConfig declares the credentials and models for each pipeline stage.
type ProvidersConfig struct {
	STT STTConfig `yaml:"stt"`
	LLM LLMConfig `yaml:"llm"`
	TTS TTSConfig `yaml:"tts"`
}

// STTConfig configures the Deepgram transcription provider.
type STTConfig struct {
	// APIKey authenticates against the Deepgram API. Required.
	APIKey string `yaml:"api_key"`

	// Model overrides the default Deepgram model ("nova-3").
	Model string `yaml:"model"`

	// Language overrides the default transcription language ("en").
	Language string `yaml:"language"`
}

// LLMConfig configures the conversation model.
type LLMConfig struct {
	// Backend selects the provider implementation: "nova" or "openai".
	// Defaults to "nova".
	Backend LLMBackend `yaml:"backend"`

	// APIKey authenticates against the selected backend. Required.
	APIKey string `yaml:"api_key"`

	// Model overrides the backend's default model.
	Model string `yaml:"model"`

	// BaseURL overrides the backend's default API endpoint.
	BaseURL string `yaml:"base_url"`
}

// TTSConfig configures the ElevenLabs speech synthesis provider.
type TTSConfig struct {
	// APIKey authenticates against the ElevenLabs API. Required.
	APIKey string `yaml:"api_key"`

	// VoiceID selects the ElevenLabs voice to speak with. Required.
	VoiceID string `yaml:"voice_id"`

	// Model overrides the default synthesis model ("eleven_flash_v2_5").
	Model string `yaml:"model"`

	// OutputFormat overrides the default PCM output format ("pcm_24000").
	OutputFormat string `yaml:"output_format"`
}

// VoiceConfig tunes utterance segmentation and pipeline concurrency.
type VoiceConfig struct {
	// PollInterval is how often speaker buffers are swept for silence.
	// Defaults to 100ms.
	PollInterval time.Duration `yaml:"poll_interval"`

	// SilenceThreshold is how long a speaker must stay quiet before their
	// buffered audio becomes an utterance. Defaults to 1.5s.
	SilenceThreshold time.Duration `yaml:"silence_threshold"`

	// MaxInFlight bounds how many utterances may run through the pipeline
	// concurrently. Defaults to 8.
	MaxInFlight int `yaml:"max_in_flight"`
}

// GamesConfig configures the side games.
type GamesConfig struct {
	// EnginePath is the path to a UCI chess engine binary (e.g. stockfish).
	// Empty disables the chess game; /flip still works.
	EnginePath string `yaml:"engine_path"`

	// MoveTime is how long the engine may think per move. Defaults to 100ms.
	MoveTime time.Duration `yaml:"move_time"`
}

// TranscriptsConfig configures the optional PostgreSQL exchange log.
type TranscriptsConfig struct {
	// PostgresDSN is the connection string for the transcript store. Empty
	// disables transcript persistence.
	PostgresDSN string `yaml:"postgres_dsn"`
}
