package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/seraphina-bot/seraphina/internal/config"
	"github.com/seraphina-bot/seraphina/pkg/audio"
	audiomock "github.com/seraphina-bot/seraphina/pkg/audio/mock"
	llmmock "github.com/seraphina-bot/seraphina/pkg/provider/llm/mock"
	sttmock "github.com/seraphina-bot/seraphina/pkg/provider/stt/mock"
	ttsmock "github.com/seraphina-bot/seraphina/pkg/provider/tts/mock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// testConfig runs the core fast and without a Discord token, engine binary or
// database, so New builds no external connections.
func testConfig() *config.Config {
	return &config.Config{
		Voice: config.VoiceConfig{
			PollInterval:     2 * time.Millisecond,
			SilenceThreshold: 10 * time.Millisecond,
			MaxInFlight:      4,
		},
		Providers: config.ProvidersConfig{
			TTS: config.TTSConfig{VoiceID: "voice-test"},
		},
	}
}

func testProviders() *Providers {
	return &Providers{
		STT: &sttmock.Transcriber{Text: "hello there"},
		LLM: &llmmock.Responder{Reply: "General Kenobi"},
		TTS: &ttsmock.Synthesizer{PCM: []byte{1, 2, 3, 4}},
	}
}

type fakeRecorder struct {
	mu      sync.Mutex
	records [][4]string
}

func (r *fakeRecorder) Record(_ context.Context, userID, source, heard, reply string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, [4]string{userID, source, heard, reply})
	return nil
}

func (r *fakeRecorder) Records() [][4]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][4]string, len(r.records))
	copy(out, r.records)
	return out
}

func TestNew_RequiresProviders(t *testing.T) {
	for _, p := range []*Providers{
		nil,
		{LLM: &llmmock.Responder{}, TTS: &ttsmock.Synthesizer{}},
		{STT: &sttmock.Transcriber{}, TTS: &ttsmock.Synthesizer{}},
		{STT: &sttmock.Transcriber{}, LLM: &llmmock.Responder{}},
	} {
		if _, err := New(t.Context(), testConfig(), p, discardLogger()); err == nil {
			t.Errorf("New(%+v) should fail", p)
		}
	}
}

func TestNew_WithoutToken_NoBot(t *testing.T) {
	a, err := New(t.Context(), testConfig(), testProviders(), discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.bot != nil {
		t.Error("bot should not be created without a token")
	}
	if a.chess != nil {
		t.Error("chess should not be created without an engine path")
	}
	if a.coin == nil || a.pipeline == nil || a.ingest == nil {
		t.Error("core subsystems missing")
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

// TestRun_VoiceRoundTrip drives one utterance end to end: a frame lands in
// the ingest buffer, the sweep finalizes it after the silence threshold, and
// the pipeline plays the synthesized reply on the attached output.
func TestRun_VoiceRoundTrip(t *testing.T) {
	providers := testProviders()
	rec := &fakeRecorder{}

	a, err := New(t.Context(), testConfig(), providers, discardLogger(),
		WithAudioPlatform(audiomock.NewPlatform()),
		WithTranscriptRecorder(rec),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out := audiomock.NewOutput()
	a.playback.SetOutput(out)
	a.ingest.Ingest("speaker-1", audio.Frame{
		PCM:        []byte{10, 20, 30, 40},
		SampleRate: 48000,
		Channels:   2,
	})

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for len(out.Plays()) == 0 {
		select {
		case <-deadline:
			t.Fatal("no playback within deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run err = %v, want context.Canceled", err)
	}

	if got := out.Plays(); len(got) != 1 || string(got[0]) != string([]byte{1, 2, 3, 4}) {
		t.Errorf("plays = %v", got)
	}

	history := a.history.Snapshot("speaker-1")
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Content != "hello there" || history[1].Content != "General Kenobi" {
		t.Errorf("history = %+v", history)
	}

	records := rec.Records()
	if len(records) != 1 || records[0][1] != "voice" {
		t.Errorf("records = %v", records)
	}

	if err := a.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	a, err := New(t.Context(), testConfig(), testProviders(), discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Errorf("first Shutdown: %v", err)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}
}
