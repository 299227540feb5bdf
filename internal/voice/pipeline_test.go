package voice

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/seraphina-bot/seraphina/internal/memory"
	audiomock "github.com/seraphina-bot/seraphina/pkg/audio/mock"
	"github.com/seraphina-bot/seraphina/pkg/provider/llm"
	llmmock "github.com/seraphina-bot/seraphina/pkg/provider/llm/mock"
	"github.com/seraphina-bot/seraphina/pkg/provider/stt"
	sttmock "github.com/seraphina-bot/seraphina/pkg/provider/stt/mock"
	ttsmock "github.com/seraphina-bot/seraphina/pkg/provider/tts/mock"
)

type pipelineFixture struct {
	stt      *sttmock.Transcriber
	llm      *llmmock.Responder
	tts      *ttsmock.Synthesizer
	history  *memory.History
	games    *memory.GameStates
	playback *Playback
	out      *audiomock.Output
	pipeline *Pipeline
}

func newPipelineFixture(t *testing.T, opts ...PipelineOption) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		stt:     &sttmock.Transcriber{Text: "hello seraphina"},
		llm:     &llmmock.Responder{Reply: "hello friend"},
		tts:     &ttsmock.Synthesizer{PCM: []byte{1, 2, 3, 4}},
		history: memory.NewHistory(),
		games:   memory.NewGameStates(),
		out:     audiomock.NewOutput(),
	}
	f.playback = NewPlayback(testMetrics(t), discardLogger())
	f.playback.SetOutput(f.out)
	f.pipeline = NewPipeline(
		f.stt, f.llm, f.tts,
		f.history, f.games, f.playback,
		"voice-sonia",
		testMetrics(t), discardLogger(),
		opts...,
	)
	return f
}

func utterance(speakerID string) Utterance {
	return Utterance{
		SpeakerID:  speakerID,
		PCM:        []byte{10, 20, 30},
		SampleRate: 48000,
		Channels:   2,
		Captured:   time.Now(),
	}
}

func TestHandleUtterance_HappyPath(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.pipeline.HandleUtterance(context.Background(), utterance("alice"))

	snap := f.history.Snapshot("alice")
	if len(snap) != 2 {
		t.Fatalf("history = %d entries, want 2", len(snap))
	}
	if snap[0].Role != llm.RoleUser || snap[0].Content != "hello seraphina" {
		t.Errorf("user turn = %+v", snap[0])
	}
	if snap[1].Role != llm.RoleAssistant || snap[1].Content != "hello friend" {
		t.Errorf("assistant turn = %+v", snap[1])
	}

	if texts := f.tts.Texts(); len(texts) != 1 || texts[0] != "hello friend" {
		t.Errorf("synthesized texts = %v", texts)
	}
	if plays := f.out.Plays(); len(plays) != 1 || len(plays[0]) != 4 {
		t.Errorf("plays = %v, want one 4-byte stream", plays)
	}
}

func TestHandleUtterance_NoSpeechIsSilent(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.stt.Err = stt.ErrNoSpeech
	f.pipeline.HandleUtterance(context.Background(), utterance("alice"))

	if snap := f.history.Snapshot("alice"); len(snap) != 0 {
		t.Errorf("history = %+v, want empty after no-speech drop", snap)
	}
	if calls := f.llm.Calls(); len(calls) != 0 {
		t.Errorf("model calls = %d, want 0", len(calls))
	}
	if plays := f.out.Plays(); len(plays) != 0 {
		t.Errorf("plays = %d, want 0", len(plays))
	}
}

func TestHandleUtterance_TranscriptionFailure(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.stt.Err = errors.New("upstream exploded")
	f.pipeline.HandleUtterance(context.Background(), utterance("alice"))

	if snap := f.history.Snapshot("alice"); len(snap) != 0 {
		t.Errorf("history = %+v, want empty when transcription fails", snap)
	}
	if calls := f.llm.Calls(); len(calls) != 0 {
		t.Errorf("model calls = %d, want 0", len(calls))
	}
}

// TestHandleUtterance_ModelFailureRollsBack verifies the memory is restored
// to its exact pre-utterance state when the model rejects the request.
func TestHandleUtterance_ModelFailureRollsBack(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)

	// Seed prior conversation.
	f.history.AppendUser("alice", "earlier question")
	f.history.AppendAssistant("alice", "earlier answer")
	before := f.history.Snapshot("alice")

	f.llm.Err = &llm.StatusError{Code: 500, Body: "internal"}
	f.pipeline.HandleUtterance(context.Background(), utterance("alice"))

	after := f.history.Snapshot("alice")
	if len(after) != len(before) {
		t.Fatalf("history length %d, want %d", len(after), len(before))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("entry %d: %+v != %+v", i, after[i], before[i])
		}
	}
	if plays := f.out.Plays(); len(plays) != 0 {
		t.Errorf("plays = %d, want 0", len(plays))
	}
}

func TestHandleUtterance_SynthesisFailureKeepsHistory(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.tts.Err = errors.New("voice service down")
	f.pipeline.HandleUtterance(context.Background(), utterance("alice"))

	// The conversation happened even though it could not be spoken.
	if snap := f.history.Snapshot("alice"); len(snap) != 2 {
		t.Errorf("history = %d entries, want 2", len(snap))
	}
	if plays := f.out.Plays(); len(plays) != 0 {
		t.Errorf("plays = %d, want 0", len(plays))
	}
}

func TestSystemPrompt_GameContext(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)

	prompt := f.pipeline.SystemPrompt("alice")
	if !strings.Contains(prompt, "Seraphina") {
		t.Errorf("prompt missing persona: %q", prompt)
	}
	if strings.Contains(prompt, "IMPORTANT CONTEXT") {
		t.Errorf("prompt carries game context without an active game: %q", prompt)
	}

	f.games.Set("alice", memory.GameState{Name: "Chess", Status: "The user played e2e4."})
	prompt = f.pipeline.SystemPrompt("alice")
	if !strings.Contains(prompt, "IMPORTANT CONTEXT: You are currently playing Chess") {
		t.Errorf("prompt missing game context: %q", prompt)
	}
	if !strings.Contains(prompt, "The current status is: The user played e2e4.") {
		t.Errorf("prompt missing game status: %q", prompt)
	}

	// Another user's prompt stays clean.
	if p := f.pipeline.SystemPrompt("bob"); strings.Contains(p, "Chess") {
		t.Errorf("game context leaked to another user: %q", p)
	}
}

// TestHandleUtterance_PromptSeesGameState verifies the model receives the
// game sentence on the voice path too.
func TestHandleUtterance_PromptSeesGameState(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.games.Set("alice", memory.GameState{Name: "Coin Toss", Status: "You just flipped a coin. The user guessed correctly and won!"})
	f.pipeline.HandleUtterance(context.Background(), utterance("alice"))

	calls := f.llm.Calls()
	if len(calls) != 1 {
		t.Fatalf("model calls = %d, want 1", len(calls))
	}
	if !strings.Contains(calls[0].System, "Coin Toss") {
		t.Errorf("system prompt missing game: %q", calls[0].System)
	}
}

func TestRespond_HappyPath(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	reply := f.pipeline.Respond(context.Background(), "alice", "good morning")
	if reply != "hello friend" {
		t.Errorf("reply = %q", reply)
	}
	if snap := f.history.Snapshot("alice"); len(snap) != 2 {
		t.Errorf("history = %d entries, want 2", len(snap))
	}
}

func TestRespond_UpstreamFailure(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.llm.Err = &llm.StatusError{Code: 429, Body: "throttled"}
	reply := f.pipeline.Respond(context.Background(), "alice", "hi")

	if reply != apologyUpstream {
		t.Errorf("reply = %q, want %q", reply, apologyUpstream)
	}
	if snap := f.history.Snapshot("alice"); len(snap) != 0 {
		t.Errorf("history = %+v, want rolled back", snap)
	}
}

func TestRespond_TransportFailure(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.llm.Err = errors.New("connection refused")
	reply := f.pipeline.Respond(context.Background(), "alice", "hi")

	if reply != apologyInternal {
		t.Errorf("reply = %q, want %q", reply, apologyInternal)
	}
	if snap := f.history.Snapshot("alice"); len(snap) != 0 {
		t.Errorf("history = %+v, want rolled back", snap)
	}
}

// TestVoiceAndTextShareMemory verifies both paths append to the same
// per-user conversation.
func TestVoiceAndTextShareMemory(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.pipeline.HandleUtterance(context.Background(), utterance("alice"))
	f.pipeline.Respond(context.Background(), "alice", "and one more thing")

	snap := f.history.Snapshot("alice")
	if len(snap) != 4 {
		t.Fatalf("history = %d entries, want 4", len(snap))
	}
	if snap[2].Content != "and one more thing" {
		t.Errorf("third entry = %+v", snap[2])
	}
}

type recordedExchange struct {
	userID, source, heard, reply string
}

type fakeRecorder struct {
	entries []recordedExchange
}

func (r *fakeRecorder) Record(_ context.Context, userID, source, heard, reply string) error {
	r.entries = append(r.entries, recordedExchange{userID, source, heard, reply})
	return nil
}

func TestPipeline_RecordsTranscripts(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	f := newPipelineFixture(t, WithTranscriptRecorder(rec))

	f.pipeline.HandleUtterance(context.Background(), utterance("alice"))
	f.pipeline.Respond(context.Background(), "bob", "hello")

	if len(rec.entries) != 2 {
		t.Fatalf("recorded = %d, want 2", len(rec.entries))
	}
	if rec.entries[0].source != "voice" || rec.entries[0].heard != "hello seraphina" {
		t.Errorf("voice entry = %+v", rec.entries[0])
	}
	if rec.entries[1].source != "text" || rec.entries[1].userID != "bob" {
		t.Errorf("text entry = %+v", rec.entries[1])
	}
}
