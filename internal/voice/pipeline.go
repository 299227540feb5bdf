package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/seraphina-bot/seraphina/internal/memory"
	"github.com/seraphina-bot/seraphina/internal/observe"
	"github.com/seraphina-bot/seraphina/pkg/provider/llm"
	"github.com/seraphina-bot/seraphina/pkg/provider/stt"
	"github.com/seraphina-bot/seraphina/pkg/provider/tts"
)

// basePersona is Seraphina's standing system prompt. Game context is appended
// per user when a game is active.
const basePersona = "You are Seraphina, a friendly, witty Discord companion. " +
	"Keep your responses short, conversational, and natural. " +
	"NEVER use emojis, emoticons, or special characters in your responses."

// Canned replies for the text path when the model is unreachable.
const (
	apologyUpstream = "Oops! I'm having trouble thinking right now."
	apologyInternal = "Oops! My brain crashed."
)

// TranscriptRecorder persists finished exchanges for auditing. Implementations
// must tolerate concurrent calls.
type TranscriptRecorder interface {
	Record(ctx context.Context, userID, source, heard, reply string) error
}

// Pipeline turns a finalized utterance into a spoken reply: transcribe,
// remember, converse, synthesize, play. It also serves the synchronous text
// path via [Pipeline.Respond]. All collaborators are interfaces; the pipeline
// owns only the orchestration and the memory bookkeeping.
type Pipeline struct {
	transcriber stt.Transcriber
	responder   llm.Responder
	synthesizer tts.Synthesizer
	history     *memory.History
	games       *memory.GameStates
	playback    *Playback
	voiceID     string

	recorder TranscriptRecorder // optional
	metrics  *observe.Metrics
	log      *slog.Logger
}

// PipelineOption configures optional pipeline collaborators.
type PipelineOption func(*Pipeline)

// WithTranscriptRecorder attaches a persistent transcript store.
func WithTranscriptRecorder(r TranscriptRecorder) PipelineOption {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// NewPipeline wires the pipeline's collaborators together.
func NewPipeline(
	transcriber stt.Transcriber,
	responder llm.Responder,
	synthesizer tts.Synthesizer,
	history *memory.History,
	games *memory.GameStates,
	playback *Playback,
	voiceID string,
	metrics *observe.Metrics,
	log *slog.Logger,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		transcriber: transcriber,
		responder:   responder,
		synthesizer: synthesizer,
		history:     history,
		games:       games,
		playback:    playback,
		voiceID:     voiceID,
		metrics:     metrics,
		log:         log,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// SystemPrompt builds the per-user system prompt: the standing persona plus a
// sentence describing the user's active game, when there is one.
func (p *Pipeline) SystemPrompt(userID string) string {
	prompt := basePersona
	if game, ok := p.games.Get(userID); ok {
		prompt += fmt.Sprintf(
			" IMPORTANT CONTEXT: You are currently playing %s with the user in the text channel. The current status is: %s.",
			game.Name, game.Status,
		)
	}
	return prompt
}

// HandleUtterance runs the full voice path for one finalized utterance.
// Failures are contained: they are logged and counted, never propagated.
func (p *Pipeline) HandleUtterance(ctx context.Context, utt Utterance) {
	log := p.log.With("speaker", utt.SpeakerID)

	sttStart := time.Now()
	text, err := p.transcriber.Transcribe(ctx, utt.PCM, stt.AudioConfig{
		SampleRate: utt.SampleRate,
		Channels:   utt.Channels,
	})
	p.metrics.STTDuration.Record(ctx, time.Since(sttStart).Seconds())
	if err != nil {
		if errors.Is(err, stt.ErrNoSpeech) {
			log.Debug("voice: no speech in utterance, dropping")
			p.metrics.RecordUtterance(ctx, observe.OutcomeNoSpeech)
			return
		}
		log.Warn("voice: transcription failed", "error", err)
		p.metrics.RecordProviderError(ctx, "stt", "transcribe")
		p.metrics.RecordUtterance(ctx, observe.OutcomeSTTError)
		return
	}
	log.Info("voice: heard", "text", text)

	reply, err := p.converse(ctx, utt.SpeakerID, text)
	if err != nil {
		log.Warn("voice: model call failed", "error", err)
		p.metrics.RecordUtterance(ctx, observe.OutcomeLLMError)
		return
	}
	log.Info("voice: replying", "text", reply)

	ttsStart := time.Now()
	pcm, err := p.synthesizer.Synthesize(ctx, reply, p.voiceID)
	p.metrics.TTSDuration.Record(ctx, time.Since(ttsStart).Seconds())
	if err != nil {
		log.Warn("voice: synthesis failed", "error", err)
		p.metrics.RecordProviderError(ctx, "tts", "synthesize")
		p.metrics.RecordUtterance(ctx, observe.OutcomeTTSError)
		return
	}

	p.record(ctx, utt.SpeakerID, "voice", text, reply)
	p.metrics.PipelineDuration.Record(ctx, time.Since(utt.Captured).Seconds())

	rate, channels := p.synthesizer.Format()
	switch err := p.playback.Play(ctx, pcm, rate, channels); {
	case err == nil:
		p.metrics.RecordUtterance(ctx, observe.OutcomeOK)
	case errors.Is(err, ErrOutputBusy):
		p.metrics.RecordUtterance(ctx, observe.OutcomeOutputBusy)
	default:
		log.Warn("voice: playback failed", "error", err)
		p.metrics.RecordUtterance(ctx, observe.OutcomePlaybackErr)
	}
}

// Respond runs the synchronous text path: same memory, same prompt, no audio.
// When the model call fails the error is absorbed into a canned apology so
// the chat layer always has something to say; the failed turn is already
// rolled back and will not be replayed.
func (p *Pipeline) Respond(ctx context.Context, userID, text string) string {
	reply, err := p.converse(ctx, userID, text)
	if err != nil {
		p.metrics.RecordTextReply(ctx, observe.OutcomeLLMError)
		var se *llm.StatusError
		if errors.As(err, &se) {
			return apologyUpstream
		}
		return apologyInternal
	}
	p.record(ctx, userID, "text", text, reply)
	p.metrics.RecordTextReply(ctx, observe.OutcomeOK)
	return reply
}

// converse appends the user turn, consults the model with the full history,
// and on success appends the assistant turn. On failure the user turn is
// rolled back so the history never carries an unanswered entry.
func (p *Pipeline) converse(ctx context.Context, userID, text string) (string, error) {
	p.history.AppendUser(userID, text)

	llmStart := time.Now()
	reply, err := p.responder.Converse(ctx, p.SystemPrompt(userID), p.history.Snapshot(userID))
	p.metrics.LLMDuration.Record(ctx, time.Since(llmStart).Seconds())
	if err != nil {
		p.history.RollbackLast(userID)
		p.metrics.RecordProviderError(ctx, "llm", "converse")
		return "", fmt.Errorf("voice: converse: %w", err)
	}

	p.history.AppendAssistant(userID, reply)
	return reply, nil
}

// record writes the exchange to the transcript store when one is attached.
func (p *Pipeline) record(ctx context.Context, userID, source, heard, reply string) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Record(ctx, userID, source, heard, reply); err != nil {
		p.log.Warn("voice: transcript record failed", "user", userID, "error", err)
	}
}
