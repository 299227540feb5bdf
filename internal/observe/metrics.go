// Package observe provides application-wide observability primitives for
// Seraphina: OpenTelemetry metrics and a Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Seraphina metrics.
const meterName = "github.com/seraphina-bot/seraphina"

// Utterance outcome attribute values.
const (
	OutcomeOK          = "ok"
	OutcomeNoSpeech    = "no_speech"
	OutcomeSTTError    = "stt_error"
	OutcomeLLMError    = "llm_error"
	OutcomeTTSError    = "tts_error"
	OutcomeOutputBusy  = "output_busy"
	OutcomePlaybackErr = "playback_error"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks model inference latency.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// PipelineDuration tracks utterance-finalized-to-playback-start latency.
	PipelineDuration metric.Float64Histogram

	// --- Counters ---

	// Utterances counts finalized utterances. Use with attribute:
	//   attribute.String("outcome", ...)
	Utterances metric.Int64Counter

	// TextReplies counts text-channel conversation replies. Use with attribute:
	//   attribute.String("outcome", ...)
	TextReplies metric.Int64Counter

	// PlaybackDrops counts replies dropped because the shared output was busy.
	PlaybackDrops metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSpeakers tracks speakers with an in-progress audio buffer.
	ActiveSpeakers metric.Int64UpDownCounter

	// InFlight tracks concurrently running pipeline invocations.
	InFlight metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("seraphina.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("seraphina.llm.duration",
		metric.WithDescription("Latency of model inference."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("seraphina.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PipelineDuration, err = m.Float64Histogram("seraphina.pipeline.duration",
		metric.WithDescription("Latency from utterance finalization to playback start."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Utterances, err = m.Int64Counter("seraphina.utterances",
		metric.WithDescription("Total finalized utterances by outcome."),
	); err != nil {
		return nil, err
	}
	if met.TextReplies, err = m.Int64Counter("seraphina.text.replies",
		metric.WithDescription("Total text-channel replies by outcome."),
	); err != nil {
		return nil, err
	}
	if met.PlaybackDrops, err = m.Int64Counter("seraphina.playback.drops",
		metric.WithDescription("Total replies dropped because the shared voice output was busy."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("seraphina.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSpeakers, err = m.Int64UpDownCounter("seraphina.active_speakers",
		metric.WithDescription("Speakers with an in-progress audio buffer."),
	); err != nil {
		return nil, err
	}
	if met.InFlight, err = m.Int64UpDownCounter("seraphina.pipeline.in_flight",
		metric.WithDescription("Concurrently running pipeline invocations."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordUtterance records one finalized utterance with its outcome.
func (m *Metrics) RecordUtterance(ctx context.Context, outcome string) {
	m.Utterances.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordTextReply records one text-channel reply with its outcome.
func (m *Metrics) RecordTextReply(ctx context.Context, outcome string) {
	m.TextReplies.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordPlaybackDrop records one reply dropped on a busy output.
func (m *Metrics) RecordPlaybackDrop(ctx context.Context) {
	m.PlaybackDrops.Add(ctx, 1)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
