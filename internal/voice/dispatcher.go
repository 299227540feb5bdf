package voice

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/seraphina-bot/seraphina/internal/observe"
)

// DefaultMaxInFlight bounds concurrent pipeline runs across all speakers.
const DefaultMaxInFlight = 8

// Dispatcher runs one pipeline invocation per finalized utterance. Each run
// gets its own goroutine so a slow provider call for one speaker never delays
// another; a weighted semaphore bounds the total in flight. A panicking run
// is recovered and logged, never taking the process down.
type Dispatcher struct {
	run     func(ctx context.Context, utt Utterance)
	sem     *semaphore.Weighted
	metrics *observe.Metrics
	log     *slog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher invoking run for each utterance.
// maxInFlight values below one fall back to DefaultMaxInFlight. metrics may
// be nil.
func NewDispatcher(run func(ctx context.Context, utt Utterance), maxInFlight int, metrics *observe.Metrics, log *slog.Logger) *Dispatcher {
	if maxInFlight < 1 {
		maxInFlight = DefaultMaxInFlight
	}
	return &Dispatcher{
		run:     run,
		sem:     semaphore.NewWeighted(int64(maxInFlight)),
		metrics: metrics,
		log:     log,
	}
}

// Dispatch hands utt to a pipeline run and returns immediately. The caller is
// the silence-sweep loop, so waiting for an in-flight slot happens on the
// spawned goroutine, never here; cancellation of ctx during that wait drops
// the utterance.
func (d *Dispatcher) Dispatch(ctx context.Context, utt Utterance) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.sem.Acquire(ctx, 1); err != nil {
			d.log.Warn("voice: utterance dropped during shutdown", "speaker", utt.SpeakerID)
			return
		}
		defer d.sem.Release(1)

		if d.metrics != nil {
			d.metrics.InFlight.Add(ctx, 1)
			defer d.metrics.InFlight.Add(ctx, -1)
		}
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("voice: pipeline run panicked",
					"speaker", utt.SpeakerID,
					"panic", r,
					"stack", string(debug.Stack()),
				)
			}
		}()
		d.run(ctx, utt)
	}()
}

// Wait blocks until every dispatched run has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
