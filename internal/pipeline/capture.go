package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/voxlate/voxlate/internal/observe"
	"github.com/voxlate/voxlate/pkg/audio"
)

const (
	// listenWait bounds how long one Listen call waits for speech onset.
	listenWait = time.Second

	// maxPhrase bounds the duration of a single captured phrase.
	maxPhrase = 5 * time.Second

	// captureBackoff is the pause after an unexpected capture fault.
	captureBackoff = 100 * time.Millisecond
)

// Capture is the producer loop: it pulls utterances from the audio source
// and enqueues them for the coordinator. A wait-timeout from the source is
// the expected quiet-room case and retries immediately; any other fault is
// logged and retried after a short backoff. The loop never blocks on the
// queue.
type Capture struct {
	source  audio.Source
	queue   *UtteranceQueue
	metrics *observe.Metrics
}

// NewCapture builds a capture loop reading from source into queue.
func NewCapture(source audio.Source, queue *UtteranceQueue, metrics *observe.Metrics) *Capture {
	return &Capture{source: source, queue: queue, metrics: metrics}
}

// Run executes the capture loop until ctx is cancelled. It always returns
// nil: capture faults are retried, never fatal.
func (c *Capture) Run(ctx context.Context) error {
	slog.Info("capture: started")
	for {
		if ctx.Err() != nil {
			slog.Info("capture: stopped")
			return nil
		}

		u, err := c.source.Listen(ctx, listenWait, maxPhrase)
		switch {
		case err == nil:
			c.queue.Enqueue(u)
			c.metrics.UtterancesCaptured.Add(ctx, 1)
			c.metrics.QueueDepth.Add(ctx, 1)
			slog.Debug("capture: utterance enqueued",
				"duration", u.Duration(),
				"queued", c.queue.Len())
		case errors.Is(err, audio.ErrNoSpeech):
			// Quiet room. Not an error.
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			// Shutdown observed mid-listen; loop back to exit.
		default:
			slog.Warn("capture: listen failed, backing off", "err", err)
			c.metrics.RecordStageFailure(ctx, "capture")
			select {
			case <-time.After(captureBackoff):
			case <-ctx.Done():
			}
		}
	}
}
