// Package observe provides application-wide observability primitives for
// Voxlate: OpenTelemetry metrics and the Prometheus exporter bridge that
// serves them on /metrics.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Voxlate metrics.
const meterName = "github.com/voxlate/voxlate"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// DetectDuration tracks language detection latency.
	DetectDuration metric.Float64Histogram

	// TranslateDuration tracks translation latency.
	TranslateDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// UtteranceDuration tracks end-to-end processing latency per utterance,
	// from dequeue to console output.
	UtteranceDuration metric.Float64Histogram

	// --- Counters ---

	// UtterancesCaptured counts utterances enqueued by the capture loop.
	UtterancesCaptured metric.Int64Counter

	// UtterancesProcessed counts utterances fully processed. Use with
	// attribute: attribute.String("outcome", ...) — one of "translated",
	// "identity", "unknown_language", "dropped".
	UtterancesProcessed metric.Int64Counter

	// StageFailures counts per-stage faults. Use with attribute:
	//   attribute.String("stage", ...) — one of "capture", "stt", "detect",
	//   "translate", "tts".
	StageFailures metric.Int64Counter

	// --- Gauges ---

	// QueueDepth tracks the number of utterances waiting in the queue.
	QueueDepth metric.Int64UpDownCounter
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
	if met.STTDuration, err = m.Float64Histogram("voxlate.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.DetectDuration, err = m.Float64Histogram("voxlate.detect.duration",
		metric.WithDescription("Latency of language detection."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranslateDuration, err = m.Float64Histogram("voxlate.translate.duration",
		metric.WithDescription("Latency of translation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("voxlate.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.UtteranceDuration, err = m.Float64Histogram("voxlate.utterance.duration",
		metric.WithDescription("End-to-end utterance processing latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.UtterancesCaptured, err = m.Int64Counter("voxlate.utterances.captured",
		metric.WithDescription("Total utterances enqueued by the capture loop."),
	); err != nil {
		return nil, err
	}
	if met.UtterancesProcessed, err = m.Int64Counter("voxlate.utterances.processed",
		metric.WithDescription("Total utterances processed by outcome."),
	); err != nil {
		return nil, err
	}
	if met.StageFailures, err = m.Int64Counter("voxlate.stage.failures",
		metric.WithDescription("Total per-stage faults by stage."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.QueueDepth, err = m.Int64UpDownCounter("voxlate.queue.depth",
		metric.WithDescription("Number of utterances waiting in the queue."),
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

// RecordOutcome records a processed utterance with its outcome.
func (m *Metrics) RecordOutcome(ctx context.Context, outcome string) {
	m.UtterancesProcessed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordStageFailure records a fault in the named pipeline stage.
func (m *Metrics) RecordStageFailure(ctx context.Context, stage string) {
	m.StageFailures.Add(ctx, 1,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}
