package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/voxlate/voxlate/internal/detect"
	"github.com/voxlate/voxlate/internal/observe"
	"github.com/voxlate/voxlate/pkg/audio"
	"github.com/voxlate/voxlate/pkg/provider/stt"
	"github.com/voxlate/voxlate/pkg/provider/translate"
	"github.com/voxlate/voxlate/pkg/provider/tts"
)

// dequeueTimeout bounds how long the processing loop waits for an utterance
// before re-checking the stop signal.
const dequeueTimeout = 500 * time.Millisecond

// LanguageDetector resolves the language of transcribed text. The confidence
// threshold gates any fallback tier; it is supplied per call so runtime
// configuration changes apply from the next utterance.
type LanguageDetector interface {
	DetectLanguage(ctx context.Context, text string, threshold float64) (detect.Result, error)
}

// Coordinator is the consumer loop: it drains the queue and runs each
// utterance through transcribe → detect → policy → translate → report/speak,
// strictly sequentially. A single mutex is held for the whole cycle so no two
// utterances are ever mid-pipeline at once; the same mutex serializes
// SetDefaultTargetLanguage and TranslateText against in-flight cycles.
//
// No single utterance's failure terminates the loop. Each stage normalizes
// its faults: expected cases (noise, quiet) are skipped silently at debug
// level, service faults are logged and the utterance abandoned.
type Coordinator struct {
	queue      *UtteranceQueue
	recognizer stt.Recognizer
	detector   LanguageDetector
	translator translate.Service
	synth      tts.Synthesizer // nil disables speech output
	reporter   Reporter
	metrics    *observe.Metrics

	mu            sync.Mutex
	defaultTarget string
	threshold     float64
	lastDetected  string
}

// NewCoordinator builds a processing loop. synth may be nil to disable
// spoken output; everything else is required. defaultTarget is the initial
// default target language (ISO 639-1); threshold is the initial detection
// confidence threshold in [0, 1].
func NewCoordinator(
	queue *UtteranceQueue,
	recognizer stt.Recognizer,
	detector LanguageDetector,
	translator translate.Service,
	synth tts.Synthesizer,
	reporter Reporter,
	metrics *observe.Metrics,
	defaultTarget string,
	threshold float64,
) (*Coordinator, error) {
	if queue == nil {
		return nil, errors.New("pipeline: queue must not be nil")
	}
	if recognizer == nil {
		return nil, errors.New("pipeline: recognizer must not be nil")
	}
	if detector == nil {
		return nil, errors.New("pipeline: detector must not be nil")
	}
	if translator == nil {
		return nil, errors.New("pipeline: translator must not be nil")
	}
	if reporter == nil {
		return nil, errors.New("pipeline: reporter must not be nil")
	}
	if metrics == nil {
		return nil, errors.New("pipeline: metrics must not be nil")
	}
	if defaultTarget == "" {
		return nil, errors.New("pipeline: defaultTarget must not be empty")
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("pipeline: threshold %v out of range [0, 1]", threshold)
	}
	return &Coordinator{
		queue:         queue,
		recognizer:    recognizer,
		detector:      detector,
		translator:    translator,
		synth:         synth,
		reporter:      reporter,
		metrics:       metrics,
		defaultTarget: defaultTarget,
		threshold:     threshold,
	}, nil
}

// Run executes the processing loop until ctx is cancelled. It always returns
// nil: per-utterance faults never terminate the loop.
func (c *Coordinator) Run(ctx context.Context) error {
	slog.Info("coordinator: started", "default_target", c.DefaultTargetLanguage())
	for {
		if ctx.Err() != nil {
			slog.Info("coordinator: stopped")
			return nil
		}

		u := c.queue.Dequeue(dequeueTimeout)
		if u == nil {
			continue
		}
		c.metrics.QueueDepth.Add(ctx, -1)
		c.process(ctx, u)
	}
}

// SetDefaultTargetLanguage changes the default target language. The change
// takes effect from the next utterance; an in-flight cycle keeps the value it
// started with.
func (c *Coordinator) SetDefaultTargetLanguage(lang string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultTarget = lang
	slog.Info("coordinator: default target language changed", "target", lang)
}

// DefaultTargetLanguage returns the current default target language.
func (c *Coordinator) DefaultTargetLanguage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defaultTarget
}

// SetDetectionConfidenceThreshold changes the confidence gate for fallback
// language detection. The change takes effect from the next utterance; an
// in-flight cycle keeps the value it started with.
func (c *Coordinator) SetDetectionConfidenceThreshold(threshold float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threshold = threshold
	slog.Info("coordinator: detection confidence threshold changed", "threshold", threshold)
}

// DetectionConfidenceThreshold returns the current detection confidence
// threshold.
func (c *Coordinator) DetectionConfidenceThreshold() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.threshold
}

// LastDetectedLanguage returns the language of the most recent successfully
// detected utterance, or "" if none has been detected yet. Advisory only.
func (c *Coordinator) LastDetectedLanguage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastDetected
}

// TranslationOutcome is the result of a one-shot TranslateText call.
type TranslationOutcome struct {
	// SourceLanguage is the detected language of the input text.
	SourceLanguage string
	// TargetLanguage is the resolved target language.
	TargetLanguage string
	// Text is the translated text. Equal to the input when source and
	// target coincide.
	Text string
}

// TranslateText runs the text half of the pipeline (detect → policy →
// translate) on already-transcribed text, serialized against utterance
// cycles by the same mutex.
func (c *Coordinator) TranslateText(ctx context.Context, text string) (TranslationOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.detector.DetectLanguage(ctx, text, c.threshold)
	if err != nil {
		return TranslationOutcome{}, fmt.Errorf("pipeline: detect: %w", err)
	}
	c.lastDetected = res.Language

	target := TargetLanguage(res.Language, c.defaultTarget)
	if res.Language == target {
		return TranslationOutcome{SourceLanguage: res.Language, TargetLanguage: target, Text: text}, nil
	}

	out, err := c.translator.Translate(ctx, translate.Request{
		Text:   text,
		Source: res.Language,
		Target: target,
	})
	if err != nil {
		return TranslationOutcome{}, fmt.Errorf("pipeline: translate: %w", err)
	}
	return TranslationOutcome{SourceLanguage: res.Language, TargetLanguage: target, Text: out.Text}, nil
}

// process runs one utterance through the full pipeline under the cycle
// mutex. Faults abandon the utterance, never the loop.
func (c *Coordinator) process(ctx context.Context, u *audio.Utterance) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	defaultTarget := c.defaultTarget
	threshold := c.threshold

	// Transcribe.
	sttStart := time.Now()
	text, err := c.recognizer.Transcribe(ctx, u)
	c.metrics.STTDuration.Record(ctx, time.Since(sttStart).Seconds())
	if err != nil {
		if errors.Is(err, stt.ErrUnintelligible) {
			// Expected noise case: no output, no fault.
			slog.Debug("coordinator: unintelligible audio, skipping")
		} else {
			slog.Warn("coordinator: transcription failed", "err", err)
			c.metrics.RecordStageFailure(ctx, "stt")
		}
		c.metrics.RecordOutcome(ctx, "dropped")
		return
	}
	slog.Debug("coordinator: transcribed", "text", text)

	// Detect language.
	detStart := time.Now()
	res, err := c.detector.DetectLanguage(ctx, text, threshold)
	c.metrics.DetectDuration.Record(ctx, time.Since(detStart).Seconds())
	if err != nil {
		if !errors.Is(err, detect.ErrUnknownLanguage) {
			slog.Warn("coordinator: detection failed", "err", err)
			c.metrics.RecordStageFailure(ctx, "detect")
		}
		c.reporter.Unknown(text)
		c.reporter.Done()
		c.metrics.RecordOutcome(ctx, "unknown_language")
		c.metrics.UtteranceDuration.Record(ctx, time.Since(start).Seconds())
		return
	}
	c.lastDetected = res.Language

	// Resolve target and short-circuit the identity case without a
	// translation call.
	target := TargetLanguage(res.Language, defaultTarget)
	c.reporter.Utterance(res.Language, text)
	if res.Language == target {
		c.reporter.NoTranslation()
		c.reporter.Done()
		c.metrics.RecordOutcome(ctx, "identity")
		c.metrics.UtteranceDuration.Record(ctx, time.Since(start).Seconds())
		return
	}

	// Translate.
	trStart := time.Now()
	out, err := c.translator.Translate(ctx, translate.Request{
		Text:   text,
		Source: res.Language,
		Target: target,
	})
	c.metrics.TranslateDuration.Record(ctx, time.Since(trStart).Seconds())
	if err != nil {
		slog.Warn("coordinator: translation failed", "err", err)
		c.metrics.RecordStageFailure(ctx, "translate")
		c.reporter.TranslationFailed()
		c.reporter.Done()
		c.metrics.RecordOutcome(ctx, "dropped")
		c.metrics.UtteranceDuration.Record(ctx, time.Since(start).Seconds())
		return
	}
	c.reporter.Translation(target, out.Text)
	c.reporter.Done()

	// Speak only when translation actually changed the text. Synthesis
	// faults are logged and swallowed.
	if c.synth != nil && out.Text != text {
		ttsStart := time.Now()
		if err := c.synth.Speak(ctx, out.Text, target); err != nil {
			slog.Warn("coordinator: synthesis failed", "err", err)
			c.metrics.RecordStageFailure(ctx, "tts")
		}
		c.metrics.TTSDuration.Record(ctx, time.Since(ttsStart).Seconds())
	}

	c.metrics.RecordOutcome(ctx, "translated")
	c.metrics.UtteranceDuration.Record(ctx, time.Since(start).Seconds())
}
