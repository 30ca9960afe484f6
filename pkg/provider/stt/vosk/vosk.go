// Package vosk provides a fully offline speech recognizer backed by a local
// Vosk model. Unlike the whisper backends, Vosk models are single-language,
// so this recognizer suits deployments where the spoken languages are known
// in advance and network access is unavailable.
//
// The vosk-api shared library must be available at link time.
package vosk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	vosklib "github.com/alphacep/vosk-api/go"

	"github.com/voxlate/voxlate/pkg/audio"
	"github.com/voxlate/voxlate/pkg/provider/stt"
)

// Compile-time assertion that Recognizer satisfies stt.Recognizer.
var _ stt.Recognizer = (*Recognizer)(nil)

// Option is a functional option for configuring a Recognizer.
type Option func(*Recognizer)

// WithSampleRate sets the sample rate the model expects. Defaults to 16000.
// Utterances at a different rate are rejected rather than resampled.
func WithSampleRate(rate int) Option {
	return func(r *Recognizer) { r.sampleRate = rate }
}

// Recognizer implements stt.Recognizer using a local Vosk model. A fresh
// vosk recognizer is created per call so that no C-side decoder state leaks
// between utterances; the model itself is shared.
type Recognizer struct {
	mu         sync.Mutex
	model      *vosklib.VoskModel
	sampleRate int
}

// New loads the Vosk model from modelPath. The caller must call Close when
// the recognizer is no longer needed.
func New(modelPath string, opts ...Option) (*Recognizer, error) {
	if modelPath == "" {
		return nil, errors.New("vosk: modelPath must not be empty")
	}
	vosklib.SetLogLevel(-1) // suppress vosk's own logs
	model, err := vosklib.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("vosk: load model %q: %w", modelPath, err)
	}
	r := &Recognizer{
		model:      model,
		sampleRate: 16000,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Transcribe feeds the utterance to a fresh Vosk recognizer and returns the
// final result text.
func (r *Recognizer) Transcribe(ctx context.Context, u *audio.Utterance) (string, error) {
	if u == nil || len(u.Samples) == 0 {
		return "", stt.ErrUnintelligible
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if u.SampleRate != r.sampleRate {
		return "", fmt.Errorf("vosk: utterance sample rate %d does not match model rate %d", u.SampleRate, r.sampleRate)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.model == nil {
		return "", errors.New("vosk: recognizer is closed")
	}

	rec, err := vosklib.NewRecognizer(r.model, float64(r.sampleRate))
	if err != nil {
		return "", fmt.Errorf("vosk: create recognizer: %w", err)
	}
	defer rec.Free()
	rec.SetWords(0) // no word-level timing

	rec.AcceptWaveform(audio.Float32ToPCM16(u.Samples))

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(rec.FinalResult()), &result); err != nil {
		return "", fmt.Errorf("vosk: parse result: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", stt.ErrUnintelligible
	}
	return text, nil
}

// Close frees the Vosk model.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.model != nil {
		r.model.Free()
		r.model = nil
	}
	return nil
}
