// Package whispercpp provides a speech recognizer backed by the whisper.cpp
// CGO bindings, eliminating HTTP overhead entirely. The whisper.cpp static
// library (libwhisper.a) and headers (whisper.h) must be available at link
// time via LIBRARY_PATH and C_INCLUDE_PATH environment variables.
//
// The model is loaded once at construction and shared across calls. Each
// Transcribe call creates its own whisper context, so concurrent calls are
// safe even though a single context is not.
package whispercpp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/voxlate/voxlate/pkg/audio"
	"github.com/voxlate/voxlate/pkg/provider/stt"
)

// Compile-time assertion that Recognizer satisfies stt.Recognizer.
var _ stt.Recognizer = (*Recognizer)(nil)

// Option is a functional option for configuring a Recognizer.
type Option func(*Recognizer)

// WithLanguage sets the language passed to whisper.cpp (e.g., "en", "de",
// or "auto" for detection). Defaults to "auto".
func WithLanguage(lang string) Option {
	return func(r *Recognizer) { r.language = lang }
}

// WithThreads sets the number of inference threads. Zero leaves the
// whisper.cpp default in place.
func WithThreads(n uint) Option {
	return func(r *Recognizer) { r.threads = n }
}

// Recognizer implements stt.Recognizer using the whisper.cpp Go bindings.
type Recognizer struct {
	model    whisperlib.Model
	language string
	threads  uint
}

// New loads the whisper.cpp model from modelPath. The caller must call
// Close when the recognizer is no longer needed.
func New(modelPath string, opts ...Option) (*Recognizer, error) {
	if modelPath == "" {
		return nil, errors.New("whispercpp: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whispercpp: load model %q: %w", modelPath, err)
	}
	r := &Recognizer{
		model:    model,
		language: "auto",
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Transcribe runs whisper.cpp inference over the utterance using a fresh
// context and returns the concatenated segment text.
func (r *Recognizer) Transcribe(ctx context.Context, u *audio.Utterance) (string, error) {
	if u == nil || len(u.Samples) == 0 {
		return "", stt.ErrUnintelligible
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// Each context is NOT thread-safe, but the model can be shared.
	wctx, err := r.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whispercpp: create context: %w", err)
	}
	if err := wctx.SetLanguage(r.language); err != nil {
		return "", fmt.Errorf("whispercpp: set language %q: %w", r.language, err)
	}
	if r.threads > 0 {
		wctx.SetThreads(r.threads)
	}

	if err := wctx.Process(u.Samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whispercpp: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whispercpp: read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}

	if len(parts) == 0 {
		return "", stt.ErrUnintelligible
	}
	return strings.Join(parts, " "), nil
}

// Close releases the whisper model.
func (r *Recognizer) Close() error {
	if r.model != nil {
		return r.model.Close()
	}
	return nil
}
