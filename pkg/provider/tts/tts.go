// Package tts defines the Synthesizer interface for Text-to-Speech backends.
//
// A synthesizer wraps a speech synthesis service (e.g., a local Coqui server)
// and speaks a complete utterance through the host audio output. The pipeline
// calls Speak once per translated utterance, so the interface is batch-oriented
// rather than streaming.
package tts

import (
	"context"
	"strings"
)

// Voice describes a single voice offered by a synthesis backend.
type Voice struct {
	// ID is the backend-specific voice identifier.
	ID string
	// Name is the human-readable voice name.
	Name string
	// Language is the ISO 639-1 code of the voice's primary language, if the
	// backend reports one. May be empty.
	Language string
}

// Synthesizer is the abstraction over any TTS backend.
//
// Implementations must be safe for concurrent use.
type Synthesizer interface {
	// Speak synthesises text in the given ISO 639-1 language and plays it
	// through the configured audio output. It blocks until playback finishes
	// or ctx is cancelled.
	Speak(ctx context.Context, text, language string) error

	// Voices returns the backend's current voice catalogue. The list may
	// change between calls if the underlying service adds or removes voices.
	Voices(ctx context.Context) ([]Voice, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// SelectVoice picks the first voice matching the given ISO 639-1 language
// code, preferring an exact Language field match and falling back to a
// case-insensitive substring match on the voice name or ID. Returns false if
// no voice matches.
func SelectVoice(voices []Voice, language string) (Voice, bool) {
	lang := strings.ToLower(language)
	for _, v := range voices {
		if strings.ToLower(v.Language) == lang {
			return v, true
		}
	}
	for _, v := range voices {
		if strings.Contains(strings.ToLower(v.Name), lang) ||
			strings.Contains(strings.ToLower(v.ID), lang) {
			return v, true
		}
	}
	return Voice{}, false
}
