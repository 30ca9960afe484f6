// Package stt defines the Recognizer interface for speech-to-text backends.
//
// A Recognizer wraps a transcription engine (a whisper-server instance, the
// native whisper.cpp bindings, or a local Vosk model) behind a uniform
// batch interface: one utterance in, one text out. The pipeline processes
// utterances strictly one at a time, so unlike a streaming STT session
// there is no partial-transcript surface.
//
// Implementations must be safe for concurrent use and must normalize every
// engine fault into a returned error; the distinguished case of audio that
// contained no recognisable speech is reported via [ErrUnintelligible] so
// the caller can treat it as expected noise rather than a service fault.
package stt

import (
	"context"
	"errors"

	"github.com/voxlate/voxlate/pkg/audio"
)

// ErrUnintelligible is returned by Transcribe when the engine processed the
// audio successfully but found no recognisable speech in it (background
// noise, a cough, a truncated syllable). Callers should drop the utterance
// without reporting an error.
var ErrUnintelligible = errors.New("stt: audio contained no recognisable speech")

// Recognizer is the abstraction over any speech-to-text backend.
type Recognizer interface {
	// Transcribe converts one utterance's audio into text.
	//
	// Returns [ErrUnintelligible] when the audio holds no recognisable
	// speech, or another error when the engine itself fails. The returned
	// text is trimmed of surrounding whitespace and never empty on success.
	Transcribe(ctx context.Context, u *audio.Utterance) (string, error)
}
