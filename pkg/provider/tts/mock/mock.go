// Package mock provides a test double for the tts.Synthesizer interface.
//
// Use Synthesizer to verify the text and language passed to the TTS backend
// and to inject synthesis failures.
package mock

import (
	"context"
	"sync"

	"github.com/voxlate/voxlate/pkg/provider/tts"
)

// SpeakCall records a single invocation of Speak.
type SpeakCall struct {
	// Text is the text passed to Speak.
	Text string
	// Language is the ISO 639-1 code passed to Speak.
	Language string
}

// Synthesizer is a mock implementation of tts.Synthesizer.
type Synthesizer struct {
	mu sync.Mutex

	// SpeakErr, if non-nil, is returned by every Speak call.
	SpeakErr error

	// VoicesResult is returned by Voices.
	VoicesResult []tts.Voice

	// VoicesErr, if non-nil, is returned as the error from Voices.
	VoicesErr error

	// SpeakCalls records every call to Speak in order.
	SpeakCalls []SpeakCall

	closed bool
}

// Speak records the call and returns SpeakErr.
func (s *Synthesizer) Speak(ctx context.Context, text, language string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SpeakCalls = append(s.SpeakCalls, SpeakCall{Text: text, Language: language})
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.SpeakErr
}

// Voices returns VoicesResult, VoicesErr.
func (s *Synthesizer) Voices(ctx context.Context) ([]tts.Voice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.VoicesResult, s.VoicesErr
}

// Close marks the synthesizer as closed.
func (s *Synthesizer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close has been called. Thread-safe.
func (s *Synthesizer) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Calls returns a snapshot of recorded Speak calls. Thread-safe.
func (s *Synthesizer) Calls() []SpeakCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SpeakCall, len(s.SpeakCalls))
	copy(out, s.SpeakCalls)
	return out
}

// Ensure Synthesizer implements tts.Synthesizer at compile time.
var _ tts.Synthesizer = (*Synthesizer)(nil)
