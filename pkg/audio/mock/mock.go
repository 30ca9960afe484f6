// Package mock provides test doubles for the audio package interfaces.
//
// Source plays back a pre-scripted sequence of Listen outcomes; once the
// script is exhausted every further call reports the idle case
// ([audio.ErrNoSpeech]), which lets capture-loop tests run until their
// context is cancelled. Player records every Play invocation.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/voxlate/voxlate/pkg/audio"
)

// ListenResult is one scripted outcome for [Source.Listen].
type ListenResult struct {
	Utterance *audio.Utterance
	Err       error
}

// ListenCall records a single invocation of Source.Listen.
type ListenCall struct {
	Wait      time.Duration
	MaxPhrase time.Duration
}

// Source is a mock implementation of audio.Source.
type Source struct {
	mu sync.Mutex

	// Script holds the outcomes returned by successive Listen calls.
	Script []ListenResult

	// ListenCalls records every call to Listen.
	ListenCalls []ListenCall

	// Closed reports whether Close has been called.
	Closed bool

	next int
}

var _ audio.Source = (*Source)(nil)

// Listen returns the next scripted result, or audio.ErrNoSpeech once the
// script is exhausted. It honours ctx cancellation.
func (s *Source) Listen(ctx context.Context, wait, maxPhrase time.Duration) (*audio.Utterance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.ListenCalls = append(s.ListenCalls, ListenCall{Wait: wait, MaxPhrase: maxPhrase})
	if s.next >= len(s.Script) {
		s.mu.Unlock()
		// Exhausted script behaves like a quiet room.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond):
			return nil, audio.ErrNoSpeech
		}
	}
	r := s.Script[s.next]
	s.next++
	s.mu.Unlock()
	return r.Utterance, r.Err
}

// Close marks the source closed.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// PlayCall records a single invocation of Player.Play.
type PlayCall struct {
	// Samples is the sample slice passed to Play (not copied).
	Samples    []float32
	SampleRate int
}

// Player is a mock implementation of audio.Player.
type Player struct {
	mu sync.Mutex

	// PlayErr, if non-nil, is returned from every Play call.
	PlayErr error

	// PlayCalls records every call to Play.
	PlayCalls []PlayCall

	// Closed reports whether Close has been called.
	Closed bool
}

var _ audio.Player = (*Player)(nil)

// Play records the call and returns PlayErr.
func (p *Player) Play(ctx context.Context, samples []float32, sampleRate int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PlayCalls = append(p.PlayCalls, PlayCall{Samples: samples, SampleRate: sampleRate})
	return p.PlayErr
}

// Close marks the player closed.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return nil
}

// Calls returns a snapshot of recorded Play calls. Thread-safe.
func (p *Player) Calls() []PlayCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PlayCall, len(p.PlayCalls))
	copy(out, p.PlayCalls)
	return out
}
