// Package mock provides a test double for the stt package.
//
// Results are consumed in order; once exhausted, Transcribe returns
// DefaultText (or DefaultErr). Every call is recorded for inspection.
package mock

import (
	"context"
	"sync"

	"github.com/voxlate/voxlate/pkg/audio"
	"github.com/voxlate/voxlate/pkg/provider/stt"
)

// Result is one scripted outcome for Recognizer.Transcribe.
type Result struct {
	Text string
	Err  error
}

// TranscribeCall records a single invocation of Recognizer.Transcribe.
type TranscribeCall struct {
	Utterance *audio.Utterance
}

// Recognizer is a mock implementation of stt.Recognizer.
type Recognizer struct {
	mu sync.Mutex

	// Results holds the outcomes returned by successive Transcribe calls.
	Results []Result

	// DefaultText and DefaultErr are returned once Results is exhausted.
	DefaultText string
	DefaultErr  error

	// TranscribeCalls records every call to Transcribe.
	TranscribeCalls []TranscribeCall

	next int
}

var _ stt.Recognizer = (*Recognizer)(nil)

// Transcribe records the call and returns the next scripted result.
func (r *Recognizer) Transcribe(ctx context.Context, u *audio.Utterance) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.TranscribeCalls = append(r.TranscribeCalls, TranscribeCall{Utterance: u})
	if r.next < len(r.Results) {
		res := r.Results[r.next]
		r.next++
		return res.Text, res.Err
	}
	return r.DefaultText, r.DefaultErr
}

// CallCount returns the number of recorded Transcribe calls. Thread-safe.
func (r *Recognizer) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.TranscribeCalls)
}
