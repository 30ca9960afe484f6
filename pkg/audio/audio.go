// Package audio defines the capture and playback contracts for the Voxlate
// pipeline.
//
// A Source produces discrete utterances: endpointed segments of microphone
// audio bounded by a speech-onset wait window and a maximum phrase duration.
// A Player renders synthesised PCM back to the output device. Both are
// interfaces so that test code can supply mock implementations without a
// live audio device.
package audio

import (
	"context"
	"errors"
	"time"
)

// ErrNoSpeech is returned by [Source.Listen] when no speech onset was
// observed within the wait window. This is the expected idle case for a
// quiet room, not a failure: callers should simply listen again.
var ErrNoSpeech = errors.New("audio: no speech within wait window")

// Utterance is one captured, endpointed segment of speech audio. Samples
// are mono float32 PCM in [-1, 1] at SampleRate Hz. An Utterance is owned
// by the pipeline queue from creation until it is dequeued, and is dropped
// after processing completes; it is never replayed or persisted.
type Utterance struct {
	Samples    []float32
	SampleRate int

	// CapturedAt records when the utterance ended (capture completion time).
	CapturedAt time.Time
}

// Duration returns the audio length of the utterance.
func (u *Utterance) Duration() time.Duration {
	if u.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(u.Samples)) * time.Second / time.Duration(u.SampleRate)
}

// Source captures utterances from an input device.
//
// Implementations must be safe for concurrent use: the capture contract
// supports multiple producer goroutines even though the baseline pipeline
// runs a single one.
type Source interface {
	// Listen waits up to wait for speech to begin, then records until the
	// speaker pauses or maxPhrase elapses, and returns the utterance.
	//
	// Returns [ErrNoSpeech] when the wait window elapses without speech
	// onset. Any other error is a capture fault (device unavailable,
	// stream read failure) that the caller should log and retry after a
	// short backoff. Listen returns promptly with ctx.Err() when ctx is
	// cancelled mid-wait.
	Listen(ctx context.Context, wait, maxPhrase time.Duration) (*Utterance, error)

	// Close releases the input device. Listen must not be called after
	// Close. Calling Close more than once is safe.
	Close() error
}

// Player renders PCM audio to the output device.
type Player interface {
	// Play blocks until the given mono float32 samples have been played
	// back, or ctx is cancelled.
	Play(ctx context.Context, samples []float32, sampleRate int) error

	// Close releases the output device. Calling Close more than once is safe.
	Close() error
}

// Float32ToPCM16 converts mono float32 samples in [-1, 1] to 16-bit signed
// little-endian PCM bytes, clamping out-of-range values.
func Float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// PCM16ToFloat32 converts 16-bit signed little-endian PCM bytes to mono
// float32 samples in [-1, 1]. A trailing odd byte is dropped.
func PCM16ToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = float32(v) / 32768
	}
	return out
}
