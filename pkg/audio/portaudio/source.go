// Package portaudio provides PortAudio-backed implementations of the audio
// Source and Player contracts.
//
// The Source opens the default input device once and segments the incoming
// stream into utterances with an energy-based endpointer: Listen waits for
// speech onset within a bounded window, then records until the speaker
// pauses or the maximum phrase duration is reached. The Player renders mono
// PCM on the default output device with an optional volume gain.
//
// PortAudio initialisation is reference counted by the underlying C
// library, so Source and Player may be created and closed independently.
package portaudio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	pa "github.com/gordonklaus/portaudio"

	"github.com/voxlate/voxlate/pkg/audio"
)

const (
	defaultSampleRate      = 16000
	defaultFramesPerBuffer = 1024

	// defaultOnsetThreshold is the RMS energy (float32 scale, max 1.0)
	// above which a frame counts as speech. 0.01 corresponds to the
	// near-silence floor of a typical USB microphone.
	defaultOnsetThreshold = 0.01

	// defaultEndpointSilence is the trailing-silence duration that ends an
	// utterance once speech has started.
	defaultEndpointSilence = 700 * time.Millisecond

	// readPollInterval is how long the capture loop sleeps when the input
	// ring buffer has no frames available. Keeps Listen responsive to
	// context cancellation without busy-spinning.
	readPollInterval = 10 * time.Millisecond
)

// SourceOption is a functional option for configuring a Source.
type SourceOption func(*Source)

// WithSampleRate sets the capture sample rate in Hz. Defaults to 16000,
// which is what the bundled speech recognizers expect.
func WithSampleRate(rate int) SourceOption {
	return func(s *Source) { s.sampleRate = rate }
}

// WithFramesPerBuffer sets the PortAudio buffer size in frames. Defaults
// to 1024 (64 ms at 16 kHz).
func WithFramesPerBuffer(frames int) SourceOption {
	return func(s *Source) { s.framesPerBuffer = frames }
}

// WithOnsetThreshold sets the RMS energy above which a frame is treated as
// speech. Defaults to 0.01 on the float32 [0, 1] scale.
func WithOnsetThreshold(rms float64) SourceOption {
	return func(s *Source) { s.onsetThreshold = rms }
}

// WithEndpointSilence sets the trailing-silence duration that ends an
// utterance. Defaults to 700 ms.
func WithEndpointSilence(d time.Duration) SourceOption {
	return func(s *Source) { s.endpointSilence = d }
}

// Source implements audio.Source using the default PortAudio input device.
// Listen must not be called from more than one goroutine at a time; the
// Source serialises callers internally so the multi-producer contract of
// the pipeline queue still holds.
type Source struct {
	sampleRate      int
	framesPerBuffer int
	onsetThreshold  float64
	endpointSilence time.Duration

	mu     sync.Mutex
	stream *pa.Stream
	buffer []float32
	closed bool
}

var _ audio.Source = (*Source)(nil)

// NewSource initialises PortAudio, opens the default input device, and
// starts the capture stream. The caller must call Close when done.
func NewSource(opts ...SourceOption) (*Source, error) {
	s := &Source{
		sampleRate:      defaultSampleRate,
		framesPerBuffer: defaultFramesPerBuffer,
		onsetThreshold:  defaultOnsetThreshold,
		endpointSilence: defaultEndpointSilence,
	}
	for _, o := range opts {
		o(s)
	}

	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}

	s.buffer = make([]float32, s.framesPerBuffer)
	stream, err := pa.OpenDefaultStream(1, 0, float64(s.sampleRate), s.framesPerBuffer, s.buffer)
	if err != nil {
		pa.Terminate()
		return nil, fmt.Errorf("portaudio: open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		pa.Terminate()
		return nil, fmt.Errorf("portaudio: start input stream: %w", err)
	}

	s.stream = stream
	return s, nil
}

// Listen implements audio.Source. It drains stale frames, waits up to wait
// for a frame whose RMS energy crosses the onset threshold, then records
// frames until endpointSilence of quiet accumulates or maxPhrase elapses.
func (s *Source) Listen(ctx context.Context, wait, maxPhrase time.Duration) (*audio.Utterance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New("portaudio: source is closed")
	}

	// Discard audio buffered while nobody was listening, so sound from
	// before this call cannot trigger an instant onset.
	if err := drainStream(s.stream, s.framesPerBuffer); err != nil {
		return nil, err
	}

	frameDur := time.Duration(s.framesPerBuffer) * time.Second / time.Duration(s.sampleRate)

	// Phase 1: wait for speech onset.
	onsetDeadline := time.Now().Add(wait)
	var samples []float32
	for {
		frame, err := s.readFrame(ctx, onsetDeadline)
		if err != nil {
			return nil, err
		}
		if frame == nil {
			return nil, audio.ErrNoSpeech
		}
		if rms(frame) >= s.onsetThreshold {
			samples = append(samples, frame...)
			break
		}
	}

	// Phase 2: record until trailing silence or the phrase cap.
	phraseDeadline := time.Now().Add(maxPhrase)
	var silence time.Duration
	for time.Now().Before(phraseDeadline) {
		frame, err := s.readFrame(ctx, phraseDeadline)
		if err != nil {
			return nil, err
		}
		if frame == nil {
			break
		}
		samples = append(samples, frame...)
		if rms(frame) < s.onsetThreshold {
			silence += frameDur
			if silence >= s.endpointSilence {
				break
			}
		} else {
			silence = 0
		}
	}

	return &audio.Utterance{
		Samples:    samples,
		SampleRate: s.sampleRate,
		CapturedAt: time.Now(),
	}, nil
}

// inputStream is the slice of the PortAudio stream API the drain needs.
type inputStream interface {
	AvailableToRead() (int, error)
	Read() error
}

// drainStream reads and discards every fully buffered frame.
func drainStream(st inputStream, framesPerBuffer int) error {
	for {
		available, err := st.AvailableToRead()
		if err != nil {
			return fmt.Errorf("portaudio: query input: %w", err)
		}
		if available < framesPerBuffer {
			return nil
		}
		if err := st.Read(); err != nil {
			return fmt.Errorf("portaudio: read input: %w", err)
		}
	}
}

// readFrame returns one captured frame, nil when deadline passes with no
// data, or an error on stream failure / context cancellation. Must be
// called with s.mu held.
func (s *Source) readFrame(ctx context.Context, deadline time.Time) ([]float32, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		available, err := s.stream.AvailableToRead()
		if err != nil {
			return nil, fmt.Errorf("portaudio: query input: %w", err)
		}
		if available >= s.framesPerBuffer {
			if err := s.stream.Read(); err != nil {
				return nil, fmt.Errorf("portaudio: read input: %w", err)
			}
			frame := make([]float32, len(s.buffer))
			copy(frame, s.buffer)
			return frame, nil
		}
		if !time.Now().Before(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(readPollInterval):
		}
	}
}

// Close stops the capture stream and releases PortAudio.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.stream.Stop()
	err := s.stream.Close()
	pa.Terminate()
	return err
}

// rms computes the root-mean-square energy of a float32 frame.
func rms(frame []float32) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, v := range frame {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(frame)))
}
