package portaudio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	pa "github.com/gordonklaus/portaudio"

	"github.com/voxlate/voxlate/pkg/audio"
)

// PlayerOption is a functional option for configuring a Player.
type PlayerOption func(*Player)

// WithVolume sets the playback gain in [0, 1]. Defaults to 0.8.
func WithVolume(gain float64) PlayerOption {
	return func(p *Player) { p.volume = gain }
}

// WithPlayerFramesPerBuffer sets the output buffer size in frames.
// Defaults to 1024.
func WithPlayerFramesPerBuffer(frames int) PlayerOption {
	return func(p *Player) { p.framesPerBuffer = frames }
}

// Player implements audio.Player on the default PortAudio output device.
// Playback requests are serialised: only one Play call renders at a time.
type Player struct {
	volume          float64
	framesPerBuffer int

	mu     sync.Mutex
	closed bool
}

var _ audio.Player = (*Player)(nil)

// NewPlayer initialises PortAudio for output. The output stream itself is
// opened per Play call because the sample rate is dictated by the
// synthesiser, which may change between utterances.
func NewPlayer(opts ...PlayerOption) (*Player, error) {
	p := &Player{
		volume:          0.8,
		framesPerBuffer: defaultFramesPerBuffer,
	}
	for _, o := range opts {
		o(p)
	}
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}
	return p, nil
}

// Play writes the samples to the default output device, applying the
// configured volume gain, and blocks until playback completes or ctx is
// cancelled.
func (p *Player) Play(ctx context.Context, samples []float32, sampleRate int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("portaudio: player is closed")
	}
	if sampleRate <= 0 {
		return fmt.Errorf("portaudio: invalid sample rate %d", sampleRate)
	}
	if len(samples) == 0 {
		return nil
	}

	buffer := make([]float32, p.framesPerBuffer)
	stream, err := pa.OpenDefaultStream(0, 1, float64(sampleRate), p.framesPerBuffer, buffer)
	if err != nil {
		return fmt.Errorf("portaudio: open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("portaudio: start output stream: %w", err)
	}
	defer stream.Stop()

	gain := float32(p.volume)
	for off := 0; off < len(samples); off += p.framesPerBuffer {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := copy(buffer, samples[off:])
		for i := 0; i < n; i++ {
			buffer[i] *= gain
		}
		// Zero-pad the final partial buffer.
		for i := n; i < len(buffer); i++ {
			buffer[i] = 0
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("portaudio: write output: %w", err)
		}
	}
	return nil
}

// Close releases PortAudio.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	pa.Terminate()
	return nil
}
