package portaudio

import (
	"errors"
	"math"
	"testing"
)

// fakeInputStream simulates a ring buffer holding a fixed number of frames.
type fakeInputStream struct {
	available int
	frameSize int
	reads     int
	readErr   error
}

func (f *fakeInputStream) AvailableToRead() (int, error) {
	return f.available, nil
}

func (f *fakeInputStream) Read() error {
	if f.readErr != nil {
		return f.readErr
	}
	f.reads++
	f.available -= f.frameSize
	return nil
}

func TestDrainStream_DiscardsBufferedFrames(t *testing.T) {
	st := &fakeInputStream{available: 3 * 1024, frameSize: 1024}
	if err := drainStream(st, 1024); err != nil {
		t.Fatalf("drainStream: %v", err)
	}
	if st.reads != 3 {
		t.Errorf("reads = %d, want 3 full frames discarded", st.reads)
	}
	if st.available >= 1024 {
		t.Errorf("available = %d, want below one frame", st.available)
	}
}

func TestDrainStream_EmptyBufferIsNoOp(t *testing.T) {
	st := &fakeInputStream{available: 100, frameSize: 1024}
	if err := drainStream(st, 1024); err != nil {
		t.Fatalf("drainStream: %v", err)
	}
	if st.reads != 0 {
		t.Errorf("reads = %d, want 0 for a partial frame", st.reads)
	}
}

func TestDrainStream_ReadFault(t *testing.T) {
	st := &fakeInputStream{available: 2048, frameSize: 1024, readErr: errors.New("device gone")}
	if err := drainStream(st, 1024); err == nil {
		t.Fatal("expected error from failing stream read")
	}
}

func TestRMS(t *testing.T) {
	if got := rms(nil); got != 0 {
		t.Errorf("rms(nil) = %f, want 0", got)
	}
	if got := rms([]float32{0, 0, 0}); got != 0 {
		t.Errorf("rms(silence) = %f, want 0", got)
	}

	// A constant-amplitude frame has RMS equal to the amplitude.
	frame := []float32{0.5, -0.5, 0.5, -0.5}
	if got := rms(frame); math.Abs(got-0.5) > 1e-6 {
		t.Errorf("rms(square wave) = %f, want 0.5", got)
	}
}

func TestRMS_CrossesDefaultOnsetThreshold(t *testing.T) {
	quiet := make([]float32, 256)
	for i := range quiet {
		quiet[i] = 0.001
	}
	if rms(quiet) >= defaultOnsetThreshold {
		t.Error("near-silence should stay below the onset threshold")
	}

	speech := make([]float32, 256)
	for i := range speech {
		speech[i] = 0.05
	}
	if rms(speech) < defaultOnsetThreshold {
		t.Error("speech-level energy should cross the onset threshold")
	}
}
