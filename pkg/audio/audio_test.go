package audio

import (
	"testing"
	"time"
)

func TestFloat32ToPCM16_RoundTrip(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 0.25, -0.25}
	got := PCM16ToFloat32(Float32ToPCM16(in))
	if len(got) != len(in) {
		t.Fatalf("length = %d, want %d", len(got), len(in))
	}
	for i := range in {
		diff := got[i] - in[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > 1.0/32768*2 {
			t.Errorf("sample %d = %f, want ~%f", i, got[i], in[i])
		}
	}
}

func TestFloat32ToPCM16_Clamps(t *testing.T) {
	pcm := Float32ToPCM16([]float32{2.0, -2.0})
	got := PCM16ToFloat32(pcm)
	if got[0] < 0.99 {
		t.Errorf("positive overflow clamped to %f, want ~1", got[0])
	}
	if got[1] > -0.99 {
		t.Errorf("negative overflow clamped to %f, want ~-1", got[1])
	}
}

func TestUtterance_Duration(t *testing.T) {
	u := &Utterance{Samples: make([]float32, 16000), SampleRate: 16000}
	if got := u.Duration(); got != time.Second {
		t.Errorf("Duration = %v, want 1s", got)
	}

	empty := &Utterance{}
	if got := empty.Duration(); got != 0 {
		t.Errorf("Duration of empty utterance = %v, want 0", got)
	}
}
