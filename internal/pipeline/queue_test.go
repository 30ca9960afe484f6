package pipeline

import (
	"testing"
	"time"

	"github.com/voxlate/voxlate/pkg/audio"
)

func utt(at time.Time) *audio.Utterance {
	return &audio.Utterance{Samples: []float32{0}, SampleRate: 16000, CapturedAt: at}
}

// TestQueue_FIFO verifies utterances come out in arrival order.
func TestQueue_FIFO(t *testing.T) {
	q := NewUtteranceQueue()
	base := time.Now()
	first := utt(base)
	second := utt(base.Add(time.Second))
	third := utt(base.Add(2 * time.Second))

	q.Enqueue(first)
	q.Enqueue(second)
	q.Enqueue(third)

	for i, want := range []*audio.Utterance{first, second, third} {
		if got := q.Dequeue(10 * time.Millisecond); got != want {
			t.Fatalf("dequeue %d: got %p, want %p", i, got, want)
		}
	}
}

// TestQueue_DequeueTimeout returns nil when nothing arrives in time.
func TestQueue_DequeueTimeout(t *testing.T) {
	q := NewUtteranceQueue()

	start := time.Now()
	if got := q.Dequeue(50 * time.Millisecond); got != nil {
		t.Fatalf("dequeue on empty queue = %v, want nil", got)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("dequeue returned after %v, expected to block near the timeout", elapsed)
	}
}

// TestQueue_DequeueWakesOnEnqueue verifies a blocked Dequeue observes a
// concurrent Enqueue well before the timeout.
func TestQueue_DequeueWakesOnEnqueue(t *testing.T) {
	q := NewUtteranceQueue()
	u := utt(time.Now())

	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Enqueue(u)
	}()

	start := time.Now()
	got := q.Dequeue(5 * time.Second)
	if got != u {
		t.Fatalf("dequeue = %v, want enqueued utterance", got)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("dequeue took %v, expected prompt wake-up", elapsed)
	}
}

// TestQueue_EnqueueNeverBlocks enqueues far more than any internal buffer
// without a consumer.
func TestQueue_EnqueueNeverBlocks(t *testing.T) {
	q := NewUtteranceQueue()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			q.Enqueue(utt(time.Now()))
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("enqueue blocked")
	}
	if got := q.Len(); got != 1000 {
		t.Errorf("len = %d, want 1000", got)
	}
}
