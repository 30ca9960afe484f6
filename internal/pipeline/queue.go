// Package pipeline contains the capture and processing loops that form the
// translation pipeline: utterances flow from the audio source through a FIFO
// queue into the coordinator, which transcribes, detects, translates, and
// speaks them one at a time.
package pipeline

import (
	"sync"
	"time"

	"github.com/voxlate/voxlate/pkg/audio"
)

// UtteranceQueue is an unbounded FIFO of captured utterances. Enqueue never
// blocks; Dequeue blocks up to a caller-supplied timeout. Safe for concurrent
// use by one producer and one consumer.
type UtteranceQueue struct {
	mu    sync.Mutex
	items []*audio.Utterance

	// wake signals a waiting Dequeue that an item arrived. Buffered so an
	// Enqueue with no waiter doesn't block.
	wake chan struct{}
}

// NewUtteranceQueue returns an empty queue.
func NewUtteranceQueue() *UtteranceQueue {
	return &UtteranceQueue{
		wake: make(chan struct{}, 1),
	}
}

// Enqueue appends u to the queue. It never blocks.
func (q *UtteranceQueue) Enqueue(u *audio.Utterance) {
	q.mu.Lock()
	q.items = append(q.items, u)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Dequeue removes and returns the oldest utterance, blocking up to timeout
// when the queue is empty. Returns nil if no utterance arrived in time.
func (q *UtteranceQueue) Dequeue(timeout time.Duration) *audio.Utterance {
	if u := q.pop(); u != nil {
		return u
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-q.wake:
			if u := q.pop(); u != nil {
				return u
			}
			// Raced with another consumer; keep waiting out the timeout.
		case <-timer.C:
			return q.pop()
		}
	}
}

// Len reports the number of queued utterances.
func (q *UtteranceQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *UtteranceQueue) pop() *audio.Utterance {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	u := q.items[0]
	q.items = q.items[1:]
	return u
}
