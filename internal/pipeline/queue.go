package pipeline

import (
	"sync/atomic"
	"time"

	"github.com/sortacle/sortacle/internal/camera"
)

// frameQueue is the bounded handoff between the capture loop and the
// inference worker. Enqueue never blocks: when the queue is full the
// oldest frame is discarded in favour of the newest, because a stale frame
// is worthless for real-time sorting.
type frameQueue struct {
	ch      chan *camera.Frame
	dropped atomic.Int64
}

func newFrameQueue(capacity int) *frameQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &frameQueue{ch: make(chan *camera.Frame, capacity)}
}

// Offer enqueues a frame without blocking. On a full queue it evicts the
// oldest queued frame and retries, so the newest frame always wins.
func (q *frameQueue) Offer(f *camera.Frame) {
	for {
		select {
		case q.ch <- f:
			return
		default:
		}
		// Full: evict the oldest entry. Another goroutine may have beaten
		// us to it, so the receive is also non-blocking and we loop.
		select {
		case <-q.ch:
			q.dropped.Add(1)
		default:
		}
	}
}

// Poll dequeues the next frame, waiting at most timeout so the worker can
// notice shutdown promptly.
func (q *frameQueue) Poll(timeout time.Duration) (*camera.Frame, bool) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case f := <-q.ch:
		return f, true
	case <-t.C:
		return nil, false
	}
}

func (q *frameQueue) Len() int { return len(q.ch) }

func (q *frameQueue) Dropped() int64 { return q.dropped.Load() }
