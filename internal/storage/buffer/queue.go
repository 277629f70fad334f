package buffer

import (
	"sync"
	"sync/atomic"

	"github.com/xtxerr/telemetrygen/internal/errors"
	"github.com/xtxerr/telemetrygen/internal/storage/types"
)

// Queue is a bounded FIFO of sealed batches between one producer and one
// consumer. Push blocks while the queue is full.
type Queue struct {
	ch        chan *types.Batch
	closeOnce sync.Once
	closed    atomic.Bool

	// Statistics
	pushCount    atomic.Int64
	popCount     atomic.Int64
	blockedCount atomic.Int64
	highWater    atomic.Int64
}

// NewQueue creates a queue holding at most capacity batches.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan *types.Batch, capacity)}
}

// Push enqueues a sealed batch, blocking while the queue is full. It
// returns ErrQueueAborted if abort is closed first, which the producer
// uses when the consumer has stopped. Push never drops a batch.
func (q *Queue) Push(b *types.Batch, abort <-chan struct{}) error {
	if q.closed.Load() {
		return errors.ErrQueueClosed
	}

	select {
	case q.ch <- b:
	default:
		q.blockedCount.Add(1)
		select {
		case q.ch <- b:
		case <-abort:
			return errors.ErrQueueAborted
		}
	}

	q.pushCount.Add(1)
	if n := int64(len(q.ch)); n > q.highWater.Load() {
		q.highWater.Store(n)
	}
	return nil
}

// Pop returns the next batch, blocking until one is available. ok is false
// once the queue is closed and drained.
func (q *Queue) Pop() (*types.Batch, bool) {
	b, ok := <-q.ch
	if ok {
		q.popCount.Add(1)
	}
	return b, ok
}

// Close marks the end of the stream. Only the producer may call it.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		q.closed.Store(true)
		close(q.ch)
	})
}

// Len returns the number of queued batches.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the capacity of the queue.
func (q *Queue) Cap() int {
	return cap(q.ch)
}

// UsageRatio returns the current usage as a ratio (0.0 - 1.0).
func (q *Queue) UsageRatio() float64 {
	return float64(len(q.ch)) / float64(cap(q.ch))
}

// Stats returns queue statistics.
func (q *Queue) Stats() QueueStats {
	return QueueStats{
		Capacity:     cap(q.ch),
		Count:        len(q.ch),
		UsageRatio:   q.UsageRatio(),
		PushCount:    q.pushCount.Load(),
		PopCount:     q.popCount.Load(),
		BlockedCount: q.blockedCount.Load(),
		HighWater:    int(q.highWater.Load()),
	}
}

// QueueStats holds queue statistics.
type QueueStats struct {
	Capacity     int
	Count        int
	UsageRatio   float64
	PushCount    int64
	PopCount     int64
	BlockedCount int64 // Pushes that had to wait for the consumer
	HighWater    int
}
