package buffer

import (
	"sync"
	"testing"
	"time"

	"github.com/xtxerr/telemetrygen/internal/errors"
	"github.com/xtxerr/telemetrygen/internal/storage/types"
)

func record(i int) types.Record {
	return types.Record{Sample: types.Sample{SensorID: "s", Index: int64(i), Timestamp: int64(i) * 1000}}
}

func TestBatcher_Cadence(t *testing.T) {
	const size = 100
	const total = 10_050

	b := NewBatcher("high", size)
	var sealed []*types.Batch
	for i := 0; i < total; i++ {
		if out := b.Add(record(i)); out != nil {
			sealed = append(sealed, out)
			// Hand-off happens exactly at every size-th record.
			if (i+1)%size != 0 {
				t.Fatalf("batch sealed at record %d", i+1)
			}
		}
		if b.Pending() > size {
			t.Fatalf("pending %d exceeds size %d", b.Pending(), size)
		}
	}

	if len(sealed) != total/size {
		t.Errorf("expected %d full batches, got %d", total/size, len(sealed))
	}
	if b.Pending() != 50 {
		t.Errorf("expected 50 pending, got %d", b.Pending())
	}

	tail := b.Flush()
	if tail == nil || tail.Len() != 50 || !tail.Sealed() {
		t.Fatalf("unexpected tail batch %+v", tail)
	}
	if b.Flush() != nil {
		t.Error("second flush should return nil")
	}

	for i, batch := range append(sealed, tail) {
		if batch.Seq != int64(i) {
			t.Errorf("batch %d has seq %d", i, batch.Seq)
		}
		if batch.Partition != "high" {
			t.Errorf("batch %d has partition %q", i, batch.Partition)
		}
	}

	stats := b.Stats()
	if stats.Records != total || stats.Sealed != int64(len(sealed)+1) {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.Peak != size {
		t.Errorf("expected peak=%d, got %d", size, stats.Peak)
	}
}

func TestBatcher_SealedBatchIsImmutable(t *testing.T) {
	b := NewBatcher("", 2)
	b.Add(record(0))
	out := b.Add(record(1))
	if out == nil {
		t.Fatal("expected sealed batch")
	}
	if err := out.Add(record(2)); !errors.Is(err, errors.ErrBatchSealed) {
		t.Errorf("expected ErrBatchSealed, got %v", err)
	}

	// The next record starts a fresh batch.
	b.Add(record(2))
	if out.Len() != 2 || b.Pending() != 1 {
		t.Errorf("sealed batch changed: len=%d pending=%d", out.Len(), b.Pending())
	}
}

func TestBatcher_EmptyFlush(t *testing.T) {
	b := NewBatcher("low", 10)
	if b.Flush() != nil {
		t.Error("flush of empty batcher should return nil")
	}
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue(3)
	for i := 0; i < 3; i++ {
		if err := q.Push(types.NewBatch("", int64(i), 0), nil); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if q.Len() != 3 || q.UsageRatio() != 1.0 {
		t.Errorf("expected full queue, len=%d", q.Len())
	}
	q.Close()

	for i := 0; i < 3; i++ {
		b, ok := q.Pop()
		if !ok || b.Seq != int64(i) {
			t.Fatalf("pop %d: got %v %v", i, b, ok)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("pop after drain should report closed")
	}
	if err := q.Push(types.NewBatch("", 9, 0), nil); !errors.Is(err, errors.ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed, got %v", err)
	}

	stats := q.Stats()
	if stats.PushCount != 3 || stats.PopCount != 3 || stats.HighWater != 3 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestQueue_BlocksWhenFull(t *testing.T) {
	q := NewQueue(1)
	if err := q.Push(types.NewBatch("", 0, 0), nil); err != nil {
		t.Fatal(err)
	}

	pushed := make(chan error, 1)
	go func() {
		pushed <- q.Push(types.NewBatch("", 1, 0), nil)
	}()

	select {
	case err := <-pushed:
		t.Fatalf("push into full queue returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	if b, _ := q.Pop(); b.Seq != 0 {
		t.Fatalf("expected seq 0, got %d", b.Seq)
	}
	if err := <-pushed; err != nil {
		t.Fatalf("blocked push failed: %v", err)
	}
	if b, _ := q.Pop(); b.Seq != 1 {
		t.Fatalf("expected seq 1, got %d", b.Seq)
	}
	if q.Stats().BlockedCount != 1 {
		t.Errorf("expected one blocked push, got %d", q.Stats().BlockedCount)
	}
}

func TestQueue_AbortUnblocksProducer(t *testing.T) {
	q := NewQueue(1)
	q.Push(types.NewBatch("", 0, 0), nil)

	abort := make(chan struct{})
	close(abort)
	if err := q.Push(types.NewBatch("", 1, 0), abort); !errors.Is(err, errors.ErrQueueAborted) {
		t.Errorf("expected ErrQueueAborted, got %v", err)
	}
}

func TestQueue_Concurrent(t *testing.T) {
	q := NewQueue(2)
	const n = 1000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			if err := q.Push(types.NewBatch("", int64(i), 0), nil); err != nil {
				t.Errorf("push %d: %v", i, err)
				return
			}
		}
		q.Close()
	}()

	var next int64
	for {
		b, ok := q.Pop()
		if !ok {
			break
		}
		if b.Seq != next {
			t.Fatalf("out of order: got %d, want %d", b.Seq, next)
		}
		next++
	}
	wg.Wait()

	if next != n {
		t.Errorf("expected %d batches, got %d", n, next)
	}
	if hw := q.Stats().HighWater; hw > q.Cap() {
		t.Errorf("high water %d above capacity %d", hw, q.Cap())
	}
}
