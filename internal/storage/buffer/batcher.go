package buffer

import (
	"github.com/xtxerr/telemetrygen/internal/storage/types"
)

// Batcher accumulates records for one partition into sealed batches of at
// most size records. It is owned by the generation stage and is not safe
// for concurrent use.
type Batcher struct {
	partition string
	size      int
	cur       *types.Batch
	seq       int64

	// Statistics
	sealed  int64
	records int64
	peak    int
}

// NewBatcher creates a batcher that seals every size records.
func NewBatcher(partition string, size int) *Batcher {
	if size <= 0 {
		size = 1
	}
	return &Batcher{partition: partition, size: size}
}

// Add appends a record. It returns the sealed batch when the record fills
// it, otherwise nil.
func (b *Batcher) Add(rec types.Record) *types.Batch {
	if b.cur == nil {
		b.cur = types.NewBatch(b.partition, b.seq, b.size)
	}
	b.cur.Records = append(b.cur.Records, rec)
	b.records++
	if n := b.cur.Len(); n > b.peak {
		b.peak = n
	}

	if b.cur.Len() < b.size {
		return nil
	}
	return b.seal()
}

// Flush seals and returns the partial trailing batch, or nil if there is
// nothing pending.
func (b *Batcher) Flush() *types.Batch {
	if b.cur == nil || b.cur.Len() == 0 {
		return nil
	}
	return b.seal()
}

func (b *Batcher) seal() *types.Batch {
	out := b.cur
	out.Seal()
	b.cur = nil
	b.seq++
	b.sealed++
	return out
}

// Pending returns the number of records in the open batch.
func (b *Batcher) Pending() int {
	if b.cur == nil {
		return 0
	}
	return b.cur.Len()
}

// Partition returns the partition the batcher serves.
func (b *Batcher) Partition() string {
	return b.partition
}

// Stats returns batcher statistics.
func (b *Batcher) Stats() BatcherStats {
	return BatcherStats{
		Partition: b.partition,
		Size:      b.size,
		Sealed:    b.sealed,
		Records:   b.records,
		Pending:   b.Pending(),
		Peak:      b.peak,
	}
}

// BatcherStats holds batcher statistics.
type BatcherStats struct {
	Partition string
	Size      int
	Sealed    int64
	Records   int64
	Pending   int
	Peak      int // Largest resident record count; never above Size
}
