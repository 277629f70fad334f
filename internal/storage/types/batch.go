package types

import "github.com/xtxerr/telemetrygen/internal/errors"

// Batch is an ordered run of records destined for one partition.
// A sealed batch is immutable and becomes exactly one row group.
type Batch struct {
	Partition string
	Seq       int64 // Sequence number within the partition, starting at 0
	Records   []Record

	sealed bool
}

// NewBatch creates a new batch with the given capacity.
func NewBatch(partition string, seq int64, capacity int) *Batch {
	return &Batch{
		Partition: partition,
		Seq:       seq,
		Records:   make([]Record, 0, capacity),
	}
}

// Add appends a record to the batch.
func (b *Batch) Add(r Record) error {
	if b.sealed {
		return errors.ErrBatchSealed
	}
	b.Records = append(b.Records, r)
	return nil
}

// Seal marks the batch immutable.
func (b *Batch) Seal() {
	b.sealed = true
}

// Sealed reports whether the batch has been sealed.
func (b *Batch) Sealed() bool {
	return b.sealed
}

// Len returns the number of records in the batch.
func (b *Batch) Len() int {
	return len(b.Records)
}

// MinTimestamp returns the first record's timestamp, or 0 if empty.
func (b *Batch) MinTimestamp() int64 {
	if len(b.Records) == 0 {
		return 0
	}
	return b.Records[0].Timestamp
}

// MaxTimestamp returns the last record's timestamp, or 0 if empty.
func (b *Batch) MaxTimestamp() int64 {
	if len(b.Records) == 0 {
		return 0
	}
	return b.Records[len(b.Records)-1].Timestamp
}
