// Package merge interleaves the per-sensor sample streams of a registry
// into one globally time-ordered record stream.
//
// The Scheduler is the single serialization point of a run. Value
// generation may be spread over goroutines with a PrefetchGroup, but the
// order of records is decided here alone.
package merge

import (
	"context"
	"fmt"

	"github.com/xtxerr/telemetrygen/internal/errors"
	"github.com/xtxerr/telemetrygen/internal/logging"
	"github.com/xtxerr/telemetrygen/internal/registry"
	"github.com/xtxerr/telemetrygen/internal/storage/types"
)

var log = logging.Component("merge")

// Stats holds merge counters.
type Stats struct {
	Total     int64
	PerSensor map[string]int64
	LastTs    int64
}

// Scheduler is a k-way merge over a registry. Not safe for concurrent use.
type Scheduler struct {
	reg *registry.Registry

	ids     []string
	emitted []int64
	total   int64

	last    types.Record
	started bool
	done    bool
}

// New creates a scheduler over reg.
func New(reg *registry.Registry) *Scheduler {
	specs := reg.Specs()
	ids := make([]string, len(specs))
	for i, s := range specs {
		ids[i] = s.ID
	}
	return &Scheduler{
		reg:     reg,
		ids:     ids,
		emitted: make([]int64, len(specs)),
	}
}

// Next returns the next record in global order, or ok=false once every
// source is exhausted. Cancellation is checked before each record and
// reported as errors.ErrInterrupted.
func (s *Scheduler) Next(ctx context.Context) (types.Record, bool, error) {
	if s.done {
		return types.Record{}, false, nil
	}
	if err := ctx.Err(); err != nil {
		return types.Record{}, false, fmt.Errorf("%w: %w", errors.ErrInterrupted, err)
	}

	rec, ok, err := s.reg.Advance()
	if err != nil {
		return types.Record{}, false, err
	}
	if !ok {
		s.done = true
		log.Debug("merge complete", "records", s.total)
		return types.Record{}, false, nil
	}

	if s.started && rec.Before(&s.last) {
		return types.Record{}, false, fmt.Errorf("%w: %s@%d after %s@%d",
			errors.ErrOrderViolation, rec.SensorID, rec.Timestamp, s.last.SensorID, s.last.Timestamp)
	}
	s.last = rec
	s.started = true
	s.emitted[rec.Ordinal]++
	s.total++

	return rec, true, nil
}

// Stats returns a snapshot of the merge counters.
func (s *Scheduler) Stats() Stats {
	per := make(map[string]int64, len(s.ids))
	for i, id := range s.ids {
		per[id] = s.emitted[i]
	}
	return Stats{
		Total:     s.total,
		PerSensor: per,
		LastTs:    s.last.Timestamp,
	}
}
