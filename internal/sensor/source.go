package sensor

import (
	"math"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/xtxerr/telemetrygen/internal/errors"
	"github.com/xtxerr/telemetrygen/internal/storage/types"
)

// Seed derives the generator seed of a sensor from the run seed. It depends
// only on the sensor ID, so adding or reordering sensors never changes the
// values of the others.
func Seed(sensorID string, runSeed uint64) uint64 {
	return xxhash.Sum64String(sensorID) ^ runSeed
}

// Source produces the samples of one sensor for one run. Next is O(1).
// A Source is not safe for concurrent use.
type Source struct {
	spec  Spec
	count int64
	seed  uint64
	dt    float64

	next  int64
	comps []*component
	buf   []float64
}

// NewSource creates a source that yields ceil(duration * rate) samples.
func NewSource(spec Spec, duration time.Duration, runSeed uint64) (*Source, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	count, err := spec.Rate.Count(duration)
	if err != nil {
		return nil, errors.Wrapf(err, "sensor %s", spec.ID)
	}

	s := &Source{
		spec:  spec,
		count: count,
		seed:  Seed(spec.ID, runSeed),
		dt:    1 / spec.Rate.Float(),
		comps: make([]*component, spec.Components()),
		buf:   make([]float64, spec.Components()),
	}
	for i := range s.comps {
		s.comps[i] = newComponent(spec.Generator, s.seed, i)
	}
	return s, nil
}

// Spec returns the sensor spec.
func (s *Source) Spec() Spec { return s.spec }

// Count returns the total number of samples the source yields.
func (s *Source) Count() int64 { return s.count }

// Remaining returns the number of samples not yet produced.
func (s *Source) Remaining() int64 { return s.count - s.next }

// Next returns the next sample, or ok=false once the source is exhausted.
// A non-finite value fails with a *errors.GenerationError.
func (s *Source) Next() (types.Sample, bool, error) {
	if s.next >= s.count {
		return types.Sample{}, false, nil
	}
	i := s.next

	ts := s.spec.Rate.Offset(i)
	t := float64(ts) / float64(time.Second)
	progress := float64(i) / float64(s.count)

	sample := types.Sample{
		SensorID:  s.spec.ID,
		Index:     i,
		Timestamp: ts,
	}

	if len(s.comps) == 1 {
		sample.Value = s.comps[0].valueAt(s.spec.Generator, t, progress, s.dt)
	} else {
		var sumSq float64
		for k, c := range s.comps {
			v := c.valueAt(s.spec.Generator, t, progress, s.dt)
			s.buf[k] = v
			sumSq += v * v
		}
		sample.Vector = append([]float64(nil), s.buf...)
		sample.Value = math.Sqrt(sumSq)
	}

	if !sample.Finite() {
		return types.Sample{}, false, &errors.GenerationError{
			SensorID: s.spec.ID,
			Index:    i,
			Value:    sample.Value,
			Reason:   "non-finite value",
		}
	}

	s.next++
	return sample, true, nil
}

// Reset rewinds the source. The replayed sequence is identical.
func (s *Source) Reset() {
	s.next = 0
	for i, c := range s.comps {
		c.reset(s.spec.Generator, s.seed, i)
	}
}
