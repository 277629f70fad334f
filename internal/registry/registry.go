// Package registry holds the active sensor sources of a run, each paired
// with exactly one pending sample.
//
// The pending samples live in a min-heap keyed by (timestamp, ordinal).
// Ordinals are assigned by ascending sensor ID, so on equal timestamps the
// lowest sensor ID advances first. Every operation is O(log S) for S
// sources.
package registry

import (
	"container/heap"
	"sort"

	"github.com/xtxerr/telemetrygen/internal/errors"
	"github.com/xtxerr/telemetrygen/internal/logging"
	"github.com/xtxerr/telemetrygen/internal/sensor"
	"github.com/xtxerr/telemetrygen/internal/storage/types"
)

var log = logging.Component("registry")

// Source produces the samples of one sensor in timestamp order.
type Source interface {
	Spec() sensor.Spec
	Next() (types.Sample, bool, error)
}

// Router picks the output partition of a sensor. It is called once per
// sensor when the registry is built.
type Router func(sensor.Spec) string

// =============================================================================
// Heap Implementation
// =============================================================================

// slot is a source and its one pending sample.
type slot struct {
	src       Source
	spec      sensor.Spec
	ordinal   int
	partition string
	pending   types.Sample
	index     int // Heap index
}

// lookaheadHeap implements heap.Interface for slots.
type lookaheadHeap []*slot

func (h lookaheadHeap) Len() int { return len(h) }

func (h lookaheadHeap) Less(i, j int) bool {
	if h[i].pending.Timestamp != h[j].pending.Timestamp {
		return h[i].pending.Timestamp < h[j].pending.Timestamp
	}
	return h[i].ordinal < h[j].ordinal
}

func (h lookaheadHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *lookaheadHeap) Push(x any) {
	item := x.(*slot)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *lookaheadHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // Avoid memory leak
	item.index = -1 // For safety
	*h = old[0 : n-1]
	return item
}

// =============================================================================
// Registry
// =============================================================================

// Registry is not safe for concurrent use; the merge scheduler is its only
// caller.
type Registry struct {
	heap  lookaheadHeap
	specs []sensor.Spec
	parts []string
	route Router

	// err is a refill failure, returned once the sample before it has
	// been emitted.
	err error
}

// Option configures a Registry.
type Option func(*Registry)

// WithRouter assigns partitions to sensors.
func WithRouter(route Router) Option {
	return func(r *Registry) { r.route = route }
}

// New builds a registry from sources. Duplicate sensor IDs are a
// configuration error. Each source is asked for its first sample here.
func New(sources []Source, opts ...Option) (*Registry, error) {
	r := &Registry{}
	for _, opt := range opts {
		opt(r)
	}

	sorted := make([]Source, len(sources))
	copy(sorted, sources)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Spec().ID < sorted[j].Spec().ID
	})

	verrs := errors.NewValidationErrors()
	for i := 1; i < len(sorted); i++ {
		if id := sorted[i].Spec().ID; id == sorted[i-1].Spec().ID {
			verrs.AddFieldf("sensors", "duplicate sensor id %q", id)
		}
	}
	if err := verrs.Err(); err != nil {
		return nil, err
	}

	r.heap = make(lookaheadHeap, 0, len(sorted))
	r.specs = make([]sensor.Spec, len(sorted))
	r.parts = make([]string, len(sorted))

	for ordinal, src := range sorted {
		spec := src.Spec()
		r.specs[ordinal] = spec
		if r.route != nil {
			r.parts[ordinal] = r.route(spec)
		}

		sample, ok, err := src.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			log.Debug("source empty at start", "sensor", spec.ID)
			continue
		}
		heap.Push(&r.heap, &slot{
			src:       src,
			spec:      spec,
			ordinal:   ordinal,
			partition: r.parts[ordinal],
			pending:   sample,
		})
	}

	log.Debug("registry built", "sources", len(sorted), "active", r.heap.Len())
	return r, nil
}

// Peek returns the earliest pending timestamp across all sources.
func (r *Registry) Peek() (int64, bool) {
	if len(r.heap) == 0 {
		return 0, false
	}
	return r.heap[0].pending.Timestamp, true
}

// Advance removes the earliest pending sample, refills its source and
// returns the sample as a record. ok is false once every source is
// exhausted. When the refill fails the sample is still returned; the
// error is reported by the next call and every call after it.
func (r *Registry) Advance() (types.Record, bool, error) {
	if r.err != nil {
		return types.Record{}, false, r.err
	}
	if len(r.heap) == 0 {
		return types.Record{}, false, nil
	}

	top := r.heap[0]
	rec := types.Record{
		Sample:     top.pending,
		SensorType: top.spec.Type,
		Ordinal:    top.ordinal,
		Partition:  top.partition,
	}

	next, ok, err := top.src.Next()
	switch {
	case err != nil:
		r.err = err
		heap.Pop(&r.heap)
		log.Debug("source failed", "sensor", top.spec.ID, "after", rec.Index, "error", err)
	case ok:
		top.pending = next
		heap.Fix(&r.heap, 0)
	default:
		heap.Pop(&r.heap)
		log.Debug("source exhausted", "sensor", top.spec.ID, "remaining", r.heap.Len())
	}
	return rec, true, nil
}

// Len returns the number of sources that still have samples.
func (r *Registry) Len() int {
	return len(r.heap)
}

// Specs returns the sensor specs in ordinal order.
func (r *Registry) Specs() []sensor.Spec {
	out := make([]sensor.Spec, len(r.specs))
	copy(out, r.specs)
	return out
}

// Partition returns the partition assigned to the sensor with the given
// ordinal.
func (r *Registry) Partition(ordinal int) string {
	return r.parts[ordinal]
}
