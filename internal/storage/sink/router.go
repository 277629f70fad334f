package sink

import (
	"sort"

	"github.com/xtxerr/telemetrygen/internal/sensor"
)

// Frequency-class partition names.
const (
	PartitionLow  = "low"
	PartitionHigh = "high"
)

// Rules configures partition routing.
type Rules struct {
	// ByRate splits sensors without an explicit partition into low and
	// high frequency classes.
	ByRate bool

	// Threshold is the lowest rate classed as high frequency.
	Threshold sensor.Rate
}

// Router assigns every sensor to a partition.
type Router struct {
	rules      Rules
	assigned   map[string]string
	partitions []string
}

// NewRouter decides the partition of each spec.
func NewRouter(specs []sensor.Spec, rules Rules) *Router {
	r := &Router{
		rules:    rules,
		assigned: make(map[string]string, len(specs)),
	}

	seen := make(map[string]bool)
	for _, spec := range specs {
		p := r.classify(spec)
		r.assigned[spec.ID] = p
		if !seen[p] {
			seen[p] = true
			r.partitions = append(r.partitions, p)
		}
	}
	sort.Strings(r.partitions)
	return r
}

func (r *Router) classify(spec sensor.Spec) string {
	if spec.Partition != "" {
		return spec.Partition
	}
	if !r.rules.ByRate {
		return ""
	}
	if spec.Rate.Cmp(r.rules.Threshold) < 0 {
		return PartitionLow
	}
	return PartitionHigh
}

// Route returns the partition of spec. Specs unknown to the router are
// classified on the fly.
func (r *Router) Route(spec sensor.Spec) string {
	if p, ok := r.assigned[spec.ID]; ok {
		return p
	}
	return r.classify(spec)
}

// Partitions returns the distinct partitions in sorted order.
func (r *Router) Partitions() []string {
	out := make([]string, len(r.partitions))
	copy(out, r.partitions)
	return out
}
