package aggregate

import (
	"math"
	"sync"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/xtxerr/telemetrygen/config"
	"github.com/xtxerr/telemetrygen/internal/storage/types"
)

// StreamingAggregate maintains running statistics for a single sensor.
// It supports optional percentile calculation using DDSketch.
type StreamingAggregate struct {
	mu sync.Mutex

	// Identity
	sensorID   string
	sensorType string

	// Running statistics
	count   int64
	sum     float64
	min     float64
	max     float64
	firstTs int64
	lastTs  int64

	// DDSketch for percentiles (nil if disabled)
	sketch   *ddsketch.DDSketch
	accuracy float64
}

// New creates a new StreamingAggregate for a sensor.
func New(sensorID, sensorType string, enablePercentile bool) *StreamingAggregate {
	if enablePercentile {
		return NewWithAccuracy(sensorID, sensorType, config.DefaultSketchAccuracy)
	}
	agg := &StreamingAggregate{sensorID: sensorID, sensorType: sensorType}
	agg.clear()
	return agg
}

// NewWithAccuracy creates a new StreamingAggregate with custom percentile accuracy.
func NewWithAccuracy(sensorID, sensorType string, accuracy float64) *StreamingAggregate {
	agg := &StreamingAggregate{
		sensorID:   sensorID,
		sensorType: sensorType,
		accuracy:   accuracy,
	}
	agg.clear()

	sketch, err := ddsketch.NewDefaultDDSketch(accuracy)
	if err == nil {
		agg.sketch = sketch
	}
	return agg
}

func (a *StreamingAggregate) clear() {
	a.count = 0
	a.sum = 0
	a.min = math.MaxFloat64
	a.max = -math.MaxFloat64
	a.firstTs = 0
	a.lastTs = 0
}

// Add adds a value observed at ts (ns since launch).
func (a *StreamingAggregate) Add(value float64, ts int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.count == 0 || ts < a.firstTs {
		a.firstTs = ts
	}
	if a.count == 0 || ts > a.lastTs {
		a.lastTs = ts
	}

	a.count++
	a.sum += value

	if value < a.min {
		a.min = value
	}
	if value > a.max {
		a.max = value
	}

	if a.sketch != nil {
		a.sketch.Add(value)
	}
}

// AddRecord adds a record's value. Vector records contribute their norm.
func (a *StreamingAggregate) AddRecord(r *types.Record) {
	if !r.Finite() {
		return
	}
	a.Add(r.Value, r.Timestamp)
}

// Count returns the number of values added.
func (a *StreamingAggregate) Count() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// IsEmpty returns true if no values have been added.
func (a *StreamingAggregate) IsEmpty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count == 0
}

// Result returns the sensor statistics.
func (a *StreamingAggregate) Result() types.SensorStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := types.SensorStats{
		SensorID:   a.sensorID,
		SensorType: a.sensorType,
		Count:      a.count,
		Sum:        a.sum,
		FirstTs:    a.firstTs,
		LastTs:     a.lastTs,
	}

	if a.count > 0 {
		result.Mean = a.sum / float64(a.count)
		result.Min = a.min
		result.Max = a.max
	}

	if a.sketch != nil && a.count > 0 {
		qs, err := a.sketch.GetValuesAtQuantiles([]float64{0.50, 0.90, 0.99})
		if err == nil {
			result.SetPercentiles(qs[0], qs[1], qs[2])
		}
	}

	return result
}

// Reset clears all statistics.
func (a *StreamingAggregate) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.clear()
	if a.sketch != nil {
		a.sketch.Clear()
	}
}

// Merge combines another aggregate of the same sensor into this one.
func (a *StreamingAggregate) Merge(other *StreamingAggregate) {
	if other == nil || other == a {
		return
	}

	a.mu.Lock()
	other.mu.Lock()
	defer a.mu.Unlock()
	defer other.mu.Unlock()

	if other.count == 0 {
		return
	}

	if a.count == 0 || other.firstTs < a.firstTs {
		a.firstTs = other.firstTs
	}
	if a.count == 0 || other.lastTs > a.lastTs {
		a.lastTs = other.lastTs
	}

	a.count += other.count
	a.sum += other.sum

	if other.min < a.min {
		a.min = other.min
	}
	if other.max > a.max {
		a.max = other.max
	}

	if a.sketch != nil && other.sketch != nil {
		a.sketch.MergeWith(other.sketch)
	}
}

// SensorID returns the sensor this aggregate belongs to.
func (a *StreamingAggregate) SensorID() string {
	return a.sensorID
}
