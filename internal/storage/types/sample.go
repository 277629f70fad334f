package types

import (
	"math"
	"time"
)

// Sample represents a single reading from a sensor source.
// Timestamps are nanoseconds since launch, so a run is reproducible
// independent of wall-clock time.
type Sample struct {
	// Identity
	SensorID string // Unique sensor identifier (e.g., "thrust_n")

	// Position in the sensor's own sequence
	Index int64 // 0-based sample index

	// Timestamp
	Timestamp int64 // Nanoseconds since launch

	// Value holds the scalar reading. For vector sensors it is the
	// Euclidean norm of Vector.
	Value float64

	// Vector holds the components of a vector sensor; nil for scalars.
	Vector []float64
}

// Offset returns the timestamp as a duration since launch.
func (s *Sample) Offset() time.Duration {
	return time.Duration(s.Timestamp)
}

// Time returns the absolute time of the sample for a given launch time.
func (s *Sample) Time(launch time.Time) time.Time {
	return launch.Add(time.Duration(s.Timestamp))
}

// IsVector reports whether the sample carries vector components.
func (s *Sample) IsVector() bool {
	return len(s.Vector) > 0
}

// Finite reports whether the value and all vector components are finite.
func (s *Sample) Finite() bool {
	if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
		return false
	}
	for _, v := range s.Vector {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Record is a sample positioned in the merged stream. It carries the
// sensor attributes the writer needs so batches are self-describing.
type Record struct {
	Sample

	SensorType string // Sensor category (e.g., "engine_pressure")
	Ordinal    int    // Rank of the sensor ID; breaks timestamp ties
	Partition  string // Output partition chosen for the sensor
}

// Before reports whether r sorts before o in the merged stream.
func (r *Record) Before(o *Record) bool {
	if r.Timestamp != o.Timestamp {
		return r.Timestamp < o.Timestamp
	}
	return r.Ordinal < o.Ordinal
}
