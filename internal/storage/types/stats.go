package types

// SensorStats holds summary statistics for one sensor over a run.
type SensorStats struct {
	// Identity
	SensorID   string
	SensorType string

	// Basic statistics (always present)
	Count int64
	Sum   float64
	Min   float64
	Max   float64
	Mean  float64

	// Percentiles (nil if the sketch was empty)
	P50 *float64
	P90 *float64
	P99 *float64

	// Timestamps of first and last sample, ns since launch
	FirstTs int64
	LastTs  int64
}

// IsEmpty returns true if no samples were aggregated.
func (s *SensorStats) IsEmpty() bool {
	return s.Count == 0
}

// HasPercentiles returns true if percentile data is available.
func (s *SensorStats) HasPercentiles() bool {
	return s.P50 != nil
}

// SetPercentiles sets all percentile values.
func (s *SensorStats) SetPercentiles(p50, p90, p99 float64) {
	s.P50 = &p50
	s.P90 = &p90
	s.P99 = &p99
}
