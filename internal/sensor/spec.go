package sensor

import (
	"fmt"

	"github.com/xtxerr/telemetrygen/internal/errors"
	"github.com/xtxerr/telemetrygen/internal/validation"
)

// Spec describes one sensor of a run. It is immutable once the run starts.
type Spec struct {
	ID        string // Unique, stable for the run
	Type      string // Categorical tag (e.g., "engine_pressure", "one_hertz")
	Rate      Rate
	Width     int // Number of vector components; 0 or 1 is a scalar
	Unit      string
	Generator Generator

	// Partition pins the sensor to an output partition. Empty means the
	// partition is derived from the rate.
	Partition string
}

// Components returns the number of values per sample.
func (s Spec) Components() int {
	if s.Width < 1 {
		return 1
	}
	return s.Width
}

// IsVector reports whether the sensor produces vector samples.
func (s Spec) IsVector() bool {
	return s.Components() > 1
}

// Validate checks the spec. All failures are configuration errors.
func (s Spec) Validate() error {
	v := errors.NewValidationErrors()
	field := func(name string) string {
		return fmt.Sprintf("sensors[%s].%s", s.ID, name)
	}

	if err := validation.ValidateSensorID(s.ID); err != nil {
		v.AddField(field("id"), err.Error())
	}
	if err := validation.ValidateSensorType(s.Type); err != nil {
		v.AddField(field("type"), err.Error())
	}
	if s.Rate.IsZero() {
		v.AddField(field("rate"), "must be positive")
	}
	if s.Width < 0 {
		v.AddFieldf(field("width"), "must be >= 1, got %d", s.Width)
	}
	if s.Partition != "" {
		if err := validation.ValidateName(s.Partition, validation.DefaultNameRules()); err != nil {
			v.AddField(field("partition"), err.Error())
		}
	}
	if err := s.Generator.Validate(s.Components()); err != nil {
		v.AddField(field("generator"), err.Error())
	}
	return v.Err()
}
