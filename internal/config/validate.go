package config

import (
	"fmt"

	"github.com/xtxerr/telemetrygen/internal/errors"
	"github.com/xtxerr/telemetrygen/internal/sensor"
	"github.com/xtxerr/telemetrygen/internal/storage/parquet"
	"github.com/xtxerr/telemetrygen/internal/validation"
)

// Validate checks the configuration for errors. Every reported error is a
// configuration error.
func (c *Config) Validate() error {
	var errs []error

	if err := validation.ValidateLaunchID(c.LaunchID); err != nil {
		errs = append(errs, errors.NewConfig("launch_id", err.Error()))
	}
	if c.Duration <= 0 {
		errs = append(errs, errors.NewConfigf("duration", "must be positive, got %s", c.Duration))
	}
	if _, err := sensor.ParseRate(c.Rate); err != nil {
		errs = append(errs, err)
	}

	// Sensors
	seen := make(map[string]bool, len(c.Sensors))
	for i := range c.Sensors {
		s := &c.Sensors[i]
		if seen[s.ID] {
			errs = append(errs, errors.NewConfigf(fmt.Sprintf("sensors[%d].id", i), "duplicate %q", s.ID))
		}
		seen[s.ID] = true
		if err := s.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("sensors[%d]: %w", i, err))
		}
	}

	// Output
	if err := c.Output.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("output: %w", err))
	}

	// Pipeline
	if err := c.Pipeline.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("pipeline: %w", err))
	}

	// Backpressure
	if err := c.Backpressure.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("backpressure: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks one sensor entry. The rate may be empty; the run rate
// applies then.
func (c *SensorConfig) Validate() error {
	var errs []error

	if err := validation.ValidateSensorID(c.ID); err != nil {
		errs = append(errs, errors.NewConfig("id", err.Error()))
	}
	if c.Type != "" {
		if err := validation.ValidateSensorType(c.Type); err != nil {
			errs = append(errs, errors.NewConfig("type", err.Error()))
		}
	}
	if c.Rate != "" {
		if _, err := sensor.ParseRate(c.Rate); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Width < 0 {
		errs = append(errs, errors.NewConfigf("width", "must be >= 1, got %d", c.Width))
	}
	gen, err := c.Generator.generator()
	if err != nil {
		errs = append(errs, err)
	} else if err := gen.Validate(max(c.Width, 1)); err != nil {
		errs = append(errs, errors.NewConfig("generator", err.Error()))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the output configuration.
func (c *OutputConfig) Validate() error {
	var errs []error

	if c.Dir == "" {
		errs = append(errs, errors.NewConfig("dir", "is required"))
	}
	if c.Prefix != "" {
		if err := validation.ValidateLaunchID(c.Prefix); err != nil {
			errs = append(errs, errors.NewConfig("prefix", err.Error()))
		}
	}
	if c.RowGroupSize <= 0 {
		errs = append(errs, errors.NewConfigf("row_group_size", "must be positive, got %d", c.RowGroupSize))
	}

	ct, ok := parquet.ParseCompressionType(c.Compression)
	if !ok {
		errs = append(errs, errors.NewConfig("compression", "must be one of: snappy, zstd, lz4, gzip, none"))
	}
	if ct == parquet.CompressionZstd && (c.CompressionLevel < 0 || c.CompressionLevel > 22) {
		errs = append(errs, errors.NewConfig("compression_level", "for zstd must be between 0 and 22"))
	}

	if c.PartitionByRate {
		if _, err := sensor.ParseRate(c.PartitionThreshold); err != nil {
			errs = append(errs, errors.NewConfig("partition_threshold", err.Error()))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the pipeline configuration.
func (c *PipelineConfig) Validate() error {
	var errs []error

	if c.QueueDepth <= 0 {
		errs = append(errs, errors.NewConfigf("queue_depth", "must be positive, got %d", c.QueueDepth))
	}
	if c.Prefetch && c.PrefetchChunk <= 0 {
		errs = append(errs, errors.NewConfigf("prefetch_chunk", "must be positive, got %d", c.PrefetchChunk))
	}
	if c.MaxRecords < 0 {
		errs = append(errs, errors.NewConfigf("max_records", "must not be negative, got %d", c.MaxRecords))
	}
	if c.SketchAccuracy < 0 || c.SketchAccuracy >= 1 {
		errs = append(errs, errors.NewConfigf("sketch_accuracy", "must be in [0, 1), got %v", c.SketchAccuracy))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the backpressure configuration.
func (c *BackpressureConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	var errs []error

	// Thresholds must be in order
	if c.Thresholds.Warning <= 0 || c.Thresholds.Warning >= 1 {
		errs = append(errs, errors.NewConfig("thresholds.warning", "must be between 0 and 1"))
	}
	if c.Thresholds.Critical <= 0 || c.Thresholds.Critical > 1 {
		errs = append(errs, errors.NewConfig("thresholds.critical", "must be between 0 and 1"))
	}
	if c.Thresholds.Saturated <= 0 || c.Thresholds.Saturated > 1 {
		errs = append(errs, errors.NewConfig("thresholds.saturated", "must be between 0 and 1"))
	}

	if c.Thresholds.Warning >= c.Thresholds.Critical {
		errs = append(errs, errors.NewConfig("thresholds.warning", "must be < thresholds.critical"))
	}
	if c.Thresholds.Critical > c.Thresholds.Saturated {
		errs = append(errs, errors.NewConfig("thresholds.critical", "must be <= thresholds.saturated"))
	}

	// Recovery
	if c.Recovery.Hysteresis < 0 || c.Recovery.Hysteresis >= 0.5 {
		errs = append(errs, errors.NewConfig("recovery.hysteresis", "must be between 0 and 0.5"))
	}
	if c.Recovery.Cooldown < 0 {
		errs = append(errs, errors.NewConfig("recovery.cooldown", "must not be negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// CheckOutputDir reports whether files can be created in dir. A missing
// dir is checked through its nearest existing ancestor.
func CheckOutputDir(dir string) error {
	if err := validation.ValidateOutputDir(dir); err != nil {
		return errors.NewConfig("output.dir", err.Error())
	}
	return nil
}
