package pipeline

import (
	"path/filepath"
	"time"

	"github.com/xtxerr/telemetrygen/config"
	"github.com/xtxerr/telemetrygen/internal/errors"
	"github.com/xtxerr/telemetrygen/internal/sensor"
	"github.com/xtxerr/telemetrygen/internal/storage/backpressure"
	"github.com/xtxerr/telemetrygen/internal/storage/parquet"
	"github.com/xtxerr/telemetrygen/internal/storage/sink"
	"github.com/xtxerr/telemetrygen/internal/validation"
)

// RunConfig is the complete, validated description of a run. Sample
// counts are derived from it alone.
type RunConfig struct {
	// RunID identifies the run. Empty generates a UUID.
	RunID string

	LaunchID string

	// LaunchTime anchors relative timestamps. Zero uses the wall clock.
	LaunchTime time.Time

	Seed     uint64
	Duration time.Duration
	Sensors  []sensor.Spec

	Output       OutputConfig
	Pipeline     PipelineConfig
	Backpressure backpressure.Config

	// MetricsTextfile, if set, receives the run metrics in the Prometheus
	// text format.
	MetricsTextfile string

	// Progress enables progress reporting.
	Progress bool
}

// OutputConfig describes where records are written.
type OutputConfig struct {
	Dir string

	// Name is the file base name. Partitioned runs append "_<partition>".
	Name string

	Rules   sink.Rules
	Parquet parquet.Options

	// Manifest writes <Name>.manifest.json next to the data files.
	Manifest bool
}

// PipelineConfig tunes the stages.
type PipelineConfig struct {
	QueueDepth     int
	Prefetch       bool
	PrefetchChunk  int
	MaxRecords     int64 // 0 means no limit
	SketchAccuracy float64
}

// DefaultPipelineConfig returns the default stage settings.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		QueueDepth:     config.DefaultQueueDepth,
		Prefetch:       config.DefaultPrefetch,
		PrefetchChunk:  config.DefaultPrefetchChunk,
		SketchAccuracy: config.DefaultSketchAccuracy,
	}
}

// Path returns the data file path of a partition.
func (o OutputConfig) Path(partition string) string {
	name := o.Name
	if partition != "" {
		name += "_" + partition
	}
	return filepath.Join(o.Dir, name+".parquet")
}

// ManifestPath returns the manifest file path.
func (o OutputConfig) ManifestPath() string {
	return filepath.Join(o.Dir, o.Name+".manifest.json")
}

// Destinations returns one destination per partition.
func (o OutputConfig) Destinations(partitions []string) []sink.Destination {
	out := make([]sink.Destination, len(partitions))
	for i, p := range partitions {
		out[i] = sink.Destination{Partition: p, Path: o.Path(p)}
	}
	return out
}

// Validate checks the configuration. Every failure is a
// *errors.ConfigError; nothing is created before it passes.
func (c *RunConfig) Validate() error {
	v := errors.NewValidationErrors()

	if err := validation.ValidateLaunchID(c.LaunchID); err != nil {
		v.AddField("launch_id", err.Error())
	}
	if c.Duration <= 0 {
		v.AddFieldf("duration", "must be positive, got %s", c.Duration)
	}
	if len(c.Sensors) == 0 {
		v.AddField("sensors", "at least one sensor is required")
	}
	for _, s := range c.Sensors {
		v.Add(s.Validate())
	}

	if c.Output.Dir == "" {
		v.AddField("output.dir", "is required")
	} else if err := validation.ValidateOutputDir(c.Output.Dir); err != nil {
		v.AddField("output.dir", err.Error())
	}
	if c.Output.Name == "" {
		v.AddField("output.name", "is required")
	}
	if c.Output.Parquet.RowGroupSize <= 0 {
		v.AddFieldf("output.row_group_size", "must be positive, got %d", c.Output.Parquet.RowGroupSize)
	}
	if c.Output.Rules.ByRate && c.Output.Rules.Threshold.IsZero() {
		v.AddField("output.partition_threshold", "must be positive")
	}

	if c.Pipeline.QueueDepth <= 0 {
		v.AddFieldf("pipeline.queue_depth", "must be positive, got %d", c.Pipeline.QueueDepth)
	}
	if c.Pipeline.Prefetch && c.Pipeline.PrefetchChunk <= 0 {
		v.AddFieldf("pipeline.prefetch_chunk", "must be positive, got %d", c.Pipeline.PrefetchChunk)
	}
	if c.Pipeline.MaxRecords < 0 {
		v.AddFieldf("pipeline.max_records", "must not be negative, got %d", c.Pipeline.MaxRecords)
	}
	if a := c.Pipeline.SketchAccuracy; a < 0 || a >= 1 {
		v.AddFieldf("pipeline.sketch_accuracy", "must be in [0, 1), got %v", a)
	}

	if c.Backpressure.Enabled {
		t := c.Backpressure.Thresholds
		if !(0 < t.Warning && t.Warning < t.Critical && t.Critical <= t.Saturated && t.Saturated <= 1) {
			v.AddField("backpressure.thresholds", "must satisfy 0 < warning < critical <= saturated <= 1")
		}
		if c.Backpressure.Hysteresis < 0 || c.Backpressure.Hysteresis >= 0.5 {
			v.AddField("backpressure.hysteresis", "must be between 0 and 0.5")
		}
	}

	return v.Err()
}
