// Package config provides configuration defaults for telemetrygen.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via a YAML run file or CLI flags.
package config

import "time"

// =============================================================================
// Run Defaults
// =============================================================================

const (
	// DefaultLaunchID names the simulated launch. It also prefixes output files.
	// Override via config: launch_id, flag: --launch-id
	DefaultLaunchID = "SIM-001"

	// DefaultSeed seeds every sensor source. Identical seed and configuration
	// produce byte-identical output.
	// Override via config: seed, flag: --seed
	DefaultSeed = 1337

	// DefaultDuration is the simulated flight duration.
	// Override via config: duration, flag: --duration (seconds)
	DefaultDuration = 120 * time.Second

	// DefaultRate is the sample rate applied to catalog sensors (1 kHz).
	// Override via config: rate, flag: --khz
	DefaultRate = "1kHz"

	// DefaultReferenceRate is the rate of the reference sensor stream.
	DefaultReferenceRate = "1Hz"

	// MaxRateHz bounds any sensor rate so that successive timestamps stay
	// strictly increasing at nanosecond resolution.
	MaxRateHz = 1_000_000_000
)

// =============================================================================
// Output Defaults
// =============================================================================

const (
	// DefaultOutputDir is where Parquet files are written.
	// Override via config: output.dir, flag: --output
	DefaultOutputDir = "output"

	// DefaultRowGroupSize is the number of records per sealed batch and
	// per Parquet row group. Peak buffered records per partition never
	// exceed this value.
	// Override via config: output.row_group_size, flag: --row-group-size
	DefaultRowGroupSize = 100_000

	// DefaultCompression is the Parquet compression codec.
	// Override via config: output.compression
	DefaultCompression = "zstd"

	// DefaultCompressionLevel is the zstd level.
	// Override via config: output.compression_level
	DefaultCompressionLevel = 3

	// DefaultPartitionThreshold splits sensors into "low" and "high"
	// frequency partitions when partitioning by rate is enabled.
	// Override via config: output.partition_threshold
	DefaultPartitionThreshold = "10Hz"

	// PartialSuffix marks files that have not been finalized yet.
	PartialSuffix = ".partial"
)

// =============================================================================
// Pipeline Defaults
// =============================================================================

const (
	// DefaultQueueDepth is the number of sealed batches that may wait for
	// the writer. When full, generation blocks (backpressure).
	// Override via config: pipeline.queue_depth
	DefaultQueueDepth = 4

	// DefaultPrefetch runs value generation on one goroutine per sensor,
	// ahead of the single-threaded merge.
	// Override via config: pipeline.prefetch, flag: --prefetch
	DefaultPrefetch = false

	// DefaultPrefetchChunk is the number of samples a generation goroutine
	// produces ahead of the merge for one sensor.
	// Override via config: pipeline.prefetch_chunk
	DefaultPrefetchChunk = 4096

	// DefaultProgressInterval is how often progress is reported.
	DefaultProgressInterval = 500 * time.Millisecond
)

// =============================================================================
// Backpressure Defaults
// =============================================================================

const (
	// DefaultBackpressureWarning is the queue usage that raises a warning.
	DefaultBackpressureWarning = 0.50

	// DefaultBackpressureCritical is the queue usage considered critical.
	DefaultBackpressureCritical = 0.75

	// DefaultBackpressureSaturated is the queue usage at which the producer
	// is blocked on every push.
	DefaultBackpressureSaturated = 1.0

	// DefaultBackpressureHysteresis prevents level flapping.
	DefaultBackpressureHysteresis = 0.10

	// DefaultBackpressureCooldown is the minimum time between level checks.
	DefaultBackpressureCooldown = 100 * time.Millisecond
)

// =============================================================================
// Statistics Defaults
// =============================================================================

const (
	// DefaultSketchAccuracy is the DDSketch relative accuracy for per-sensor
	// quantiles in the run summary.
	DefaultSketchAccuracy = 0.01
)
