// Package config loads run files.
//
// A run file is YAML. Every field is optional; missing fields keep the
// defaults from the top-level config package. Build turns a loaded Config
// into a pipeline.RunConfig.
//
// Example:
//
//	launch_id: SIM-042
//	seed: 7
//	duration: 60s
//	rate: 2kHz
//	output:
//	  dir: data
//	  partition_by_rate: true
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	defaults "github.com/xtxerr/telemetrygen/config"
	"github.com/xtxerr/telemetrygen/internal/errors"
)

// Config is the complete run file.
type Config struct {
	// LaunchID names the simulated launch and prefixes output files.
	LaunchID string `yaml:"launch_id"`

	// Seed drives every sensor source.
	Seed uint64 `yaml:"seed"`

	// Duration is the simulated flight length.
	Duration time.Duration `yaml:"duration"`

	// Rate applies to catalog sensors and to listed sensors without a rate.
	// Format: "1000", "1kHz", "2.5 kHz", "1/3"
	Rate string `yaml:"rate"`

	// IncludeReference adds the 1 Hz reference sensor.
	IncludeReference bool `yaml:"include_reference"`

	// Sensors lists the sensors of the run. Empty means the catalog.
	Sensors []SensorConfig `yaml:"sensors"`

	// Output configures the data files.
	Output OutputConfig `yaml:"output"`

	// Pipeline tunes the generation and writer stages.
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Backpressure configures queue level reporting.
	Backpressure BackpressureConfig `yaml:"backpressure"`

	// MetricsTextfile receives run metrics in the Prometheus text format.
	MetricsTextfile string `yaml:"metrics_textfile"`

	// Progress enables the progress display.
	Progress bool `yaml:"progress"`
}

// SensorConfig describes one sensor.
type SensorConfig struct {
	ID        string          `yaml:"id"`
	Type      string          `yaml:"type"`
	Rate      string          `yaml:"rate"`
	Width     int             `yaml:"width"`
	Unit      string          `yaml:"unit"`
	Partition string          `yaml:"partition"`
	Generator GeneratorConfig `yaml:"generator"`
}

// GeneratorConfig selects and parameterizes a value generator. Only the
// fields of the selected kind are read.
type GeneratorConfig struct {
	// Kind is one of: sine, constant, random_walk, flight.
	Kind string `yaml:"kind"`

	Amplitude float64 `yaml:"amplitude"`
	Frequency float64 `yaml:"frequency"`
	Offset    float64 `yaml:"offset"`

	Level float64 `yaml:"level"`

	Start float64 `yaml:"start"`
	Step  float64 `yaml:"step"`
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`

	Channel string `yaml:"channel"`

	Noise float64   `yaml:"noise"`
	Gains []float64 `yaml:"gains"`
}

// OutputConfig configures the data files.
type OutputConfig struct {
	// Dir is the output directory. It is created if missing.
	Dir string `yaml:"dir"`

	// Prefix replaces the launch ID at the start of file names.
	Prefix string `yaml:"prefix"`

	// PartitionByRate splits sensors into "low" and "high" files.
	PartitionByRate bool `yaml:"partition_by_rate"`

	// PartitionThreshold is the lowest rate routed to "high".
	PartitionThreshold string `yaml:"partition_threshold"`

	// Compression is one of: snappy, zstd, lz4, gzip, none.
	Compression string `yaml:"compression"`

	// CompressionLevel is the zstd level (1-22).
	CompressionLevel int `yaml:"compression_level"`

	// RowGroupSize is the number of records per row group.
	RowGroupSize int `yaml:"row_group_size"`

	// Manifest writes a JSON manifest next to the data files.
	Manifest bool `yaml:"manifest"`
}

// PipelineConfig tunes the stages.
type PipelineConfig struct {
	// QueueDepth is the number of sealed batches waiting for the writer.
	QueueDepth int `yaml:"queue_depth"`

	// Prefetch generates values on one goroutine per sensor.
	Prefetch bool `yaml:"prefetch"`

	// PrefetchChunk is the number of samples generated ahead per sensor.
	PrefetchChunk int `yaml:"prefetch_chunk"`

	// MaxRecords ends the run early. 0 means no limit.
	MaxRecords int64 `yaml:"max_records"`

	// SketchAccuracy is the relative accuracy of summary quantiles.
	SketchAccuracy float64 `yaml:"sketch_accuracy"`
}

// BackpressureConfig configures queue level reporting.
type BackpressureConfig struct {
	// Enabled enables level tracking.
	Enabled bool `yaml:"enabled"`

	// Thresholds defines queue usage thresholds for level changes.
	Thresholds BackpressureThresholds `yaml:"thresholds"`

	// Recovery configures recovery behavior.
	Recovery BackpressureRecovery `yaml:"recovery"`
}

// BackpressureThresholds defines queue usage thresholds.
type BackpressureThresholds struct {
	// Warning threshold (0.0-1.0).
	Warning float64 `yaml:"warning"`

	// Critical threshold (0.0-1.0).
	Critical float64 `yaml:"critical"`

	// Saturated threshold (0.0-1.0).
	Saturated float64 `yaml:"saturated"`
}

// BackpressureRecovery configures recovery behavior.
type BackpressureRecovery struct {
	// Hysteresis to prevent flapping (0.0-0.5).
	Hysteresis float64 `yaml:"hysteresis"`

	// Cooldown is the minimum time between level checks.
	Cooldown time.Duration `yaml:"cooldown"`
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigf("config", "read %s: %v", path, err)
	}

	config, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// Parse decodes a run file over the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.NewConfigf("config", "parse: %v", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LaunchID:         defaults.DefaultLaunchID,
		Seed:             defaults.DefaultSeed,
		Duration:         defaults.DefaultDuration,
		Rate:             defaults.DefaultRate,
		IncludeReference: true,
		Output: OutputConfig{
			Dir:                defaults.DefaultOutputDir,
			PartitionThreshold: defaults.DefaultPartitionThreshold,
			Compression:        defaults.DefaultCompression,
			CompressionLevel:   defaults.DefaultCompressionLevel,
			RowGroupSize:       defaults.DefaultRowGroupSize,
			Manifest:           true,
		},
		Pipeline: PipelineConfig{
			QueueDepth:     defaults.DefaultQueueDepth,
			Prefetch:       defaults.DefaultPrefetch,
			PrefetchChunk:  defaults.DefaultPrefetchChunk,
			SketchAccuracy: defaults.DefaultSketchAccuracy,
		},
		Backpressure: BackpressureConfig{
			Enabled: true,
			Thresholds: BackpressureThresholds{
				Warning:   defaults.DefaultBackpressureWarning,
				Critical:  defaults.DefaultBackpressureCritical,
				Saturated: defaults.DefaultBackpressureSaturated,
			},
			Recovery: BackpressureRecovery{
				Hysteresis: defaults.DefaultBackpressureHysteresis,
				Cooldown:   defaults.DefaultBackpressureCooldown,
			},
		},
		Progress: true,
	}
}
