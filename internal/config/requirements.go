package config

import (
	"fmt"
	"runtime"

	"github.com/xtxerr/telemetrygen/internal/sensor"
	"github.com/xtxerr/telemetrygen/internal/storage/sink"
)

// Requirements represents the estimated size of a run.
type Requirements struct {
	Sensors    int
	Partitions int

	// Points is the number of records the run writes, after MaxRecords.
	Points int64

	// Unlimited is the number of records without MaxRecords.
	Unlimited int64

	// ExceedsLimit is set when MaxRecords truncates the run.
	ExceedsLimit bool

	// Throughput in simulated time
	PointsPerSecond float64

	// Memory requirements
	BatchBytes    int64
	QueueBytes    int64
	SketchBytes   int64
	TotalRAMBytes int64

	// Storage requirements
	RowGroups int64
	DiskBytes int64

	RecommendedCPUCores int
}

// Constants for calculations
const (
	// Bytes per scalar record (in-memory)
	bytesPerRecord = 96

	// Bytes per vector component (in-memory)
	bytesPerComponent = 8

	// Bytes per sensor sketch (DDSketch at 1% accuracy)
	bytesPerSketch = 4 * 1024

	// Bytes per row in Parquet (compressed)
	bytesPerRowCompressed = 12
)

// CalculateRequirements estimates record counts, memory and disk usage.
func (c *Config) CalculateRequirements() (Requirements, error) {
	specs, err := c.Specs()
	if err != nil {
		return Requirements{}, err
	}
	rules := sink.Rules{ByRate: c.Output.PartitionByRate}
	if rules.ByRate {
		rules.Threshold, _ = sensor.ParseRate(c.Output.PartitionThreshold)
	}

	r := Requirements{
		Sensors:    len(specs),
		Partitions: len(sink.NewRouter(specs, rules).Partitions()),
	}

	components := int64(0)
	for _, s := range specs {
		n, err := s.Rate.Count(c.Duration)
		if err != nil {
			return Requirements{}, err
		}
		r.Unlimited += n
		r.PointsPerSecond += s.Rate.Float()
		components += int64(s.Components())
	}

	r.Points = r.Unlimited
	if limit := c.Pipeline.MaxRecords; limit > 0 && r.Unlimited > limit {
		r.Points = limit
		r.ExceedsLimit = true
	}

	// -------------------------------------------------------------------------
	// Memory Requirements
	// -------------------------------------------------------------------------

	avgRecord := int64(bytesPerRecord)
	if len(specs) > 0 {
		avgRecord += bytesPerComponent * components / int64(len(specs))
	}
	rowGroup := int64(c.Output.RowGroupSize)

	// One open batch per partition, plus the sealed batches in the queue
	// and the one held by the writer.
	r.BatchBytes = int64(r.Partitions) * rowGroup * avgRecord
	r.QueueBytes = int64(c.Pipeline.QueueDepth+1) * rowGroup * avgRecord
	r.SketchBytes = int64(len(specs)) * bytesPerSketch
	r.TotalRAMBytes = r.BatchBytes + r.QueueBytes + r.SketchBytes

	// -------------------------------------------------------------------------
	// Storage Requirements
	// -------------------------------------------------------------------------

	if rowGroup > 0 {
		r.RowGroups = (r.Points + rowGroup - 1) / rowGroup
	}
	r.DiskBytes = r.Points * bytesPerRowCompressed

	// The merge is one goroutine; prefetch adds one per sensor.
	r.RecommendedCPUCores = 2
	if c.Pipeline.Prefetch {
		r.RecommendedCPUCores = min(len(specs)+2, runtime.NumCPU())
	}

	return r, nil
}

// FormatRequirements returns a human-readable summary of requirements.
func (r *Requirements) FormatRequirements() string {
	return fmt.Sprintf(`Run Estimate
============

Records:
  Sensors:           %d
  Partitions:        %d
  Records/sim-sec:   %s
  Records:           %s
  Row Groups:        %s

Memory:
  Open Batches:      %s
  Batch Queue:       %s
  Sketches:          %s
  Total RAM:         %s (peak)

Storage:
  Parquet:           %s (estimated)

CPU:
  Recommended Cores: %d
`,
		r.Sensors,
		r.Partitions,
		formatNumber(int64(r.PointsPerSecond)),
		formatNumber(r.Points),
		formatNumber(r.RowGroups),
		formatBytes(r.BatchBytes),
		formatBytes(r.QueueBytes),
		formatBytes(r.SketchBytes),
		formatBytes(r.TotalRAMBytes),
		formatBytes(r.DiskBytes),
		r.RecommendedCPUCores,
	)
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
		TB = 1024 * GB
	)

	switch {
	case b >= TB:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(TB))
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats a number with a magnitude suffix.
func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	if n < 1000000000 {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
	return fmt.Sprintf("%.1fB", float64(n)/1000000000)
}
