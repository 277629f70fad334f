package pipeline

import (
	"sync/atomic"
	"time"

	"github.com/xtxerr/telemetrygen/internal/manifest"
	"github.com/xtxerr/telemetrygen/internal/storage/parquet"
	"github.com/xtxerr/telemetrygen/internal/storage/sink"
	"github.com/xtxerr/telemetrygen/internal/storage/types"
)

// Termination says how a run ended.
type Termination string

const (
	TerminationCompleted   Termination = "completed"
	TerminationInterrupted Termination = "interrupted"
	TerminationLimited     Termination = "limited"
	TerminationFailed      Termination = "failed"
)

// RunState is the mutable state of one run. It is passed to both stages
// explicitly.
type RunState struct {
	RunID      string
	LaunchID   string
	LaunchTime time.Time
	Seed       uint64
	Started    time.Time

	// Expected is the number of records the configuration produces.
	Expected int64

	// written is advanced by the writer stage.
	written atomic.Int64
}

// Written returns the number of records appended to output files.
func (s *RunState) Written() int64 { return s.written.Load() }

// RunSummary reports what a run produced.
type RunSummary struct {
	RunID        string
	LaunchID     string
	LaunchTime   time.Time
	Seed         uint64
	Duration     time.Duration
	Files        []sink.FileSummary
	TotalRecords int64
	Expected     int64
	Elapsed      time.Duration
	Termination  Termination
	Sensors      []types.SensorStats

	// Manifest is the path of the written manifest, if any.
	Manifest string
}

// Interrupted reports whether the run stopped on cancellation.
func (s *RunSummary) Interrupted() bool {
	return s.Termination == TerminationInterrupted
}

// toManifest converts the summary for storage next to the output files.
func (s *RunSummary) toManifest(specs map[string]sensorInfo) *manifest.Manifest {
	m := &manifest.Manifest{
		RunID:         s.RunID,
		LaunchID:      s.LaunchID,
		LaunchTime:    s.LaunchTime,
		Seed:          s.Seed,
		Duration:      s.Duration,
		Termination:   string(s.Termination),
		TotalRecords:  s.TotalRecords,
		Elapsed:       s.Elapsed,
		SchemaVersion: parquet.SchemaVersion,
	}
	for _, f := range s.Files {
		m.Files = append(m.Files, manifest.File{
			Path:      f.Path,
			Partition: f.Partition,
			Records:   f.Records,
			RowGroups: f.RowGroups,
		})
	}
	for _, st := range s.Sensors {
		info := specs[st.SensorID]
		m.Sensors = append(m.Sensors, manifest.Sensor{
			ID:        st.SensorID,
			Type:      st.SensorType,
			Rate:      info.rate,
			Width:     info.width,
			Unit:      info.unit,
			Partition: info.partition,
			Count:     st.Count,
			Min:       st.Min,
			Max:       st.Max,
			Mean:      st.Mean,
			P50:       st.P50,
			P90:       st.P90,
			P99:       st.P99,
		})
	}
	return m
}

type sensorInfo struct {
	rate      string
	width     int
	unit      string
	partition string
}
