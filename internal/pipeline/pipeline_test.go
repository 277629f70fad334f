package pipeline

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtxerr/telemetrygen/internal/errors"
	"github.com/xtxerr/telemetrygen/internal/manifest"
	"github.com/xtxerr/telemetrygen/internal/sensor"
	"github.com/xtxerr/telemetrygen/internal/storage/backpressure"
	"github.com/xtxerr/telemetrygen/internal/storage/parquet"
	"github.com/xtxerr/telemetrygen/internal/storage/query"
	"github.com/xtxerr/telemetrygen/internal/storage/sink"
	"github.com/xtxerr/telemetrygen/internal/storage/types"
)

func accSpec(rate sensor.Rate) sensor.Spec {
	return sensor.Spec{
		ID:        "acc",
		Type:      "accelerometer",
		Rate:      rate,
		Width:     1,
		Unit:      "m/s^2",
		Generator: sensor.Sine(9.81, 2, 0),
	}
}

func testConfig(t *testing.T, duration time.Duration, specs ...sensor.Spec) RunConfig {
	t.Helper()

	opts := parquet.DefaultOptions()
	opts.RowGroupSize = 1000

	return RunConfig{
		RunID:      "test-run",
		LaunchID:   "SIM-TEST",
		LaunchTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Seed:       42,
		Duration:   duration,
		Sensors:    specs,
		Output: OutputConfig{
			Dir:     filepath.Join(t.TempDir(), "out"),
			Name:    "run",
			Parquet: opts,
		},
		Pipeline:     DefaultPipelineConfig(),
		Backpressure: backpressure.DefaultConfig(),
	}
}

func readAll(t *testing.T, path string) []types.Record {
	t.Helper()
	r, err := parquet.Open(path)
	require.NoError(t, err)
	defer r.Close()
	recs, err := r.ReadAll()
	require.NoError(t, err)
	return recs
}

func requireOrdered(t *testing.T, recs []types.Record) {
	t.Helper()
	for i := 1; i < len(recs); i++ {
		prev, cur := recs[i-1], recs[i]
		if cur.Timestamp < prev.Timestamp ||
			(cur.Timestamp == prev.Timestamp && cur.SensorID <= prev.SensorID) {
			t.Fatalf("record %d (%s@%d) out of order after %s@%d",
				i, cur.SensorID, cur.Timestamp, prev.SensorID, prev.Timestamp)
		}
	}
}

func TestRunReferenceAndHighRate(t *testing.T) {
	cfg := testConfig(t, 10*time.Second, sensor.Reference(), accSpec(sensor.Hz(1000)))
	cfg.Output.Manifest = true

	summary, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, TerminationCompleted, summary.Termination)
	assert.Equal(t, int64(10_010), summary.TotalRecords)
	assert.Equal(t, int64(10_010), summary.Expected)
	require.Len(t, summary.Files, 1)
	assert.Equal(t, filepath.Join(cfg.Output.Dir, "run.parquet"), summary.Files[0].Path)
	assert.Equal(t, 11, summary.Files[0].RowGroups)

	recs := readAll(t, summary.Files[0].Path)
	require.Len(t, recs, 10_010)

	info, err := parquet.GetFileInfo(summary.Files[0].Path)
	require.NoError(t, err)
	launch, err := time.Parse(time.RFC3339Nano, info.Metadata[parquet.MetaLaunchTime])
	require.NoError(t, err)
	assert.True(t, cfg.LaunchTime.Equal(launch))
	assert.Equal(t, int64(0), recs[0].Timestamp)
	assert.Equal(t, "acc", recs[0].SensorID, "ties break by ascending sensor id")
	assert.Equal(t, sensor.ReferenceID, recs[1].SensorID)
	assert.Equal(t, int64(9_999_000_000), recs[len(recs)-1].Timestamp)
	requireOrdered(t, recs)

	sensorTypes := map[string]bool{}
	for _, r := range recs {
		sensorTypes[r.SensorType] = true
	}
	assert.Len(t, sensorTypes, 2)

	require.Len(t, summary.Sensors, 2)
	assert.Equal(t, int64(10_000), summary.Sensors[0].Count)
	assert.Equal(t, int64(10), summary.Sensors[1].Count)
	assert.True(t, summary.Sensors[0].HasPercentiles())

	m, err := manifest.Read(summary.Manifest)
	require.NoError(t, err)
	assert.Equal(t, "completed", m.Termination)
	assert.Equal(t, int64(10_010), m.TotalRecords)
	assert.Equal(t, uint64(42), m.Seed)
	require.Len(t, m.Sensors, 2)
	assert.Equal(t, "1000Hz", m.Sensors[0].Rate)

	// The file is queryable by an external analytical engine.
	svc, err := query.New(query.Options{})
	require.NoError(t, err)
	defer svc.Close()

	sums, err := svc.Summarize(context.Background(), summary.Files[0].Path)
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.Equal(t, int64(10_000), sums[0].Count)
	assert.Equal(t, int64(9_000_000_000), sums[1].LastTs)

	violations, err := svc.OrderViolations(context.Background(), summary.Files[0].Path)
	require.NoError(t, err)
	assert.Zero(t, violations)
}

func TestRunIsDeterministic(t *testing.T) {
	specs := sensor.Catalog(sensor.Hz(200))
	specs = append(specs, sensor.Reference())

	digest := func(prefetch bool) []byte {
		cfg := testConfig(t, 2*time.Second, specs...)
		cfg.Pipeline.Prefetch = prefetch
		cfg.Pipeline.PrefetchChunk = 64

		summary, err := Run(context.Background(), cfg)
		require.NoError(t, err)
		data, err := os.ReadFile(summary.Files[0].Path)
		require.NoError(t, err)
		return data
	}

	first := digest(false)
	assert.True(t, bytes.Equal(first, digest(false)), "same seed must give byte-identical output")
	assert.True(t, bytes.Equal(first, digest(true)), "prefetch must not change output")
}

func TestRunInterrupted(t *testing.T) {
	cfg := testConfig(t, 10*time.Second, accSpec(sensor.Hz(1000)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	summary, err := Run(ctx, cfg, WithRecordHook(func(n int64, _ *types.Record) {
		if n == 1000 {
			cancel()
		}
	}))
	require.NoError(t, err)

	assert.Equal(t, TerminationInterrupted, summary.Termination)
	assert.True(t, summary.Interrupted())
	assert.Equal(t, int64(1000), summary.TotalRecords)
	assert.Equal(t, int64(10_000), summary.Expected)

	recs := readAll(t, summary.Files[0].Path)
	require.Len(t, recs, 1000)
	assert.Equal(t, int64(999_000_000), recs[999].Timestamp)

	r, err := parquet.Open(summary.Files[0].Path)
	require.NoError(t, err)
	defer r.Close()
	term, _ := r.Lookup(parquet.MetaTermination)
	assert.Equal(t, "interrupted", term)
	launch, ok := r.Lookup(parquet.MetaLaunchTime)
	require.True(t, ok)
	assert.Equal(t, "2026-01-01T00:00:00Z", launch)
}

func TestRunInterruptedBeforeStart(t *testing.T) {
	cfg := testConfig(t, time.Second, accSpec(sensor.Hz(100)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := Run(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, TerminationInterrupted, summary.Termination)
	assert.Zero(t, summary.TotalRecords)
	assert.Empty(t, readAll(t, summary.Files[0].Path))
}

func TestRunZeroRateIsConfigError(t *testing.T) {
	bad := accSpec(sensor.Rate{})
	cfg := testConfig(t, 10*time.Second, bad)

	summary, err := Run(context.Background(), cfg)
	assert.Nil(t, summary)
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
	assert.Equal(t, errors.ExitConfig, errors.ExitCode(err))

	_, statErr := os.Stat(cfg.Output.Dir)
	assert.True(t, os.IsNotExist(statErr), "no output may be created")
}

func TestRunValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RunConfig)
	}{
		{"zero duration", func(c *RunConfig) { c.Duration = 0 }},
		{"no sensors", func(c *RunConfig) { c.Sensors = nil }},
		{"bad launch id", func(c *RunConfig) { c.LaunchID = "a/b" }},
		{"duplicate sensor", func(c *RunConfig) { c.Sensors = append(c.Sensors, c.Sensors[0]) }},
		{"zero row group", func(c *RunConfig) { c.Output.Parquet.RowGroupSize = 0 }},
		{"zero queue", func(c *RunConfig) { c.Pipeline.QueueDepth = 0 }},
		{"negative limit", func(c *RunConfig) { c.Pipeline.MaxRecords = -1 }},
		{"threshold order", func(c *RunConfig) { c.Backpressure.Thresholds.Warning = 0.9 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, time.Second, accSpec(sensor.Hz(10)))
			tt.mutate(&cfg)

			_, err := Run(context.Background(), cfg)
			require.Error(t, err)
			assert.True(t, errors.IsConfig(err), "got %v", err)
			assert.Equal(t, errors.ExitConfig, errors.ExitCode(err))

			_, statErr := os.Stat(cfg.Output.Dir)
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestRunUnwritableOutputIsConfigError(t *testing.T) {
	cfg := testConfig(t, time.Second, accSpec(sensor.Hz(10)))
	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	cfg.Output.Dir = filepath.Join(file, "out")

	summary, err := Run(context.Background(), cfg)
	assert.Nil(t, summary)
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err), "got %v", err)
	assert.False(t, errors.IsWrite(err))
	assert.Equal(t, errors.ExitConfig, errors.ExitCode(err))
}

func TestRunMaxRecords(t *testing.T) {
	cfg := testConfig(t, 10*time.Second, accSpec(sensor.Hz(1000)))
	cfg.Pipeline.MaxRecords = 2500

	summary, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, TerminationLimited, summary.Termination)
	assert.Equal(t, int64(2500), summary.TotalRecords)
	assert.Equal(t, int64(2500), summary.Expected)
	assert.Len(t, readAll(t, summary.Files[0].Path), 2500)
}

func TestRunMaxRecordsEqualToTotal(t *testing.T) {
	cfg := testConfig(t, time.Second, accSpec(sensor.Hz(10)))
	cfg.Pipeline.MaxRecords = 10

	summary, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, TerminationCompleted, summary.Termination)
	assert.Equal(t, int64(10), summary.TotalRecords)
	assert.Equal(t, int64(10), summary.Expected)
}

func TestRunBatchCadenceAndPartitions(t *testing.T) {
	cfg := testConfig(t, time.Second, sensor.Reference(), accSpec(sensor.Hz(1000)))
	cfg.Output.Parquet.RowGroupSize = 100
	cfg.Output.Rules = sink.Rules{ByRate: true, Threshold: sensor.Hz(10)}

	summary, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, summary.Files, 2)

	high, low := summary.Files[0], summary.Files[1]
	assert.Equal(t, "high", high.Partition)
	assert.Equal(t, filepath.Join(cfg.Output.Dir, "run_high.parquet"), high.Path)
	assert.Equal(t, int64(1000), high.Records)
	assert.Equal(t, 10, high.RowGroups)
	assert.Equal(t, "low", low.Partition)
	assert.Equal(t, int64(1), low.Records)
	assert.Equal(t, 1, low.RowGroups)

	info, err := parquet.GetFileInfo(high.Path)
	require.NoError(t, err)
	for i, n := range info.RowGroups {
		assert.LessOrEqual(t, n, int64(100), "row group %d", i)
	}

	for _, r := range readAll(t, low.Path) {
		assert.Equal(t, sensor.ReferenceID, r.SensorID)
	}
}

func TestRunWriteError(t *testing.T) {
	cfg := testConfig(t, time.Second, accSpec(sensor.Hz(1000)))
	cfg.Output.Parquet.RowGroupSize = 100
	require.NoError(t, os.MkdirAll(cfg.Output.Dir, 0o755))

	readOnly := func(path string) (*parquet.RecordFile, error) {
		return parquet.CreateWith(path, cfg.Output.Parquet, func(name string) (*os.File, error) {
			if err := os.WriteFile(name, nil, 0o644); err != nil {
				return nil, err
			}
			return os.Open(name)
		})
	}

	summary, err := Run(context.Background(), cfg, WithOpener(readOnly))
	require.Error(t, err)
	assert.True(t, errors.IsWrite(err), "got %v", err)
	assert.Equal(t, errors.ExitWrite, errors.ExitCode(err))

	require.NotNil(t, summary)
	assert.Equal(t, TerminationFailed, summary.Termination)
	assert.Zero(t, summary.TotalRecords)

	entries, err := os.ReadDir(cfg.Output.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no unreadable file may remain")
}

func TestRunGenerationError(t *testing.T) {
	overflow := sensor.Spec{
		ID:        "overflow",
		Type:      "broken",
		Rate:      sensor.Hz(1),
		Generator: sensor.Sine(math.MaxFloat64, 0.25, math.MaxFloat64),
	}
	cfg := testConfig(t, 5*time.Second, accSpec(sensor.Hz(1000)), overflow)

	summary, err := Run(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.IsGeneration(err), "got %v", err)
	assert.Equal(t, errors.ExitGeneration, errors.ExitCode(err))

	require.NotNil(t, summary)
	assert.Equal(t, TerminationFailed, summary.Termination)

	// Records generated before the failure are kept in a valid file.
	recs := readAll(t, summary.Files[0].Path)
	assert.Equal(t, summary.TotalRecords, int64(len(recs)))
	requireOrdered(t, recs)

	// The overflow source fails refilling its second sample; its first
	// sample is still written.
	require.Len(t, recs, 2)
	assert.Equal(t, "overflow", recs[1].SensorID)
	assert.Equal(t, int64(0), recs[1].Index)
}

func TestRunMetricsTextfile(t *testing.T) {
	cfg := testConfig(t, time.Second, accSpec(sensor.Hz(100)))
	cfg.MetricsTextfile = filepath.Join(t.TempDir(), "run.prom")

	_, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.MetricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `telemetrygen_records_total{launch_id="SIM-TEST",partition="all"} 100`)
}

func TestRunProgress(t *testing.T) {
	cfg := testConfig(t, time.Second, accSpec(sensor.Hz(100)))
	cfg.Progress = true

	var out bytes.Buffer
	_, err := Run(context.Background(), cfg, WithProgressWriter(&out))
	require.NoError(t, err)
}
