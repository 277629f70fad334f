package manifest

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Manifest {
	p50, p90, p99 := 1.0, 2.0, 3.0
	return &Manifest{
		RunID:         "0b6c1c1e-8a55-4bb4-9d59-1f4f6b0d8a10",
		LaunchID:      "SIM-001",
		LaunchTime:    time.Date(2026, 3, 1, 12, 0, 0, 123, time.UTC),
		Seed:          1<<63 + 7,
		Duration:      10 * time.Second,
		Termination:   "completed",
		TotalRecords:  10010,
		Elapsed:       1500 * time.Millisecond,
		SchemaVersion: "1",
		Files: []File{
			{Path: "out/SIM-001_1000hz_10s.parquet", Records: 10010, RowGroups: 1},
		},
		Sensors: []Sensor{
			{ID: "acc", Type: "accelerometer", Rate: "1000Hz", Width: 1, Unit: "m/s^2", Count: 10000, Min: -1, Max: 1, Mean: 0.5, P50: &p50, P90: &p90, P99: &p99},
			{ID: "one_hertz", Type: "one_hertz", Rate: "1Hz", Unit: "count", Count: 10},
		},
	}
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.manifest.json")
	want := sample()

	require.NoError(t, Write(path, want))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, want.Seed, got.Seed, "seed must survive beyond float precision")
	assert.True(t, want.LaunchTime.Equal(got.LaunchTime))
	got.LaunchTime = want.LaunchTime
	assert.Equal(t, want, got)
}

func TestMarshalIsProtoJSON(t *testing.T) {
	data, err := Marshal(sample())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "completed", raw["termination"])
	assert.Equal(t, "9223372036854775815", raw["seed"])
	assert.Len(t, raw["sensors"], 2)
}

func TestUnmarshalRejectsUnknownVersion(t *testing.T) {
	_, err := Unmarshal([]byte(`{"version": 99}`))
	assert.Error(t, err)

	_, err = Unmarshal([]byte(`not json`))
	assert.Error(t, err)
}
