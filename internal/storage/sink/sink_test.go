package sink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtxerr/telemetrygen/internal/errors"
	"github.com/xtxerr/telemetrygen/internal/sensor"
	"github.com/xtxerr/telemetrygen/internal/storage/parquet"
	"github.com/xtxerr/telemetrygen/internal/storage/types"
)

func TestRouterByRate(t *testing.T) {
	specs := []sensor.Spec{
		{ID: "ref", Rate: sensor.Hz(1)},
		{ID: "edge", Rate: sensor.Hz(10)},
		{ID: "acc", Rate: sensor.Hz(1000)},
		{ID: "pinned", Rate: sensor.Hz(1000), Partition: "engine"},
	}

	r := NewRouter(specs, Rules{ByRate: true, Threshold: sensor.Hz(10)})

	assert.Equal(t, PartitionLow, r.Route(specs[0]))
	assert.Equal(t, PartitionHigh, r.Route(specs[1]), "threshold itself is high frequency")
	assert.Equal(t, PartitionHigh, r.Route(specs[2]))
	assert.Equal(t, "engine", r.Route(specs[3]))
	assert.Equal(t, []string{"engine", "high", "low"}, r.Partitions())
}

func TestRouterSinglePartition(t *testing.T) {
	specs := []sensor.Spec{
		{ID: "ref", Rate: sensor.Hz(1)},
		{ID: "acc", Rate: sensor.Hz(1000)},
	}

	r := NewRouter(specs, Rules{})
	assert.Equal(t, "", r.Route(specs[0]))
	assert.Equal(t, "", r.Route(specs[1]))
	assert.Equal(t, []string{""}, r.Partitions())
}

func batch(partition string, seq int64, ids ...string) *types.Batch {
	b := types.NewBatch(partition, seq, len(ids))
	for i, id := range ids {
		b.Add(types.Record{
			Sample:     types.Sample{SensorID: id, Index: int64(i), Timestamp: int64(i)},
			SensorType: "t",
			Partition:  partition,
		})
	}
	b.Seal()
	return b
}

func TestSinkWritesOneFilePerPartition(t *testing.T) {
	dir := t.TempDir()
	dests := []Destination{
		{Partition: "low", Path: filepath.Join(dir, "run_low.parquet")},
		{Partition: "high", Path: filepath.Join(dir, "run_high.parquet")},
	}

	s, err := New(dests, parquet.DefaultOptions())
	require.NoError(t, err)

	require.NoError(t, s.Write(batch("high", 0, "a", "a", "b")))
	require.NoError(t, s.Write(batch("low", 0, "ref")))
	require.NoError(t, s.Write(batch("high", 1, "a")))
	require.NoError(t, s.Finalize(map[string]string{parquet.MetaRunID: "r1"}))

	files := s.Files()
	require.Len(t, files, 2)
	assert.Equal(t, FileSummary{Path: dests[1].Path, Partition: "high", Records: 4, RowGroups: 2}, files[0])
	assert.Equal(t, FileSummary{Path: dests[0].Path, Partition: "low", Records: 1, RowGroups: 1}, files[1])

	r, err := parquet.Open(dests[0].Path)
	require.NoError(t, err)
	defer r.Close()

	p, ok := r.Lookup(parquet.MetaPartition)
	assert.True(t, ok)
	assert.Equal(t, "low", p)
	run, _ := r.Lookup(parquet.MetaRunID)
	assert.Equal(t, "r1", run)

	recs, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "low", recs[0].Partition)
}

func TestSinkUnknownPartition(t *testing.T) {
	dir := t.TempDir()
	s, err := New([]Destination{{Path: filepath.Join(dir, "all.parquet")}}, parquet.DefaultOptions())
	require.NoError(t, err)
	defer s.Abort()

	err = s.Write(batch("nowhere", 0, "a"))
	assert.True(t, errors.IsWrite(err))
}

func TestSinkDuplicatePartition(t *testing.T) {
	dir := t.TempDir()
	_, err := New([]Destination{
		{Partition: "x", Path: filepath.Join(dir, "a.parquet")},
		{Partition: "x", Path: filepath.Join(dir, "b.parquet")},
	}, parquet.DefaultOptions())
	assert.True(t, errors.IsConfig(err))

	_, statErr := os.Stat(filepath.Join(dir, "a.parquet.partial"))
	assert.True(t, os.IsNotExist(statErr), "opened files must be aborted")
}

func TestSinkFinalizeAggregatesErrors(t *testing.T) {
	dir := t.TempDir()
	readOnly := func(name string) (*os.File, error) {
		if err := os.WriteFile(name, nil, 0o644); err != nil {
			return nil, err
		}
		return os.Open(name)
	}

	s, err := NewWithOpener([]Destination{
		{Partition: "a", Path: filepath.Join(dir, "a.parquet")},
		{Partition: "b", Path: filepath.Join(dir, "b.parquet")},
	}, func(path string) (*parquet.RecordFile, error) {
		return parquet.CreateWith(path, parquet.DefaultOptions(), readOnly)
	})
	require.NoError(t, err)

	assert.Error(t, s.Write(batch("a", 0, "x")))
	assert.Error(t, s.Write(batch("b", 0, "y")))

	err = s.Finalize(nil)
	require.Error(t, err)
	assert.True(t, errors.IsWrite(err))
	assert.Contains(t, err.Error(), "2 errors occurred")

	for _, name := range []string{"a.parquet", "b.parquet", "a.parquet.partial", "b.parquet.partial"} {
		_, statErr := os.Stat(filepath.Join(dir, name))
		assert.True(t, os.IsNotExist(statErr), name)
	}
}
