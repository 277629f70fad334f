package parquet

import (
	"strings"

	"github.com/xtxerr/telemetrygen/internal/storage/types"
)

// SchemaVersion is stored in every file's key/value metadata.
const SchemaVersion = "1"

// Key/value metadata keys.
const (
	MetaSchemaVersion = "telemetrygen.schema_version"
	MetaRowGroups     = "telemetrygen.row_groups"
	MetaRunID         = "telemetrygen.run_id"
	MetaLaunchID      = "telemetrygen.launch_id"
	MetaLaunchTime    = "telemetrygen.launch_time" // RFC 3339, timestamps are relative to it
	MetaPartition     = "telemetrygen.partition"
	MetaTermination   = "telemetrygen.termination"
	MetaSeed          = "telemetrygen.seed"
)

// RecordRow represents a merged record in Parquet format.
//
// timestamp is delta encoded since it grows almost linearly; sensor_id and
// sensor_type are dictionary encoded, so each distinct name is stored once
// per column chunk.
type RecordRow struct {
	Timestamp   int64     `parquet:"timestamp,delta"`
	SampleIndex int64     `parquet:"sample_index,delta"`
	SensorID    string    `parquet:"sensor_id,dict"`
	SensorType  string    `parquet:"sensor_type,dict"`
	Value       float64   `parquet:"value"`
	Vector      []float64 `parquet:"vector,list"`
}

// RecordToRow converts a Record to a RecordRow.
func RecordToRow(r *types.Record) RecordRow {
	return RecordRow{
		Timestamp:   r.Timestamp,
		SampleIndex: r.Index,
		SensorID:    r.SensorID,
		SensorType:  r.SensorType,
		Value:       r.Value,
		Vector:      r.Vector,
	}
}

// RowToRecord converts a RecordRow to a Record. Ordinal is not stored and
// is left zero.
func RowToRecord(row *RecordRow, partition string) types.Record {
	rec := types.Record{
		Sample: types.Sample{
			SensorID:  row.SensorID,
			Index:     row.SampleIndex,
			Timestamp: row.Timestamp,
			Value:     row.Value,
		},
		SensorType: row.SensorType,
		Partition:  partition,
	}
	if len(row.Vector) > 0 {
		rec.Vector = append([]float64(nil), row.Vector...)
	}
	return rec
}

// RowGroupStats describes one appended row group.
type RowGroupStats struct {
	Rows         int64 `json:"rows"`
	MinTimestamp int64 `json:"min_ts"`
	MaxTimestamp int64 `json:"max_ts"`
}

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// String returns the configuration name of the codec.
func (c CompressionType) String() string {
	switch c {
	case CompressionSnappy:
		return "snappy"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	case CompressionGzip:
		return "gzip"
	default:
		return "none"
	}
}

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) (CompressionType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "snappy":
		return CompressionSnappy, true
	case "zstd", "":
		return CompressionZstd, true
	case "lz4":
		return CompressionLZ4, true
	case "gzip":
		return CompressionGzip, true
	case "none", "uncompressed":
		return CompressionNone, true
	default:
		return CompressionZstd, false
	}
}
