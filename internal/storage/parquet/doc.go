// Package parquet writes and reads the telemetry record files.
//
// The package provides:
//   - RecordRow, the on-disk row schema
//   - Writer for streams and RecordFile for files, one row group per batch
//   - Finalize-once semantics: footer, fsync and rename from .partial
//   - Reader with row-group and key/value metadata inspection
//   - Support for multiple compression algorithms (snappy, zstd, lz4, gzip)
package parquet
