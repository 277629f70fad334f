// Package types defines the core data types that flow through the
// generation pipeline.
//
// Key types:
//   - Sample: A single reading produced by a sensor source
//   - Record: A sample positioned in the merged stream
//   - Batch: An ordered run of records that becomes one Parquet row group
//   - SensorStats: Per-sensor summary statistics for a finished run
package types
