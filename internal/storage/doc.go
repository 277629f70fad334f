// Package storage holds the write path of a telemetry run.
//
// Architecture:
//
//	┌─────────────┐     ┌─────────────┐     ┌─────────────┐
//	│   Batcher   │────▶│    Queue    │────▶│    Sink     │
//	│ (partition) │     │  (bounded)  │     │  (Parquet)  │
//	└─────────────┘     └─────────────┘     └─────────────┘
//	                           │                   │
//	                           ▼                   ▼
//	                    ┌─────────────┐     ┌─────────────┐
//	                    │Backpressure │     │  Aggregate  │
//	                    │ Controller  │     │   Manager   │
//	                    └─────────────┘     └─────────────┘
//
// Subpackages:
//   - types: samples, merged records, batches and summary statistics
//   - buffer: per-partition batchers and the bounded batch queue
//   - backpressure: queue fill level reporting
//   - parquet: record file schema, writer and reader
//   - sink: partition routing and one record file per partition
//   - aggregate: DDSketch-based per-sensor statistics
//   - query: DuckDB queries over written files
package storage
