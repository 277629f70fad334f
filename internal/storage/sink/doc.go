// Package sink routes sealed batches to one record file per output
// partition.
//
// The partition of a sensor is decided once, before the run starts, by a
// Router: an explicit partition on the sensor spec wins, otherwise the
// sensor is classed as "low" or "high" frequency against a threshold rate
// when partitioning by rate is enabled. Without partitioning every sensor
// lands in the single unnamed partition.
package sink
