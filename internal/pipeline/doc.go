// Package pipeline runs one telemetry generation job end to end.
//
// A run has two stages connected by a bounded queue of sealed batches:
//
//	sources -> registry -> merge.Scheduler -> batchers -> queue -> writer -> sink
//
// The generation stage owns the sources, the merge and one batcher per
// output partition. The writer stage owns the output files and the
// per-sensor aggregates. A full queue blocks generation, so memory stays
// bounded by queue depth times row-group size.
//
// Cancelling the context stops generation between two records. The
// partial batches are sealed and handed to the writer, which drains the
// queue; every file is then finalized, so an interrupted run leaves valid,
// truncated output and a summary marked interrupted.
package pipeline
