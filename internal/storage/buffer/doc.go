// Package buffer bounds the memory of a run.
//
// A Batcher accumulates merged records into batches of at most the
// row-group size and seals them. A Queue carries sealed batches from the
// generation stage to the writer stage; it has a fixed capacity and blocks
// the producer when full, so no batch is ever dropped.
package buffer
