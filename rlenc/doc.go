// Package rlenc is a parallel run-length encoder.
//
// Inputs are cut into fixed-size chunks that a pool of workers encodes
// independently. A reorder buffer hands the results back in input order and
// a stream merger joins runs split at chunk and file boundaries, so the
// output is identical to encoding the concatenated inputs in one pass:
//
//	ChunkSource -> WorkQueue -> WorkerPool -> ReorderBuffer -> StreamMerger -> Sink
//
// The output is a flat sequence of (symbol, count) byte pairs.
package rlenc
