package rlenc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	encerrors "github.com/manisha-goyal/multithreaded-run-length-encoder/rlenc/errors"
	"github.com/manisha-goyal/multithreaded-run-length-encoder/rlenc/input"
	"github.com/manisha-goyal/multithreaded-run-length-encoder/rlenc/logger"
	"github.com/opencontainers/go-digest"
)

// ProgressCallback is called after each chunk is merged into the output
// current: chunks merged so far
// total: total number of chunks in the run
type ProgressCallback func(current int64, total int64)

// Options configures a Pipeline.
type Options struct {
	// Workers is the number of encoder goroutines, at least 1.
	Workers int
	// ChunkSize is the number of input bytes per unit of work, at least 1.
	ChunkSize int
	// CountMode selects how runs longer than MaxCount are written.
	CountMode CountMode
	// Sink configures compression and digesting of the output.
	Sink SinkOptions
	// Progress, if set, is called from the merging goroutine.
	Progress ProgressCallback
}

// DefaultOptions returns one worker, 4096-byte chunks and split counts.
func DefaultOptions() Options {
	return Options{
		Workers:   1,
		ChunkSize: DefaultChunkSize,
		CountMode: CountSplit,
	}
}

// Validate reports option values that are usage errors.
func (o Options) Validate() error {
	if o.Workers < 1 {
		return encerrors.NewUsageError("number of jobs must be at least 1, got %d", o.Workers)
	}
	if o.ChunkSize < 1 {
		return encerrors.NewUsageError("chunk size must be at least 1, got %d", o.ChunkSize)
	}
	if o.CountMode != CountSplit && o.CountMode != CountWrap {
		return encerrors.NewUsageError("unknown count mode %v", o.CountMode)
	}
	switch o.Sink.Compression {
	case "", CompressionNone, CompressionZstd:
	default:
		return encerrors.NewUsageError("unsupported compression %q", o.Sink.Compression)
	}
	return nil
}

// Stats contains statistics about an encode run
type Stats struct {
	TotalFiles  int
	TotalChunks int
	InputBytes  int64
	OutputBytes int64 // encoded bytes, before any compression
	Pairs       int64
	Workers     int
	Digest      digest.Digest
	Duration    time.Duration
}

// Pipeline owns the queues and worker pool of one encode run.
type Pipeline struct {
	source input.Source
	opts   Options
}

// NewPipeline validates opts and returns a pipeline reading through source.
func NewPipeline(source input.Source, opts Options) (*Pipeline, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{source: source, opts: opts}, nil
}

// Run encodes the concatenation of paths, in order, into w.
//
// Every input is opened and mapped before anything is queued, so an I/O
// error leaves w untouched.
func (p *Pipeline) Run(ctx context.Context, paths []string, w io.Writer) (*Stats, error) {
	if len(paths) == 0 {
		return nil, encerrors.NewUsageError("at least one input file is required")
	}
	start := time.Now()

	mappings, err := p.openAll(ctx, paths)
	if err != nil {
		return nil, err
	}

	chunker := NewChunkSource(p.opts.ChunkSize)
	stats := &Stats{
		TotalFiles: len(mappings),
		Workers:    p.opts.Workers,
	}
	for _, m := range mappings {
		stats.InputBytes += m.Size()
		stats.TotalChunks += chunker.ChunkCount(m.Size())
	}

	sink, err := NewSink(w, p.opts.Sink)
	if err != nil {
		releaseAll(mappings)
		return nil, err
	}

	logger.Info("Encoding %d files (%d bytes) as %d chunks with %d workers",
		stats.TotalFiles, stats.InputBytes, stats.TotalChunks, p.opts.Workers)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := NewWorkQueue()
	results := NewReorderBuffer(stats.TotalChunks)
	pool := NewWorkerPool(p.opts.Workers, queue, results)
	poolCtx := pool.Start(ctx)

	for _, m := range mappings {
		for _, c := range chunker.Split(m) {
			if err := queue.Push(c); err != nil {
				c.Release()
			}
		}
		if err := m.Release(); err != nil {
			logger.Warn("%v", err)
		}
	}
	queue.Close()

	merger := NewStreamMerger(sink, p.opts.CountMode)
	if err := p.merge(poolCtx, results, merger); err != nil {
		cancel()
		return nil, p.abort(pool, queue, err)
	}

	if err := pool.Wait(); err != nil {
		return nil, err
	}
	if err := merger.Flush(); err != nil {
		return nil, err
	}
	if err := sink.Close(); err != nil {
		return nil, encerrors.NewWriteError(err)
	}

	stats.OutputBytes = sink.Written()
	stats.Pairs = merger.Pairs()
	stats.Digest = sink.Digest()
	stats.Duration = time.Since(start)

	logger.Info("Encoded %d bytes into %d pairs in %s", stats.InputBytes, stats.Pairs, stats.Duration)
	return stats, nil
}

func (p *Pipeline) openAll(ctx context.Context, paths []string) ([]*input.Mapping, error) {
	mappings := make([]*input.Mapping, 0, len(paths))
	for _, path := range paths {
		m, err := p.source.Open(ctx, path)
		if err != nil {
			releaseAll(mappings)
			return nil, err
		}
		logger.Debug("Mapped %s (%d bytes)", path, m.Size())
		mappings = append(mappings, m)
	}
	return mappings, nil
}

func (p *Pipeline) merge(ctx context.Context, results *ReorderBuffer, merger *StreamMerger) error {
	total := int64(results.Total())
	for merged := int64(1); ; merged++ {
		ec, err := results.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := merger.Add(ec); err != nil {
			return err
		}
		if p.opts.Progress != nil {
			p.opts.Progress(merged, total)
		}
	}
}

// abort stops the pool after a failed merge, gives back the references held
// by chunks nobody will encode, and picks the error to report.
func (p *Pipeline) abort(pool *WorkerPool, queue *WorkQueue, cause error) error {
	werr := pool.Wait()
	for _, c := range queue.Drain() {
		c.Release()
	}

	if werr != nil && !errors.Is(werr, context.Canceled) {
		return werr
	}
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return fmt.Errorf("encode interrupted: %w", cause)
	}
	return cause
}

func releaseAll(mappings []*input.Mapping) {
	for _, m := range mappings {
		if err := m.Release(); err != nil {
			logger.Warn("%v", err)
		}
	}
}
