package rlenc

import (
	"context"
	"errors"
	"sync/atomic"

	encerrors "github.com/manisha-goyal/multithreaded-run-length-encoder/rlenc/errors"
	"github.com/manisha-goyal/multithreaded-run-length-encoder/rlenc/logger"
	"golang.org/x/sync/errgroup"
)

// WorkerPool runs a fixed number of encoders between a WorkQueue and a
// ReorderBuffer.
type WorkerPool struct {
	workers int
	queue   *WorkQueue
	results *ReorderBuffer

	group   *errgroup.Group
	encoded atomic.Int64
}

// NewWorkerPool creates a pool of workers goroutines; it does not start them.
func NewWorkerPool(workers int, queue *WorkQueue, results *ReorderBuffer) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		workers: workers,
		queue:   queue,
		results: results,
	}
}

// Start launches the workers. The returned context is cancelled as soon as
// any worker fails, so the consumer can stop waiting on the reorder buffer.
func (p *WorkerPool) Start(ctx context.Context) context.Context {
	group, groupCtx := errgroup.WithContext(ctx)
	p.group = group

	for id := 0; id < p.workers; id++ {
		id := id
		group.Go(func() error {
			return p.run(groupCtx, id)
		})
	}
	return groupCtx
}

// Wait joins every worker and returns the first error any of them hit.
// The queue must be closed first or Wait never returns.
func (p *WorkerPool) Wait() error {
	if p.group == nil {
		return nil
	}
	return p.group.Wait()
}

// Encoded returns the number of chunks encoded so far.
func (p *WorkerPool) Encoded() int64 {
	return p.encoded.Load()
}

// Workers returns the pool size.
func (p *WorkerPool) Workers() int {
	return p.workers
}

func (p *WorkerPool) run(ctx context.Context, id int) error {
	for {
		c, err := p.queue.Pop(ctx)
		if errors.Is(err, encerrors.ErrQueueClosed) {
			logger.Debug("worker %d: queue drained, exiting", id)
			return nil
		}
		if err != nil {
			return err
		}

		seq, size := c.Seq, c.Size()
		ec := EncodeChunk(c)
		if err := c.Release(); err != nil {
			logger.Warn("worker %d: %v", id, err)
		}

		if err := p.results.Put(ec); err != nil {
			return err
		}
		p.encoded.Add(1)
		logger.Debug("worker %d: chunk %d encoded (%d bytes, %d runs)", id, seq, size, len(ec.Runs))
	}
}
