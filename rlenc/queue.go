package rlenc

import (
	"context"
	"sync"

	encerrors "github.com/manisha-goyal/multithreaded-run-length-encoder/rlenc/errors"
)

// WorkQueue is an unbounded FIFO of pending chunks shared by the producer
// and every worker.
//
// Semantics:
//   - Push never blocks and wakes one waiting consumer
//   - Pop blocks (sync.Cond, no polling) until a chunk is available
//   - After Close, Pop keeps draining and then returns ErrQueueClosed
//   - Every chunk is delivered to exactly one consumer, in push order
type WorkQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []*Chunk
	closed bool
}

// NewWorkQueue creates an empty, open queue.
func NewWorkQueue() *WorkQueue {
	q := &WorkQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends c to the queue.
func (q *WorkQueue) Push(c *Chunk) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return encerrors.ErrQueueClosed.WithDetail("seq", c.Seq)
	}
	q.items = append(q.items, c)
	q.cond.Signal()
	return nil
}

// Pop removes and returns the oldest chunk, blocking while the queue is
// empty. It returns ErrQueueClosed once the queue is closed and drained, or
// the context error if ctx is done first.
func (q *WorkQueue) Pop(ctx context.Context) (*Chunk, error) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed && ctx.Err() == nil {
		q.cond.Wait()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(q.items) == 0 {
		return nil, encerrors.ErrQueueClosed
	}

	c := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return c, nil
}

// Close marks the end of input and wakes every waiting consumer.
// Closing twice is a no-op.
func (q *WorkQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// Len returns the number of queued chunks.
func (q *WorkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Drain removes and returns every queued chunk without blocking.
func (q *WorkQueue) Drain() []*Chunk {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}
