package rlenc

import (
	"context"
	"io"
	"sync"

	encerrors "github.com/manisha-goyal/multithreaded-run-length-encoder/rlenc/errors"
)

// ReorderBuffer accepts encoded chunks in completion order and releases
// them strictly by sequence position.
//
// Each slot is written once; Next clears a slot when it hands the chunk out
// so consumed results can be collected.
type ReorderBuffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	slots  []*EncodedChunk
	filled []bool
	next   int
}

// NewReorderBuffer creates a buffer for total chunks.
func NewReorderBuffer(total int) *ReorderBuffer {
	b := &ReorderBuffer{
		slots:  make([]*EncodedChunk, total),
		filled: make([]bool, total),
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Put stores ec in its slot. Filling a slot twice, or a position outside
// the buffer, is an error.
func (b *ReorderBuffer) Put(ec *EncodedChunk) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ec.Seq < 0 || ec.Seq >= len(b.slots) {
		return encerrors.ErrInvalidSequence.
			WithDetail("seq", ec.Seq).
			WithDetail("total", len(b.slots))
	}
	if b.filled[ec.Seq] {
		return encerrors.ErrDuplicateSequence.WithDetail("seq", ec.Seq)
	}

	b.slots[ec.Seq] = ec
	b.filled[ec.Seq] = true

	// only the consumer waits, and only on the next position
	if ec.Seq == b.next {
		b.cond.Broadcast()
	}
	return nil
}

// Next blocks until the chunk at the next expected position is available
// and returns it. It returns io.EOF after the last position, or the context
// error if ctx is done first.
func (b *ReorderBuffer) Next(ctx context.Context) (*EncodedChunk, error) {
	stop := context.AfterFunc(ctx, func() {
		b.mu.Lock()
		b.cond.Broadcast()
		b.mu.Unlock()
	})
	defer stop()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.next >= len(b.slots) {
		return nil, io.EOF
	}

	for b.slots[b.next] == nil && ctx.Err() == nil {
		b.cond.Wait()
	}
	if b.slots[b.next] == nil {
		return nil, ctx.Err()
	}

	ec := b.slots[b.next]
	b.slots[b.next] = nil
	b.next++
	return ec, nil
}

// Total returns the number of slots.
func (b *ReorderBuffer) Total() int {
	return len(b.slots)
}
