package rlenc

import (
	"fmt"
	"io"

	encerrors "github.com/manisha-goyal/multithreaded-run-length-encoder/rlenc/errors"
)

// MaxCount is the largest count a single output pair can carry.
const MaxCount = 255

// CountMode selects how runs longer than MaxCount are written.
type CountMode int

const (
	// CountSplit writes long runs as several pairs of at most MaxCount.
	CountSplit CountMode = iota
	// CountWrap writes the run length modulo 256 in one pair, as encoders
	// that truncate the count to a byte do.
	CountWrap
)

func (m CountMode) String() string {
	switch m {
	case CountSplit:
		return "split"
	case CountWrap:
		return "wrap"
	default:
		return fmt.Sprintf("CountMode(%d)", int(m))
	}
}

// StreamMerger turns in-order encoded chunks into the final byte stream,
// joining a chunk's leading run with the previous chunk's trailing run when
// their symbols match.
//
// The trailing run of every chunk is held back, since the next chunk may
// extend it. Flush writes it out after the last chunk.
type StreamMerger struct {
	w    io.Writer
	mode CountMode

	last    Run
	pending bool

	pairs int64
	err   error
	buf   []byte
}

// NewStreamMerger returns a merger writing (symbol, count) pairs to w.
func NewStreamMerger(w io.Writer, mode CountMode) *StreamMerger {
	return &StreamMerger{w: w, mode: mode}
}

// Add consumes the next chunk in sequence order.
func (m *StreamMerger) Add(ec *EncodedChunk) error {
	if m.err != nil {
		return m.err
	}
	if len(ec.Runs) == 0 {
		return nil
	}

	runs := ec.Runs
	first := runs[0]
	if m.pending {
		if first.Symbol == m.last.Symbol {
			first.Count += m.last.Count
		} else if err := m.emit(m.last); err != nil {
			return err
		}
	}

	if len(runs) == 1 {
		m.last, m.pending = first, true
		return nil
	}

	if err := m.emit(first); err != nil {
		return err
	}
	for _, r := range runs[1 : len(runs)-1] {
		if err := m.emit(r); err != nil {
			return err
		}
	}
	m.last, m.pending = runs[len(runs)-1], true
	return nil
}

// Flush writes the carried run. Further Adds start a fresh stream.
func (m *StreamMerger) Flush() error {
	if m.err != nil {
		return m.err
	}
	if !m.pending {
		return nil
	}
	m.pending = false
	return m.emit(m.last)
}

// Pairs returns the number of (symbol, count) pairs written.
func (m *StreamMerger) Pairs() int64 {
	return m.pairs
}

func (m *StreamMerger) emit(r Run) error {
	m.buf = appendRun(m.buf[:0], r, m.mode)
	if _, err := m.w.Write(m.buf); err != nil {
		m.err = encerrors.NewWriteError(err)
		return m.err
	}
	m.pairs += int64(len(m.buf) / 2)
	return nil
}

// AppendRuns appends runs to dst in wire form, using the same count rules
// as StreamMerger.
func AppendRuns(dst []byte, runs []Run, mode CountMode) []byte {
	for _, r := range runs {
		dst = appendRun(dst, r, mode)
	}
	return dst
}

func appendRun(dst []byte, r Run, mode CountMode) []byte {
	if mode == CountWrap {
		return append(dst, r.Symbol, byte(r.Count))
	}
	for count := r.Count; count > 0; count -= MaxCount {
		n := count
		if n > MaxCount {
			n = MaxCount
		}
		dst = append(dst, r.Symbol, byte(n))
	}
	return dst
}
