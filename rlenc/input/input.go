package input

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	encerrors "github.com/manisha-goyal/multithreaded-run-length-encoder/rlenc/errors"
)

// Source opens input files as read-only byte views.
type Source interface {
	Open(ctx context.Context, path string) (*Mapping, error)
}

// Mapping is a reference-counted, read-only view of one input file.
//
// The opener holds the first reference. Every chunk cut from the mapping
// takes another with Retain and gives it back with Release once encoded.
// The underlying memory is unmapped when the last reference is released,
// so a slice of Bytes must not be used after the caller's own Release.
type Mapping struct {
	path  string
	data  []byte
	refs  atomic.Int64
	unmap func([]byte) error
}

// NewMapping wraps data in a Mapping holding one reference. unmap may be nil
// when data is ordinary heap memory.
func NewMapping(path string, data []byte, unmap func([]byte) error) *Mapping {
	m := &Mapping{
		path:  path,
		data:  data,
		unmap: unmap,
	}
	m.refs.Store(1)
	return m
}

// Path returns the path the mapping was opened from.
func (m *Mapping) Path() string {
	return m.path
}

// Bytes returns the mapped contents. Callers must not modify them.
func (m *Mapping) Bytes() []byte {
	return m.data
}

// Size returns the number of mapped bytes.
func (m *Mapping) Size() int64 {
	return int64(len(m.data))
}

// Refs returns the number of outstanding references.
func (m *Mapping) Refs() int64 {
	return m.refs.Load()
}

// Retain adds a reference.
func (m *Mapping) Retain() {
	if m.refs.Add(1) <= 1 {
		panic(fmt.Sprintf("input: retain of released mapping %s", m.path))
	}
}

// Release drops a reference and unmaps the file when none remain.
func (m *Mapping) Release() error {
	n := m.refs.Add(-1)
	switch {
	case n > 0:
		return nil
	case n < 0:
		return fmt.Errorf("input: mapping %s released too many times", m.path)
	}

	data := m.data
	m.data = nil
	if m.unmap == nil || len(data) == 0 {
		return nil
	}
	if err := m.unmap(data); err != nil {
		return fmt.Errorf("input: release %s: %w", m.path, err)
	}
	return nil
}

type fileSource struct{}

// NewFileSource returns a Source that memory-maps files from the local
// filesystem where the platform supports it.
func NewFileSource() Source {
	return fileSource{}
}

func (fileSource) Open(ctx context.Context, path string) (*Mapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, encerrors.NewOpenError(path, err)
	}
	// the mapping stays valid after the descriptor is closed
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, encerrors.NewStatError(path, err)
	}

	size := info.Size()
	if size == 0 {
		return NewMapping(path, nil, nil), nil
	}

	data, unmap, err := mapFile(f, size)
	if err != nil {
		return nil, encerrors.NewMapError(path, size, err)
	}
	return NewMapping(path, data, unmap), nil
}
