package input

import (
	"context"
	"os"
	"sync"

	encerrors "github.com/manisha-goyal/multithreaded-run-length-encoder/rlenc/errors"
)

// MockSource is a simple in-memory Source implementation for tests.
type MockSource struct {
	mu       sync.RWMutex
	files    map[string][]byte
	opened   []*Mapping
	released map[string]int
}

// NewMockSource constructs an empty MockSource.
func NewMockSource() *MockSource {
	return &MockSource{
		files:    make(map[string][]byte),
		released: make(map[string]int),
	}
}

// AddFile registers file content under path.
func (m *MockSource) AddFile(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.files[path] = append([]byte(nil), data...)
}

// Open returns a mapping over the registered content, or an open error
// wrapping os.ErrNotExist for unknown paths.
func (m *MockSource) Open(ctx context.Context, path string) (*Mapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.files[path]
	if !ok {
		return nil, encerrors.NewOpenError(path, os.ErrNotExist)
	}

	mapping := NewMapping(path, data, func([]byte) error {
		m.mu.Lock()
		m.released[path]++
		m.mu.Unlock()
		return nil
	})
	m.opened = append(m.opened, mapping)
	return mapping, nil
}

// Opened returns every mapping handed out so far.
func (m *MockSource) Opened() []*Mapping {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]*Mapping(nil), m.opened...)
}

// Released reports how many times the mapping for path was unmapped.
func (m *MockSource) Released(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.released[path]
}
