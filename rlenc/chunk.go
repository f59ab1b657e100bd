package rlenc

import (
	"github.com/manisha-goyal/multithreaded-run-length-encoder/rlenc/input"
)

// DefaultChunkSize is the number of input bytes handed to a worker at once.
const DefaultChunkSize = 4096

// Chunk is one contiguous slice of an input mapping, the unit of parallel work.
type Chunk struct {
	// Seq is the chunk's rank in the concatenation of all inputs.
	Seq int
	// Data borrows from the mapping; it is never copied or modified.
	Data []byte

	mapping *input.Mapping
}

// Size returns the number of bytes in the chunk.
func (c *Chunk) Size() int {
	return len(c.Data)
}

// Release returns the chunk's reference on its mapping. Data must not be
// read afterwards.
func (c *Chunk) Release() error {
	if c.mapping == nil {
		return nil
	}
	m := c.mapping
	c.mapping = nil
	c.Data = nil
	return m.Release()
}

// ChunkSource cuts mappings into fixed-size chunks. Sequence positions are
// counted across every mapping passed to Split, so file boundaries are
// invisible downstream.
type ChunkSource struct {
	chunkSize int
	next      int
}

// NewChunkSource returns a ChunkSource producing chunks of at most chunkSize
// bytes.
func NewChunkSource(chunkSize int) *ChunkSource {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &ChunkSource{chunkSize: chunkSize}
}

// ChunkCount returns ceil(size / chunk size).
func (s *ChunkSource) ChunkCount(size int64) int {
	cs := int64(s.chunkSize)
	return int((size + cs - 1) / cs)
}

// Emitted returns how many chunks have been produced so far.
func (s *ChunkSource) Emitted() int {
	return s.next
}

// Split cuts m into chunks and assigns them the next sequence positions.
// Each chunk retains m; a zero-length mapping yields no chunks.
func (s *ChunkSource) Split(m *input.Mapping) []*Chunk {
	data := m.Bytes()
	count := s.ChunkCount(int64(len(data)))
	chunks := make([]*Chunk, 0, count)

	for i := 0; i < count; i++ {
		start := i * s.chunkSize
		end := start + s.chunkSize
		if end > len(data) {
			end = len(data)
		}

		m.Retain()
		chunks = append(chunks, &Chunk{
			Seq:     s.next,
			Data:    data[start:end:end],
			mapping: m,
		})
		s.next++
	}
	return chunks
}
