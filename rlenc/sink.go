package rlenc

import (
	"bufio"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"
)

// Compression names accepted by SinkOptions.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

const defaultSinkBufferSize = 64 * 1024

// SinkOptions configures the output side of the pipeline.
type SinkOptions struct {
	// Compression wraps the encoded stream; "" and "none" leave it raw.
	Compression string
	// Digest computes a sha256 digest of the encoded stream, before compression.
	Digest bool
	// BufferSize of the write buffer in front of the writer.
	BufferSize int
}

// Sink is the append-only writer the merger emits into. It buffers pairs,
// optionally digests them and optionally wraps them in a zstd frame.
type Sink struct {
	bw       *bufio.Writer
	zw       *zstd.Encoder
	digester digest.Digester
	written  int64
	closed   bool
}

// NewSink wraps w. Closing the Sink flushes it but never closes w.
func NewSink(w io.Writer, opts SinkOptions) (*Sink, error) {
	s := &Sink{}

	var out io.Writer = w
	switch opts.Compression {
	case "", CompressionNone:
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		s.zw = zw
		out = zw
	default:
		return nil, fmt.Errorf("unsupported compression %q", opts.Compression)
	}

	if opts.Digest {
		s.digester = digest.Canonical.Digester()
		out = io.MultiWriter(out, s.digester.Hash())
	}

	size := opts.BufferSize
	if size <= 0 {
		size = defaultSinkBufferSize
	}
	s.bw = bufio.NewWriterSize(out, size)
	return s, nil
}

// Write appends p to the stream.
func (s *Sink) Write(p []byte) (int, error) {
	if s.closed {
		return 0, fmt.Errorf("write to closed sink")
	}
	n, err := s.bw.Write(p)
	s.written += int64(n)
	return n, err
}

// Close flushes buffered pairs and ends the zstd frame, if any.
func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.bw.Flush(); err != nil {
		return err
	}
	if s.zw != nil {
		return s.zw.Close()
	}
	return nil
}

// Written returns the number of encoded bytes accepted, before compression.
func (s *Sink) Written() int64 {
	return s.written
}

// Digest returns the digest of the encoded stream, or "" when disabled.
// It is only complete after Close.
func (s *Sink) Digest() digest.Digest {
	if s.digester == nil {
		return ""
	}
	return s.digester.Digest()
}
