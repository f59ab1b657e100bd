package rlenc

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	encerrors "github.com/manisha-goyal/multithreaded-run-length-encoder/rlenc/errors"
	"github.com/manisha-goyal/multithreaded-run-length-encoder/rlenc/input"
	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runPipeline(t *testing.T, src input.Source, opts Options, paths ...string) ([]byte, *Stats) {
	t.Helper()
	p, err := NewPipeline(src, opts)
	require.NoError(t, err)

	var out bytes.Buffer
	stats, err := p.Run(context.Background(), paths, &out)
	require.NoError(t, err)
	return out.Bytes(), stats
}

// runny produces data with runs of varying length, including runs longer
// than a chunk and longer than MaxCount.
func runny(seed int64, size int) []byte {
	r := rand.New(rand.NewSource(seed))
	data := make([]byte, 0, size)
	for len(data) < size {
		symbol := byte('a' + r.Intn(3))
		length := 1 + r.Intn(20)
		if r.Intn(10) == 0 {
			length = 1 + r.Intn(9000)
		}
		for i := 0; i < length && len(data) < size; i++ {
			data = append(data, symbol)
		}
	}
	return data
}

func TestPipeline_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		files     map[string]string
		order     []string
		chunkSize int
		want      []byte
	}{
		{
			name:      "boundary merge across two chunks",
			files:     map[string]string{"in": "aaaaaaab"},
			order:     []string{"in"},
			chunkSize: 4,
			want:      []byte{0x61, 0x07, 0x62, 0x01},
		},
		{
			name:      "merge across files",
			files:     map[string]string{"a": "xx", "b": "xy"},
			order:     []string{"a", "b"},
			chunkSize: DefaultChunkSize,
			want:      []byte{'x', 3, 'y', 1},
		},
		{
			name:      "zero byte file contributes nothing",
			files:     map[string]string{"a": "pp", "empty": "", "b": "pq"},
			order:     []string{"a", "empty", "b"},
			chunkSize: DefaultChunkSize,
			want:      []byte{'p', 3, 'q', 1},
		},
		{
			name:      "only empty files",
			files:     map[string]string{"empty": ""},
			order:     []string{"empty", "empty"},
			chunkSize: DefaultChunkSize,
			want:      nil,
		},
		{
			name:      "same file twice",
			files:     map[string]string{"a": "ab"},
			order:     []string{"a", "a"},
			chunkSize: 1,
			want:      []byte{'a', 1, 'b', 1, 'a', 1, 'b', 1},
		},
	}

	for _, tt := range tests {
		for _, workers := range []int{1, 4} {
			t.Run(fmt.Sprintf("%s/j=%d", tt.name, workers), func(t *testing.T) {
				src := input.NewMockSource()
				for path, content := range tt.files {
					src.AddFile(path, []byte(content))
				}

				opts := DefaultOptions()
				opts.Workers = workers
				opts.ChunkSize = tt.chunkSize

				got, _ := runPipeline(t, src, opts, tt.order...)
				assert.Equal(t, tt.want, got)
			})
		}
	}
}

func TestPipeline_EquivalentAcrossWorkersAndChunking(t *testing.T) {
	inputs := [][]byte{runny(1, 50000), runny(2, 4096), {}, runny(3, 12345)}

	src := input.NewMockSource()
	var paths []string
	var concat []byte
	for i, data := range inputs {
		path := fmt.Sprintf("file%d", i)
		src.AddFile(path, data)
		paths = append(paths, path)
		concat = append(concat, data...)
	}

	for _, mode := range []CountMode{CountSplit, CountWrap} {
		want := EncodeBytes(concat, mode)

		for _, chunkSize := range []int{1, 7, 255, 256, DefaultChunkSize} {
			for _, workers := range []int{1, 2, 8} {
				t.Run(fmt.Sprintf("%v/chunk=%d/j=%d", mode, chunkSize, workers), func(t *testing.T) {
					opts := DefaultOptions()
					opts.Workers = workers
					opts.ChunkSize = chunkSize
					opts.CountMode = mode

					got, stats := runPipeline(t, src, opts, paths...)
					require.Equal(t, want, got)
					assert.Equal(t, int64(len(concat)), stats.InputBytes)
					assert.Equal(t, int64(len(want)), stats.OutputBytes)
					assert.Equal(t, int64(len(want)/2), stats.Pairs)

					if mode == CountSplit {
						assert.Equal(t, concat, expand(t, got))
					}
				})
			}
		}
	}
}

func TestPipeline_NoAdjacentPairsShareUnsaturatedRun(t *testing.T) {
	src := input.NewMockSource()
	src.AddFile("in", runny(9, 30000))

	opts := DefaultOptions()
	opts.Workers = 4
	opts.ChunkSize = 64
	got, _ := runPipeline(t, src, opts, "in")

	for i := 2; i < len(got); i += 2 {
		if got[i] == got[i-2] {
			assert.Equal(t, byte(MaxCount), got[i-1], "pair %d continues a run that was not saturated", i/2)
		}
	}
}

func TestPipeline_ReleasesMappings(t *testing.T) {
	src := input.NewMockSource()
	src.AddFile("a", runny(4, 10000))
	src.AddFile("b", runny(5, 10))

	opts := DefaultOptions()
	opts.Workers = 3
	opts.ChunkSize = 100
	runPipeline(t, src, opts, "a", "b")

	for _, m := range src.Opened() {
		assert.Equal(t, int64(0), m.Refs(), m.Path())
	}
	assert.Equal(t, 1, src.Released("a"))
	assert.Equal(t, 1, src.Released("b"))
}

func TestPipeline_Stats(t *testing.T) {
	src := input.NewMockSource()
	src.AddFile("a", []byte("aaaa"))
	src.AddFile("b", []byte("aaab"))

	var progress []int64
	opts := DefaultOptions()
	opts.ChunkSize = 4
	opts.Sink.Digest = true
	opts.Progress = func(current, total int64) {
		assert.Equal(t, int64(2), total)
		progress = append(progress, current)
	}

	got, stats := runPipeline(t, src, opts, "a", "b")
	assert.Equal(t, []byte{'a', 7, 'b', 1}, got)
	assert.Equal(t, 2, stats.TotalFiles)
	assert.Equal(t, 2, stats.TotalChunks)
	assert.Equal(t, int64(8), stats.InputBytes)
	assert.Equal(t, 1, stats.Workers)
	assert.Equal(t, digest.FromBytes(got), stats.Digest)
	assert.Equal(t, []int64{1, 2}, progress)
}

func TestPipeline_OpenErrorWritesNothing(t *testing.T) {
	src := input.NewMockSource()
	src.AddFile("a", []byte("aaaa"))

	p, err := NewPipeline(src, DefaultOptions())
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = p.Run(context.Background(), []string{"a", "missing"}, &out)
	require.Error(t, err)
	assert.Equal(t, "OPEN_FAILED", encerrors.GetErrorCode(err))
	assert.Equal(t, 0, out.Len())
	assert.Equal(t, 1, src.Released("a"))
}

func TestPipeline_NoInputs(t *testing.T) {
	p, err := NewPipeline(input.NewMockSource(), DefaultOptions())
	require.NoError(t, err)

	_, err = p.Run(context.Background(), nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, encerrors.ErrUsage)
}

func TestPipeline_Cancelled(t *testing.T) {
	src := input.NewMockSource()
	src.AddFile("a", runny(6, 1000))

	p, err := NewPipeline(src, DefaultOptions())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Run(ctx, []string{"a"}, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		valid  bool
	}{
		{name: "defaults", modify: func(*Options) {}, valid: true},
		{name: "zero jobs", modify: func(o *Options) { o.Workers = 0 }},
		{name: "negative jobs", modify: func(o *Options) { o.Workers = -3 }},
		{name: "zero chunk size", modify: func(o *Options) { o.ChunkSize = 0 }},
		{name: "unknown count mode", modify: func(o *Options) { o.CountMode = CountMode(9) }},
		{name: "zstd", modify: func(o *Options) { o.Sink.Compression = CompressionZstd }, valid: true},
		{name: "unknown compression", modify: func(o *Options) { o.Sink.Compression = "brotli" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			err := opts.Validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, encerrors.ErrUsage)
		})
	}
}

func TestPipeline_FileSource(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, bytes.Repeat([]byte{'k'}, 5000), 0644))
	require.NoError(t, os.WriteFile(b, []byte("kkl"), 0644))

	opts := DefaultOptions()
	opts.Workers = 2
	got, _ := runPipeline(t, input.NewFileSource(), opts, a, b)

	assert.Equal(t, EncodeBytes(append(bytes.Repeat([]byte{'k'}, 5002), 'l'), CountSplit), got)
}
