package rlenc

// Run is a maximal sequence of identical bytes. Count is kept full width
// inside the pipeline; the 8-bit output width is applied by the merger.
type Run struct {
	Symbol byte
	Count  int
}

// EncodedChunk holds the runs of one chunk, in order.
type EncodedChunk struct {
	Seq  int
	Runs []Run
}

// EncodeChunk run-length encodes a single chunk. Runs never extend past the
// end of the chunk; joining runs across chunks is the merger's job.
func EncodeChunk(c *Chunk) *EncodedChunk {
	return &EncodedChunk{
		Seq:  c.Seq,
		Runs: Encode(c.Data),
	}
}

// Encode is greedy left-to-right maximal-run encoding of data.
func Encode(data []byte) []Run {
	if len(data) == 0 {
		return nil
	}

	runs := make([]Run, 0, 16)
	for i := 0; i < len(data); {
		symbol := data[i]
		length := 1
		for i+length < len(data) && data[i+length] == symbol {
			length++
		}
		runs = append(runs, Run{Symbol: symbol, Count: length})
		i += length
	}
	return runs
}

// EncodeBytes encodes data in one sequential pass and returns it in wire
// form. Pipeline output for any chunking and worker count equals this.
func EncodeBytes(data []byte, mode CountMode) []byte {
	return AppendRuns(nil, Encode(data), mode)
}
