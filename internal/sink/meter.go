package sink

import (
	"io"
	"sync/atomic"
)

// streamMeter measures one streamed report upload on both sides of the
// zstd encoder: the raw tap sits between the JSON encoder and the
// compressor, the compressed tap between the compressor and the pipe.
// The encode goroutine writes while Send reads the totals after the
// response arrives, so both counters are atomics.
type streamMeter struct {
	raw        atomic.Int64
	compressed atomic.Int64
}

func (m *streamMeter) rawTap(w io.Writer) io.Writer {
	return &meterTap{w: w, n: &m.raw}
}

func (m *streamMeter) compressedTap(w io.Writer) io.Writer {
	return &meterTap{w: w, n: &m.compressed}
}

// sizes returns the bytes seen so far before and after compression.
func (m *streamMeter) sizes() (raw, compressed int64) {
	return m.raw.Load(), m.compressed.Load()
}

type meterTap struct {
	w io.Writer
	n *atomic.Int64
}

func (t *meterTap) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	t.n.Add(int64(n))
	return n, err
}
