package gen

import (
	"fmt"
	"io"
	"math"
)

// Quantize maps a floating sample in [-1, +1] to an unsigned 8-bit code.
// Out-of-range inputs saturate; codes never wrap.
func Quantize(v float64) byte {
	c := math.Round((v + 1.0) * 127.5)
	if c < 0 {
		return 0
	}
	if c > 255 {
		return 255
	}
	return byte(c)
}

// BlockWriter accumulates quantized I/Q byte pairs into fixed-size blocks
// and writes each full block to the sink in a single call. The original
// tool silently dropped a partially filled final block; here Flush delivers
// it explicitly at end of stream.
type BlockWriter struct {
	w     io.Writer
	block []byte
	pos   int
}

// NewBlockWriter creates a block writer with the given block size in bytes.
// Blocks hold whole I/Q byte pairs: odd sizes are rounded down, and sizes
// below one pair are raised to a single pair.
func NewBlockWriter(w io.Writer, blockSize int) *BlockWriter {
	blockSize -= blockSize % 2
	if blockSize < 2 {
		blockSize = 2
	}
	return &BlockWriter{
		w:     w,
		block: make([]byte, blockSize),
	}
}

// WriteSample quantizes one I/Q pair and appends the two bytes, I first.
// A block that fills up is written out before WriteSample returns.
func (b *BlockWriter) WriteSample(i, q float64) error {
	b.block[b.pos] = Quantize(i)
	b.block[b.pos+1] = Quantize(q)
	b.pos += 2
	if b.pos == len(b.block) {
		return b.flushBlock(len(b.block))
	}
	return nil
}

// Flush writes any pending partial block to the sink. Call once at end of
// stream; a no-op when the block is empty.
func (b *BlockWriter) Flush() error {
	if b.pos == 0 {
		return nil
	}
	return b.flushBlock(b.pos)
}

func (b *BlockWriter) flushBlock(n int) error {
	wrote, err := b.w.Write(b.block[:n])
	if err != nil {
		return fmt.Errorf("gen: write output block: %w", err)
	}
	if wrote != n {
		return fmt.Errorf("gen: short write: %d of %d bytes", wrote, n)
	}
	b.pos = 0
	return nil
}
