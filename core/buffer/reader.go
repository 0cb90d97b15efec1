// File: core/buffer/reader.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reader feeds an in-memory body to the transport in whatever chunk sizes
// the transport asks for. The source slice is never resliced; only the
// offset moves, so the owner keeps the original allocation intact.

package buffer

import "io"

// Reader is a pull-style cursor over an immutable byte slice.
type Reader struct {
	src []byte
	off int
}

func newReader(src []byte) *Reader {
	return &Reader{src: src}
}

// NewReader returns a Reader over p without copying it.
func NewReader(p []byte) *Reader {
	return newReader(p)
}

// Drain returns up to max bytes from the front and advances the cursor.
// It returns an empty slice once the source is exhausted or max <= 0.
func (r *Reader) Drain(max int) []byte {
	if max <= 0 || r.off >= len(r.src) {
		return r.src[len(r.src):]
	}
	end := r.off + max
	if end > len(r.src) {
		end = len(r.src)
	}
	chunk := r.src[r.off:end:end]
	r.off = end
	return chunk
}

// Read implements io.Reader by copying the next len(p) bytes into p.
func (r *Reader) Read(p []byte) (int, error) {
	if r.off >= len(r.src) {
		return 0, io.EOF
	}
	n := copy(p, r.Drain(len(p)))
	return n, nil
}

// Remaining reports how many bytes are left to drain.
func (r *Reader) Remaining() int {
	return len(r.src) - r.off
}

// Len reports the total size of the source.
func (r *Reader) Len() int {
	return len(r.src)
}

// Rewind moves the cursor back to the start.
func (r *Reader) Rewind() {
	r.off = 0
}

// Clone returns an independent cursor over the same source, at its start.
func (r *Reader) Clone() *Reader {
	return newReader(r.src)
}

var _ io.Reader = (*Reader)(nil)
