// File: core/buffer/chunks.go
// Author: momentics <momentics@gmail.com>
//
// Pooled fixed-size chunks used as copy scratch space when draining response
// bodies into Growable buffers.

package buffer

import (
	"io"
	"sync"
)

// DefaultChunkSize is the size of pooled copy chunks.
const DefaultChunkSize = 32 * 1024

// ChunkPool hands out fixed-size scratch slices.
type ChunkPool struct {
	pool sync.Pool
	size int
}

// NewChunkPool returns a pool of size-byte chunks. Non-positive sizes fall
// back to DefaultChunkSize.
func NewChunkPool(size int) *ChunkPool {
	if size <= 0 {
		size = DefaultChunkSize
	}
	p := &ChunkPool{size: size}
	// Pointer-to-slice keeps Put from allocating.
	p.pool.New = func() any {
		buf := make([]byte, size)
		return &buf
	}
	return p
}

// Get returns a chunk of the pool's size.
func (p *ChunkPool) Get() []byte {
	return *p.pool.Get().(*[]byte)
}

// Put returns a chunk to the pool. Foreign-sized slices are dropped.
func (p *ChunkPool) Put(buf []byte) {
	if cap(buf) != p.size {
		return
	}
	buf = buf[:p.size]
	p.pool.Put(&buf)
}

// Size reports the chunk size.
func (p *ChunkPool) Size() int {
	return p.size
}

// CopyInto drains src into dst using a pooled chunk.
func (p *ChunkPool) CopyInto(dst io.Writer, src io.Reader) (int64, error) {
	buf := p.Get()
	n, err := io.CopyBuffer(dst, src, buf)
	p.Put(buf)
	return n, err
}

var defaultChunks = NewChunkPool(DefaultChunkSize)

// CopyInto drains src into dst using the package-wide chunk pool.
func CopyInto(dst io.Writer, src io.Reader) (int64, error) {
	return defaultChunks.CopyInto(dst, src)
}
