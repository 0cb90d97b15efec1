// File: core/buffer/growable.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Growable is an append-only byte accumulator. Transfers write response
// bodies and response headers into it; request bodies are streamed out of it
// through a Reader. Designed for single-goroutine use; no locks.

package buffer

import "io"

// Growable accumulates bytes. The zero value is an empty buffer ready to use.
type Growable struct {
	data []byte
}

// NewGrowable returns a buffer holding a copy of p.
func NewGrowable(p []byte) *Growable {
	g := &Growable{}
	g.Append(p)
	return g
}

// Append copies p to the end of the buffer. Growth failures are fatal to the
// process, so Append never reports an error.
func (g *Growable) Append(p []byte) {
	g.data = append(g.data, p...)
}

// AppendString is Append for string input.
func (g *Growable) AppendString(s string) {
	g.data = append(g.data, s...)
}

// Write implements io.Writer; it always consumes all of p.
func (g *Growable) Write(p []byte) (int, error) {
	g.Append(p)
	return len(p), nil
}

// WriteString implements io.StringWriter.
func (g *Growable) WriteString(s string) (int, error) {
	g.AppendString(s)
	return len(s), nil
}

// Len reports the number of accumulated bytes.
func (g *Growable) Len() int {
	return len(g.data)
}

// Bytes returns the accumulated bytes. The slice aliases the buffer and is
// valid until the next Append.
func (g *Growable) Bytes() []byte {
	return g.data
}

// Copy returns a standalone copy of the accumulated bytes, or nil when empty.
func (g *Growable) Copy() []byte {
	if len(g.data) == 0 {
		return nil
	}
	out := make([]byte, len(g.data))
	copy(out, g.data)
	return out
}

// String returns the contents as a string.
func (g *Growable) String() string {
	return string(g.data)
}

// Reset empties the buffer, keeping its capacity.
func (g *Growable) Reset() {
	g.data = g.data[:0]
}

// NewReader returns a streaming cursor over the current contents.
func (g *Growable) NewReader() *Reader {
	return newReader(g.data)
}

var (
	_ io.Writer       = (*Growable)(nil)
	_ io.StringWriter = (*Growable)(nil)
)
