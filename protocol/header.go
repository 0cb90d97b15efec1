// File: protocol/header.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// HTTP header lines: the request-side header list handed to the transport,
// and the parser that turns a captured response-header blob into a map.

package protocol

import (
	"net/http"
	"strings"
)

// HeaderSpacing is the width of the conventional ": " separator stripped
// from parsed header values.
const HeaderSpacing = 2

// Default parse bounds. Lines exceeding them are skipped.
const (
	DefaultMaxHeaderKey   = 256
	DefaultMaxHeaderValue = 1024
)

// Bounds limits the size of parsed header keys and values.
type Bounds struct {
	MaxKey   int // key length must stay below MaxKey
	MaxValue int // raw value (separator included) must stay below MaxValue
}

// DefaultBounds returns the reference sizing.
func DefaultBounds() Bounds {
	return Bounds{MaxKey: DefaultMaxHeaderKey, MaxValue: DefaultMaxHeaderValue}
}

func (b Bounds) normalized() Bounds {
	if b.MaxKey <= 0 {
		b.MaxKey = DefaultMaxHeaderKey
	}
	if b.MaxValue <= HeaderSpacing {
		b.MaxValue = DefaultMaxHeaderValue
	}
	return b
}

// HeaderSet is an ordered list of raw "Name: value" lines.
type HeaderSet struct {
	lines    []string
	released bool
}

// NewHeaderSet returns an empty set with room for n lines.
func NewHeaderSet(n int) *HeaderSet {
	return &HeaderSet{lines: make([]string, 0, n)}
}

// Add appends "name: value".
func (h *HeaderSet) Add(name, value string) {
	h.lines = append(h.lines, name+": "+value)
}

// AddLine appends a raw line verbatim.
func (h *HeaderSet) AddLine(line string) {
	h.lines = append(h.lines, line)
}

// Lines returns the rendered lines in insertion order.
func (h *HeaderSet) Lines() []string {
	return h.lines
}

// Len reports the number of lines.
func (h *HeaderSet) Len() int {
	return len(h.lines)
}

// Release frees the list. It reports true only for the first call.
func (h *HeaderSet) Release() bool {
	if h.released {
		return false
	}
	h.released = true
	h.lines = nil
	return true
}

// Released reports whether Release has been called.
func (h *HeaderSet) Released() bool {
	return h.released
}

// Applied is the outcome of rendering header lines into an http.Header.
type Applied struct {
	Host    string          // override for the request Host, if any
	Removed map[string]bool // canonical names the caller asked to drop
}

// ApplyLines renders lines into dst using custom-header conventions:
//
//	"Name: value"  adds value
//	"Name:"        removes a header the transport would otherwise send
//	"Name;"        sends Name with an empty value
//
// Lines matching none of these forms are ignored. A Host line sets the
// request host instead of a header.
func ApplyLines(lines []string, dst http.Header) Applied {
	var out Applied
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			if n, rest, semi := strings.Cut(line, ";"); semi && strings.TrimSpace(rest) == "" && n != "" {
				dst.Add(n, "")
			}
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		value = strings.TrimSpace(value)
		key := http.CanonicalHeaderKey(name)
		if value == "" {
			dst.Del(key)
			if out.Removed == nil {
				out.Removed = make(map[string]bool)
			}
			out.Removed[key] = true
			continue
		}
		if key == "Host" {
			out.Host = value
			continue
		}
		dst.Add(key, value)
	}
	return out
}

// ParseHeaders splits a raw response-header blob into a lowercase-keyed map.
// Blank lines, lines without a colon, and lines exceeding bounds are
// skipped. Later occurrences of a key overwrite earlier ones.
func ParseHeaders(raw []byte, bounds Bounds) map[string]string {
	bounds = bounds.normalized()
	out := make(map[string]string)
	rest := string(raw)
	for rest != "" {
		var line string
		if i := strings.IndexAny(rest, "\r\n"); i >= 0 {
			line, rest = rest[:i], rest[i+1:]
		} else {
			line, rest = rest, ""
		}
		if line == "" {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			continue
		}
		token := line[colon:] // colon included, as the separator width assumes
		if colon >= bounds.MaxKey || len(token) >= bounds.MaxValue-HeaderSpacing {
			continue
		}
		value := ""
		if len(token) > HeaderSpacing {
			value = token[HeaderSpacing:]
		}
		out[strings.ToLower(line[:colon])] = value
	}
	return out
}
