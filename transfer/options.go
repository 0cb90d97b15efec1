// File: transfer/options.go
// Author: momentics <momentics@gmail.com>
//
// Builder options and their defaults.

package transfer

import (
	"crypto/tls"
	"crypto/x509"
	"time"

	"github.com/momentics/hioload-batch/core/buffer"
	"github.com/momentics/hioload-batch/internal/logging"
)

// Defaults applied when a request or Options leaves a field unset.
const (
	DefaultTimeout         = 8 * time.Second
	DefaultMaxRedirects    = 2
	DefaultErrorBufferSize = 256
	DefaultMaxConnects     = 10

	// FormContentType is sent with POST bodies unless the caller overrides it.
	FormContentType = "application/x-www-form-urlencoded"
)

// Options tunes how requests are turned into transfers.
type Options struct {
	DefaultTimeout  time.Duration // whole-exchange timeout when a request sets none
	MaxRedirects    int           // redirect hops followed; 0 = default, negative = never follow
	ErrorBufferSize int           // error text is truncated to ErrorBufferSize-1 bytes
	MaxConnects     int           // idle connections kept per shared transport
	StrictTLS       bool          // fail transfers when TLS 1.2 cannot be pinned

	// TLSSupported reports whether the transport can negotiate a version.
	// Nil means the built-in capability check.
	TLSSupported func(version uint16) bool

	// Roots verifies peers of requests without a CA bundle. Nil means the
	// system pool.
	Roots *x509.CertPool

	Chunks *buffer.ChunkPool
	Logger *logging.Logger
}

// DefaultOptions returns the reference settings.
func DefaultOptions() Options {
	return Options{
		DefaultTimeout:  DefaultTimeout,
		MaxRedirects:    DefaultMaxRedirects,
		ErrorBufferSize: DefaultErrorBufferSize,
		MaxConnects:     DefaultMaxConnects,
	}
}

func (o Options) normalized() Options {
	if o.DefaultTimeout <= 0 {
		o.DefaultTimeout = DefaultTimeout
	}
	if o.MaxRedirects == 0 {
		o.MaxRedirects = DefaultMaxRedirects
	}
	if o.ErrorBufferSize <= 1 {
		o.ErrorBufferSize = DefaultErrorBufferSize
	}
	if o.MaxConnects <= 0 {
		o.MaxConnects = DefaultMaxConnects
	}
	if o.TLSSupported == nil {
		o.TLSSupported = TLSVersionSupported
	}
	if o.Chunks == nil {
		o.Chunks = buffer.NewChunkPool(buffer.DefaultChunkSize)
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	return o
}

// TLSVersionSupported reports whether crypto/tls can negotiate version.
func TLSVersionSupported(version uint16) bool {
	return version >= tls.VersionTLS10 && version <= tls.VersionTLS13
}
