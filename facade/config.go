// File: facade/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package facade

import (
	"io"
	"time"

	"github.com/momentics/hioload-batch/core/buffer"
	"github.com/momentics/hioload-batch/internal/logging"
	"github.com/momentics/hioload-batch/pool"
	"github.com/momentics/hioload-batch/protocol"
	"github.com/momentics/hioload-batch/transfer"
)

// Config holds client parameters. Fields also exposed as runtime overrides
// through Control (api.Config* keys) can be changed between batches.
type Config struct {
	MaxConcurrency  int             // concurrency window cap
	DefaultTimeout  time.Duration   // whole-exchange timeout for requests that set none
	DefaultWait     time.Duration   // readiness wait when the engine gives no hint
	MaxRedirects    int             // redirect hops followed; negative = never follow
	HeaderBounds    protocol.Bounds // response header parsing limits
	ErrorBufferSize int             // per-transfer error text is cut to ErrorBufferSize-1 bytes
	MaxConnects     int             // idle connections per run; 0 = the window
	StrictTLS       bool            // fail https transfers when TLS 1.2 cannot be pinned
	ChunkSize       int             // response copy chunk size
	LogLevel        int             // 0 quiet, 1 errors, 2 info, 3 debug
	LogOutput       io.Writer       // nil = stderr
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrency:  pool.DefaultMaxConcurrency,   // 10 transfers at once
		DefaultTimeout:  transfer.DefaultTimeout,      // 8 seconds
		DefaultWait:     pool.DefaultWait,             // 100 ms
		MaxRedirects:    transfer.DefaultMaxRedirects, // 2 hops
		HeaderBounds:    protocol.DefaultBounds(),     // 256 / 1024
		ErrorBufferSize: transfer.DefaultErrorBufferSize,
		ChunkSize:       buffer.DefaultChunkSize,
		LogLevel:        logging.DefaultVerbosity,
	}
}
