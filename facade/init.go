// File: facade/init.go
// Author: momentics <momentics@gmail.com>
//
// Process-wide initialization. Init and Cleanup are reference counted:
// the environment is probed on the first Init and dropped on the last
// Cleanup.

package facade

import (
	"crypto/tls"
	"crypto/x509"
	"runtime"
	"sync"

	"github.com/momentics/hioload-batch/transfer"
)

// Environment describes what the process can do, as probed by Init.
type Environment struct {
	TLS12       bool           // TLS 1.2 can be pinned as the minimum version
	SystemRoots *x509.CertPool // nil when the system pool is unavailable
	RootsErr    error
	GoVersion   string
}

var global struct {
	mu   sync.Mutex
	refs int
	env  Environment
}

// Init acquires the process-wide environment.
func Init() Environment {
	global.mu.Lock()
	defer global.mu.Unlock()
	if global.refs == 0 {
		roots, err := x509.SystemCertPool()
		global.env = Environment{
			TLS12:       transfer.TLSVersionSupported(tls.VersionTLS12),
			SystemRoots: roots,
			RootsErr:    err,
			GoVersion:   runtime.Version(),
		}
	}
	global.refs++
	return global.env
}

// Cleanup releases one Init. Extra calls are ignored.
func Cleanup() {
	global.mu.Lock()
	defer global.mu.Unlock()
	if global.refs == 0 {
		return
	}
	global.refs--
	if global.refs == 0 {
		global.env = Environment{}
	}
}

// Initialized reports whether at least one Init is outstanding.
func Initialized() bool {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.refs > 0
}
