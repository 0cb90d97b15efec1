// File: api/shutdown.go
// Package api defines the unified shutdown contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown is implemented by components holding process-wide
// resources.
type GracefulShutdown interface {
	// Shutdown stops the component and releases its resources. It is safe
	// to call more than once.
	Shutdown() error
}
