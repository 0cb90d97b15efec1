// File: facade/client.go
// Unified facade layer for hioload-batch.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Client aggregates the control surface, the process environment and the
// transfer pool configuration behind one type. Each Do builds a pool from
// the configuration plus current runtime overrides, so overrides set
// through Control apply from the next batch on.

package facade

import (
	"crypto/tls"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-batch/adapters"
	"github.com/momentics/hioload-batch/api"
	"github.com/momentics/hioload-batch/core/buffer"
	"github.com/momentics/hioload-batch/internal/logging"
	"github.com/momentics/hioload-batch/pool"
	"github.com/momentics/hioload-batch/transfer"
)

// ErrClosed is returned by Do after Close.
var ErrClosed = errors.New("facade: client is closed")

// Client runs batches. It is safe for concurrent use; concurrent Do calls
// run independent pools.
type Client struct {
	cfg     Config
	env     Environment
	control *adapters.ControlAdapter
	chunks  *buffer.ChunkPool

	// NewMultiplexer overrides the engine used by every run; tests use it to
	// inject faults.
	NewMultiplexer pool.MultiplexerFactory

	logMu sync.Mutex
	log   *logging.Logger

	running atomic.Int64
	mu      sync.RWMutex
	closed  bool
}

// Ensure compliance with api.GracefulShutdown.
var _ api.GracefulShutdown = (*Client)(nil)

// New constructs a Client and acquires the process-wide environment.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxConcurrency < 0 || cfg.ErrorBufferSize < 0 || cfg.MaxConnects < 0 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "negative limit in client configuration").
			WithContext("max_concurrency", cfg.MaxConcurrency).
			WithContext("error_buffer_size", cfg.ErrorBufferSize).
			WithContext("max_connects", cfg.MaxConnects)
	}
	c := &Client{
		cfg:     *cfg,
		env:     Init(),
		control: adapters.NewControlAdapter(),
		chunks:  buffer.NewChunkPool(cfg.ChunkSize),
	}

	log := c.logger()
	if !c.env.TLS12 {
		log.Fatalf("New", "TLS 1.2 is not available (%s); https transfers use transport defaults", c.env.GoVersion)
	}
	if c.env.RootsErr != nil {
		log.Errorf("New", "system certificate pool unavailable: %v", c.env.RootsErr)
	}

	c.control.RegisterDebugProbe("client.running_batches", func() any { return c.running.Load() })
	c.control.RegisterDebugProbe("env.tls12", func() any { return c.env.TLS12 })
	c.control.RegisterDebugProbe("env.go", func() any { return c.env.GoVersion })
	c.control.OnReload(func() {
		c.logger().Infof("OnReload", "runtime overrides updated: %v", c.control.GetConfig())
	})
	return c, nil
}

// Do runs batch and returns once every request in it is terminal. See
// pool.TransferPool.Run for the error contract.
func (c *Client) Do(batch api.Batch) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	c.running.Add(1)
	defer c.running.Add(-1)
	return pool.New(c.poolConfig()).Run(batch)
}

// poolConfig merges the static configuration with runtime overrides.
func (c *Client) poolConfig() pool.Config {
	store := c.control.Config()
	log := c.logger()

	tlsOK := c.env.TLS12
	topts := transfer.Options{
		DefaultTimeout:  store.Duration(api.ConfigDefaultTimeout, c.cfg.DefaultTimeout),
		MaxRedirects:    c.cfg.MaxRedirects,
		ErrorBufferSize: c.cfg.ErrorBufferSize,
		MaxConnects:     c.cfg.MaxConnects,
		StrictTLS:       store.Bool(api.ConfigStrictTLS, c.cfg.StrictTLS),
		TLSSupported: func(v uint16) bool {
			if v == tls.VersionTLS12 {
				return tlsOK
			}
			return transfer.TLSVersionSupported(v)
		},
		Roots:  c.env.SystemRoots,
		Chunks: c.chunks,
		Logger: log,
	}
	return pool.Config{
		MaxConcurrency: store.Int(api.ConfigMaxConcurrency, c.cfg.MaxConcurrency),
		DefaultWait:    store.Duration(api.ConfigDefaultWait, c.cfg.DefaultWait),
		HeaderBounds:   c.cfg.HeaderBounds,
		Transfer:       topts,
		Metrics:        c.control.Metrics(),
		Logger:         log,
		NewMultiplexer: c.NewMultiplexer,
	}
}

// logger returns the client logger, rebuilt when the level override changes.
func (c *Client) logger() *logging.Logger {
	level := c.control.Config().Int(api.ConfigLogLevel, c.cfg.LogLevel)
	c.logMu.Lock()
	defer c.logMu.Unlock()
	if c.log == nil || c.log.Verbosity() != level {
		c.log = logging.New(c.cfg.LogOutput, level)
	}
	return c.log
}

// Control returns the runtime override and telemetry interface.
func (c *Client) Control() api.Control {
	return c.control
}

// Debug returns the probe registry.
func (c *Client) Debug() api.Debug {
	return c.control.Debug()
}

// Stats returns pool metrics merged with debug probe output.
func (c *Client) Stats() map[string]any {
	return c.control.Stats()
}

// Environment returns the environment probed at construction.
func (c *Client) Environment() Environment {
	return c.env
}

// Close waits for running batches and releases the process-wide
// environment. Subsequent calls are no-ops.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	Cleanup()
	return nil
}

// Shutdown implements api.GracefulShutdown by delegating to Close().
func (c *Client) Shutdown() error {
	return c.Close()
}
