// File: pool/config.go
// Author: momentics <momentics@gmail.com>
//
// Scheduler configuration and the multiplexer contract it drives.

package pool

import (
	"time"

	"github.com/momentics/hioload-batch/control"
	"github.com/momentics/hioload-batch/internal/logging"
	"github.com/momentics/hioload-batch/protocol"
	"github.com/momentics/hioload-batch/transfer"
	"github.com/momentics/hioload-batch/transport"
)

// Defaults.
const (
	DefaultMaxConcurrency = 10
	DefaultWait           = 100 * time.Millisecond
)

// Metric keys reported per run.
const (
	MetricActive     = "pool.active"
	MetricPeakActive = "pool.peak_active"
	MetricCompleted  = "pool.completed"
	MetricFailed     = "pool.failed"
	MetricAborted    = "pool.aborted"
	MetricBatches    = "pool.batches"
)

// Multiplexer is the transport engine the scheduler drives. Every method is
// called from the scheduler goroutine only.
type Multiplexer interface {
	Add(h *transfer.Handle) error
	Remove(h *transfer.Handle) error
	// Perform advances transfers without blocking and reports how many
	// attached transfers are not terminal yet.
	Perform() (running int, err error)
	FDSet() ([]uintptr, error)
	// Timeout suggests the next wait; negative means no suggestion.
	Timeout() (time.Duration, error)
	Wait(fds []uintptr, timeout time.Duration) (ready int, err error)
	InfoRead() (transport.Message, bool)
	Close() error
}

// MultiplexerFactory creates the multiplexer for one run.
type MultiplexerFactory func(window int) (Multiplexer, error)

// Config tunes a TransferPool.
type Config struct {
	MaxConcurrency int           // window cap
	DefaultWait    time.Duration // wait used when the multiplexer has no timeout hint
	HeaderBounds   protocol.Bounds

	// Transfer configures the builder; MaxConnects defaults to the window.
	Transfer transfer.Options

	Metrics        *control.MetricsRegistry
	Logger         *logging.Logger
	NewMultiplexer MultiplexerFactory
}

// DefaultConfig returns the reference settings.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: DefaultMaxConcurrency,
		DefaultWait:    DefaultWait,
		HeaderBounds:   protocol.DefaultBounds(),
		Transfer:       transfer.DefaultOptions(),
	}
}

func (c Config) normalized() Config {
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.DefaultWait <= 0 {
		c.DefaultWait = DefaultWait
	}
	if c.HeaderBounds.MaxKey <= 0 || c.HeaderBounds.MaxValue <= protocol.HeaderSpacing {
		c.HeaderBounds = protocol.DefaultBounds()
	}
	if c.Metrics == nil {
		c.Metrics = control.NewMetricsRegistry()
	}
	if c.Logger == nil {
		c.Logger = logging.Discard()
	}
	if c.Transfer.Logger == nil {
		c.Transfer.Logger = c.Logger
	}
	if c.NewMultiplexer == nil {
		log := c.Logger
		c.NewMultiplexer = func(int) (Multiplexer, error) {
			m, err := transport.NewMulti(transport.Options{Logger: log})
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	return c
}
