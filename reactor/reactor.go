// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral event reactor interface for readiness multiplexing.

package reactor

import "time"

// EventReactor defines basic reactor operations across OS platforms.
type EventReactor interface {
	// Register an FD for read-readiness notifications.
	Register(fd uintptr, userData uintptr) error

	// Unregister removes an FD previously registered.
	Unregister(fd uintptr) error

	// Wait blocks until events are available or timeout elapses, writing
	// them into the output slice. A negative timeout blocks indefinitely.
	// Returns number of events written or an error; an interrupted wait
	// reports zero events and no error.
	Wait(events []Event, timeout time.Duration) (n int, err error)

	// Close cleans up resources.
	Close() error
}

// Event contains event information returned by Wait call.
type Event struct {
	Fd       uintptr // File descriptor.
	UserData uintptr // User-provided data.
}

// Notifier is a pollable one-shot wake-up source: Signal makes its Fd
// readable until Drain consumes the pending wake-ups.
type Notifier interface {
	Fd() uintptr
	Signal() error
	Drain() (uint64, error)
	Close() error
}

// timeoutMillis converts a wait timeout into poll milliseconds, rounding
// sub-millisecond positive durations up so they do not busy-spin.
func timeoutMillis(d time.Duration) int {
	if d < 0 {
		return -1
	}
	ms := d / time.Millisecond
	if d%time.Millisecond != 0 {
		ms++
	}
	return int(ms)
}
