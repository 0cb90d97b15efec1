//go:build !linux && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd
// +build !linux,!darwin,!dragonfly,!freebsd,!netbsd,!openbsd

// File: reactor/reactor_other.go
// Author: momentics <momentics@gmail.com>
//
// Platforms without epoll or kqueue fall back to channel notifiers.

package reactor

// Backend names the readiness primitive in use.
const Backend = "channel"

// NewReactor returns a channel-backed reactor.
func NewReactor() (EventReactor, error) {
	return NewChanReactor(), nil
}

// NewNotifier returns a channel-backed notifier.
func NewNotifier() (Notifier, error) {
	return NewChanNotifier(), nil
}
