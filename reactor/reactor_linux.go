//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based reactor implementation and factory.

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// Backend names the readiness primitive in use.
const Backend = "epoll"

// linuxReactor is a level-triggered epoll reactor. User data lives beside
// the kernel interest list, keyed by fd.
type linuxReactor struct {
	epfd  int
	raw   []unix.EpollEvent
	udata map[int32]uintptr
}

// NewReactor constructs a new platform-specific EventReactor for Linux.
func NewReactor() (EventReactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &linuxReactor{epfd: epfd, udata: make(map[int32]uintptr)}, nil
}

// Register adds file descriptor to epoll.
func (r *linuxReactor) Register(fd uintptr, udata uintptr) error {
	event := &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, int(fd), event); err != nil {
		return err
	}
	r.udata[int32(fd)] = udata
	return nil
}

// Unregister removes file descriptor from epoll.
func (r *linuxReactor) Unregister(fd uintptr) error {
	delete(r.udata, int32(fd))
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, int(fd), nil)
}

// Wait waits for epoll events and fills the result into events slice.
func (r *linuxReactor) Wait(events []Event, timeout time.Duration) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	if cap(r.raw) < len(events) {
		r.raw = make([]unix.EpollEvent, len(events))
	}
	raw := r.raw[:len(events)]
	n, err := unix.EpollWait(r.epfd, raw, timeoutMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return n, err
	}
	for i := 0; i < n; i++ {
		events[i] = Event{
			Fd:       uintptr(raw[i].Fd),
			UserData: r.udata[raw[i].Fd],
		}
	}
	return n, nil
}

// Close closes the epoll instance.
func (r *linuxReactor) Close() error {
	return unix.Close(r.epfd)
}
