//go:build darwin || dragonfly || freebsd || netbsd || openbsd
// +build darwin dragonfly freebsd netbsd openbsd

// File: reactor/reactor_kqueue.go
// Author: momentics <momentics@gmail.com>
//
// kqueue(2)-based reactor for darwin and the BSDs.

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// Backend names the readiness primitive in use.
const Backend = "kqueue"

// kqueueReactor watches EVFILT_READ filters. Filters are level-triggered
// unless EV_CLEAR is set, matching the epoll reactor.
type kqueueReactor struct {
	kq    int
	raw   []unix.Kevent_t
	udata map[int]uintptr
}

// NewReactor constructs a kqueue-backed EventReactor.
func NewReactor() (EventReactor, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(kq)
	return &kqueueReactor{kq: kq, udata: make(map[int]uintptr)}, nil
}

func (r *kqueueReactor) change(fd uintptr, flags int) error {
	var ev unix.Kevent_t
	unix.SetKevent(&ev, int(fd), unix.EVFILT_READ, flags)
	_, err := unix.Kevent(r.kq, []unix.Kevent_t{ev}, nil, nil)
	return err
}

// Register adds a read filter for fd.
func (r *kqueueReactor) Register(fd uintptr, udata uintptr) error {
	if err := r.change(fd, unix.EV_ADD); err != nil {
		return err
	}
	r.udata[int(fd)] = udata
	return nil
}

// Unregister deletes the read filter of fd.
func (r *kqueueReactor) Unregister(fd uintptr) error {
	delete(r.udata, int(fd))
	return r.change(fd, unix.EV_DELETE)
}

// Wait collects ready filters into events.
func (r *kqueueReactor) Wait(events []Event, timeout time.Duration) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	if cap(r.raw) < len(events) {
		r.raw = make([]unix.Kevent_t, len(events))
	}
	raw := r.raw[:len(events)]
	var ts *unix.Timespec
	if ms := timeoutMillis(timeout); ms >= 0 {
		t := unix.NsecToTimespec(int64(ms) * int64(time.Millisecond))
		ts = &t
	}
	n, err := unix.Kevent(r.kq, nil, raw, ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return n, err
	}
	for i := 0; i < n; i++ {
		fd := int(raw[i].Ident)
		events[i] = Event{Fd: uintptr(fd), UserData: r.udata[fd]}
	}
	return n, nil
}

// Close closes the kqueue descriptor.
func (r *kqueueReactor) Close() error {
	return unix.Close(r.kq)
}
