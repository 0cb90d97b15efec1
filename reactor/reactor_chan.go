// File: reactor/reactor_chan.go
// Author: momentics <momentics@gmail.com>
//
// Channel-backed reactor and notifiers for platforms without a native
// readiness primitive. Descriptors are process-local tokens, not kernel fds.

package reactor

import (
	"errors"
	"sync"
	"time"
)

// ErrUnknownToken is returned when registering a token no live
// ChanNotifier owns.
var ErrUnknownToken = errors.New("reactor: unknown notifier token")

// tokens is the process-wide table of channel notifiers. Every Signal
// closes wake so blocked Wait calls rescan.
var tokens = struct {
	sync.Mutex
	next    uintptr
	pending map[uintptr]uint64
	wake    chan struct{}
}{
	next:    1,
	pending: make(map[uintptr]uint64),
	wake:    make(chan struct{}),
}

type chanNotifier struct {
	fd uintptr
}

// NewChanNotifier returns a Notifier whose Fd is a token understood only by
// a ChanReactor.
func NewChanNotifier() Notifier {
	tokens.Lock()
	defer tokens.Unlock()
	fd := tokens.next
	tokens.next++
	tokens.pending[fd] = 0
	return &chanNotifier{fd: fd}
}

func (n *chanNotifier) Fd() uintptr {
	return n.fd
}

func (n *chanNotifier) Signal() error {
	tokens.Lock()
	defer tokens.Unlock()
	if _, ok := tokens.pending[n.fd]; !ok {
		return ErrUnknownToken
	}
	tokens.pending[n.fd]++
	close(tokens.wake)
	tokens.wake = make(chan struct{})
	return nil
}

func (n *chanNotifier) Drain() (uint64, error) {
	tokens.Lock()
	defer tokens.Unlock()
	c, ok := tokens.pending[n.fd]
	if !ok {
		return 0, ErrUnknownToken
	}
	tokens.pending[n.fd] = 0
	return c, nil
}

func (n *chanNotifier) Close() error {
	tokens.Lock()
	defer tokens.Unlock()
	delete(tokens.pending, n.fd)
	return nil
}

type chanReactor struct {
	udata map[uintptr]uintptr
}

// NewChanReactor returns a level-triggered EventReactor over channel
// notifiers.
func NewChanReactor() EventReactor {
	return &chanReactor{udata: make(map[uintptr]uintptr)}
}

func (r *chanReactor) Register(fd uintptr, udata uintptr) error {
	tokens.Lock()
	_, ok := tokens.pending[fd]
	tokens.Unlock()
	if !ok {
		return ErrUnknownToken
	}
	r.udata[fd] = udata
	return nil
}

func (r *chanReactor) Unregister(fd uintptr) error {
	delete(r.udata, fd)
	return nil
}

func (r *chanReactor) Wait(events []Event, timeout time.Duration) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	var expired <-chan time.Time
	if ms := timeoutMillis(timeout); ms >= 0 {
		t := time.NewTimer(time.Duration(ms) * time.Millisecond)
		defer t.Stop()
		expired = t.C
	}
	for {
		tokens.Lock()
		n := 0
		for fd, udata := range r.udata {
			if n == len(events) {
				break
			}
			if tokens.pending[fd] > 0 {
				events[n] = Event{Fd: fd, UserData: udata}
				n++
			}
		}
		wake := tokens.wake
		tokens.Unlock()
		if n > 0 {
			return n, nil
		}
		select {
		case <-wake:
		case <-expired:
			return 0, nil
		}
	}
}

func (r *chanReactor) Close() error {
	r.udata = nil
	return nil
}
