// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for the multiplexer contract.

package fake

import (
	"errors"
	"sync"
	"time"

	"github.com/momentics/hioload-batch/api"
	"github.com/momentics/hioload-batch/transfer"
	"github.com/momentics/hioload-batch/transport"
)

// ErrScripted is returned by a scripted failure that has no explicit error.
var ErrScripted = errors.New("fake: scripted failure")

// fdBase offsets fake descriptors away from anything real.
const fdBase = 1 << 16

type entry struct {
	h        *transfer.Handle
	fd       uintptr
	performs int
	finished bool
}

type failure struct {
	on  int // 1-based call number, 0 = never
	err error
}

// hit returns the scripted error for call, nil when call is not scripted.
func (f failure) hit(call int) error {
	if f.on == 0 || call != f.on {
		return nil
	}
	if f.err == nil {
		return ErrScripted
	}
	return f.err
}

// Multiplexer is a scripted, in-memory multiplexer. By default every
// attached transfer completes on the first Perform with status 200 and no
// body; setters change how long transfers stay running, whether they
// really execute, and which call fails.
type Multiplexer struct {
	mu sync.Mutex

	hold          int
	status        int
	execute       bool
	suggest       time.Duration
	invalidSelect bool
	reject        map[string]error

	fdsetFail   failure
	timeoutFail failure
	waitFail    failure

	entries map[*transfer.Handle]*entry
	order   []*entry
	msgs    []transport.Message
	nextFd  uintptr
	closed  bool

	calls   Calls
	handles []*transfer.Handle
}

// Calls counts method invocations.
type Calls struct {
	Add, Remove, Perform, FDSet, Timeout, Wait, Close int
	PeakAttached                                       int
}

// NewMultiplexer creates a fake that completes transfers immediately.
func NewMultiplexer() *Multiplexer {
	return &Multiplexer{
		status:  200,
		suggest: -1,
		reject:  make(map[string]error),
		entries: make(map[*transfer.Handle]*entry),
	}
}

// SetHold keeps each transfer running for n Perform calls before it completes.
func (m *Multiplexer) SetHold(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hold = n
}

// SetStatus sets the status recorded for transfers that are not executed.
func (m *Multiplexer) SetStatus(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = code
}

// SetExecute makes Perform run each finishing transfer for real.
func (m *Multiplexer) SetExecute(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.execute = on
}

// SetTimeout sets the hint returned by Timeout.
func (m *Multiplexer) SetTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suggest = d
}

// Reject makes Add fail for the request with key.
func (m *Multiplexer) Reject(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		err = ErrScripted
	}
	m.reject[key] = err
}

// FailFDSet makes the call-th FDSet return err.
func (m *Multiplexer) FailFDSet(call int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fdsetFail = failure{on: call, err: err}
}

// FailTimeout makes the call-th Timeout return err.
func (m *Multiplexer) FailTimeout(call int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeoutFail = failure{on: call, err: err}
}

// FailWait makes the call-th Wait return err.
func (m *Multiplexer) FailWait(call int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waitFail = failure{on: call, err: err}
	m.invalidSelect = false
}

// InvalidSelect makes the call-th Wait report a negative ready count
// without an error.
func (m *Multiplexer) InvalidSelect(call int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waitFail = failure{on: call, err: nil}
	m.invalidSelect = true
}

// Add implements pool.Multiplexer.
func (m *Multiplexer) Add(h *transfer.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Add++
	if m.closed {
		return api.ErrMultiplexerClosed
	}
	if err, ok := m.reject[h.Key()]; ok {
		return err
	}
	if _, dup := m.entries[h]; dup {
		return api.ErrInvalidArgument
	}
	m.nextFd++
	e := &entry{h: h, fd: fdBase + m.nextFd}
	m.entries[h] = e
	m.order = append(m.order, e)
	m.handles = append(m.handles, h)
	if n := len(m.entries); n > m.calls.PeakAttached {
		m.calls.PeakAttached = n
	}
	return nil
}

// Remove implements pool.Multiplexer.
func (m *Multiplexer) Remove(h *transfer.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Remove++
	e, ok := m.entries[h]
	if !ok {
		return api.ErrUnknownTransfer
	}
	delete(m.entries, h)
	for i, x := range m.order {
		if x == e {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Perform implements pool.Multiplexer.
func (m *Multiplexer) Perform() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Perform++
	if m.closed {
		return 0, api.ErrMultiplexerClosed
	}
	running := 0
	for _, e := range m.order {
		if e.finished {
			continue
		}
		e.performs++
		if e.performs <= m.hold {
			running++
			continue
		}
		if m.execute {
			e.h.Execute()
		} else {
			e.h.Complete(m.status, nil)
		}
		e.finished = true
		m.msgs = append(m.msgs, transport.Message{Handle: e.h, Err: e.h.Err()})
	}
	return running, nil
}

// FDSet implements pool.Multiplexer.
func (m *Multiplexer) FDSet() ([]uintptr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.FDSet++
	if err := m.fdsetFail.hit(m.calls.FDSet); err != nil {
		return nil, err
	}
	var fds []uintptr
	for _, e := range m.order {
		if !e.finished {
			fds = append(fds, e.fd)
		}
	}
	return fds, nil
}

// Timeout implements pool.Multiplexer.
func (m *Multiplexer) Timeout() (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Timeout++
	if err := m.timeoutFail.hit(m.calls.Timeout); err != nil {
		return 0, err
	}
	return m.suggest, nil
}

// Wait implements pool.Multiplexer. It never blocks.
func (m *Multiplexer) Wait(fds []uintptr, _ time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Wait++
	if m.invalidSelect && m.waitFail.on == m.calls.Wait {
		return -1, nil
	}
	if err := m.waitFail.hit(m.calls.Wait); err != nil {
		return -1, err
	}
	return 0, nil
}

// InfoRead implements pool.Multiplexer.
func (m *Multiplexer) InfoRead() (transport.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.msgs) == 0 {
		return transport.Message{}, false
	}
	msg := m.msgs[0]
	m.msgs = m.msgs[1:]
	return msg, true
}

// Close implements pool.Multiplexer.
func (m *Multiplexer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Close++
	m.closed = true
	return nil
}

// Calls returns the call counters.
func (m *Multiplexer) Calls() Calls {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Attached reports how many transfers are still attached.
func (m *Multiplexer) Attached() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Handles returns every transfer ever attached, in attach order.
func (m *Multiplexer) Handles() []*transfer.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*transfer.Handle(nil), m.handles...)
}
