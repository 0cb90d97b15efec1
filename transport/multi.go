// File: transport/multi.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Multi drives many transfers from one owning goroutine. Each exchange runs
// on its own goroutine over the runtime netpoller; when it finishes it
// signals a notifier registered with the reactor, so the owner can block in
// Wait until some transfer needs attention.

package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/eapache/queue"
	"golang.org/x/sync/semaphore"

	"github.com/momentics/hioload-batch/api"
	"github.com/momentics/hioload-batch/internal/logging"
	"github.com/momentics/hioload-batch/reactor"
	"github.com/momentics/hioload-batch/transfer"
)

// minPoll is suggested when a running transfer is past its deadline but has
// not reported yet.
const minPoll = time.Millisecond

// Message reports a transfer that reached its terminal state.
type Message struct {
	Handle *transfer.Handle
	Err    error
}

// Options tunes a Multi.
type Options struct {
	// MaxTotal caps exchanges in flight at once; 0 means no cap. Transfers
	// over the cap stay pending until a slot frees up.
	MaxTotal int
	Logger   *logging.Logger
}

type entry struct {
	h        *transfer.Handle
	n        reactor.Notifier
	started  bool
	finished bool
	deadline time.Time

	mu     sync.Mutex
	closed bool
}

// signal wakes the owner unless the notifier is already gone. The lock keeps
// a late signal from landing on a reused descriptor.
func (e *entry) signal() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	return e.n.Signal()
}

func (e *entry) close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.n.Close()
}

// Multi is the multiplexing engine. All methods except the transfer
// goroutines it spawns must be called from a single goroutine.
type Multi struct {
	r      reactor.EventReactor
	notify func() (reactor.Notifier, error)
	log    *logging.Logger
	slots  *semaphore.Weighted
	events []reactor.Event

	entries map[*transfer.Handle]*entry
	byFd    map[uintptr]*entry
	pending []*entry
	running []*entry
	msgs    *queue.Queue

	wg     sync.WaitGroup
	closed bool
}

// NewMulti creates a Multi backed by a fresh reactor.
func NewMulti(opts Options) (*Multi, error) {
	r, err := reactor.NewReactor()
	if err != nil {
		return nil, err
	}
	return newMulti(r, reactor.NewNotifier, opts), nil
}

func newMulti(r reactor.EventReactor, notify func() (reactor.Notifier, error), opts Options) *Multi {
	m := &Multi{
		r:       r,
		notify:  notify,
		log:     opts.Logger,
		events:  make([]reactor.Event, 16),
		entries: make(map[*transfer.Handle]*entry),
		byFd:    make(map[uintptr]*entry),
		msgs:    queue.New(),
	}
	if m.log == nil {
		m.log = logging.Discard()
	}
	if opts.MaxTotal > 0 {
		m.slots = semaphore.NewWeighted(int64(opts.MaxTotal))
	}
	return m
}

// Add attaches a configured transfer. It starts on the next Perform.
func (m *Multi) Add(h *transfer.Handle) error {
	if m.closed {
		return api.ErrMultiplexerClosed
	}
	if h == nil {
		return api.ErrInvalidArgument
	}
	if _, dup := m.entries[h]; dup {
		return fmt.Errorf("transport: transfer %q already added: %w", h.Key(), api.ErrInvalidArgument)
	}
	n, err := m.notify()
	if err != nil {
		return err
	}
	if err := m.r.Register(n.Fd(), n.Fd()); err != nil {
		n.Close()
		return err
	}
	e := &entry{h: h, n: n}
	m.entries[h] = e
	m.byFd[n.Fd()] = e
	m.pending = append(m.pending, e)
	return nil
}

// Remove detaches a transfer, cancelling it if it is still in flight, and
// releases its notifier. Cleaning up the handle itself is the caller's job.
func (m *Multi) Remove(h *transfer.Handle) error {
	e, ok := m.entries[h]
	if !ok {
		return api.ErrUnknownTransfer
	}
	delete(m.entries, h)
	fd := e.n.Fd()
	delete(m.byFd, fd)
	m.pending = without(m.pending, e)
	m.running = without(m.running, e)
	if e.started && !h.Done() {
		h.Cancel()
	}
	uerr := m.r.Unregister(fd)
	cerr := e.close()
	if uerr != nil {
		return uerr
	}
	return cerr
}

// Perform starts pending transfers, collects finished ones into the message
// queue and returns how many attached transfers are not yet terminal.
// It never blocks.
func (m *Multi) Perform() (int, error) {
	if m.closed {
		return 0, api.ErrMultiplexerClosed
	}
	for len(m.pending) > 0 {
		if m.slots != nil && !m.slots.TryAcquire(1) {
			break
		}
		e := m.pending[0]
		m.pending = m.pending[1:]
		m.start(e)
	}

	var firstErr error
	live := m.running[:0]
	for _, e := range m.running {
		if !e.h.Done() {
			live = append(live, e)
			continue
		}
		if _, err := e.n.Drain(); err != nil && firstErr == nil {
			firstErr = err
		}
		e.finished = true
		m.msgs.Add(Message{Handle: e.h, Err: e.h.Err()})
	}
	for i := len(live); i < len(m.running); i++ {
		m.running[i] = nil
	}
	m.running = live
	return len(m.pending) + len(m.running), firstErr
}

func (m *Multi) start(e *entry) {
	e.started = true
	e.deadline = time.Now().Add(e.h.Timeout())
	m.running = append(m.running, e)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		e.h.Execute()
		if m.slots != nil {
			m.slots.Release(1)
		}
		if err := e.signal(); err != nil {
			m.log.Errorf("Perform", "transfer %q: notifier signal failed: %v", e.h.Key(), err)
		}
	}()
}

// FDSet returns the descriptors that become readable when a running
// transfer finishes.
func (m *Multi) FDSet() ([]uintptr, error) {
	if m.closed {
		return nil, api.ErrMultiplexerClosed
	}
	fds := make([]uintptr, 0, len(m.running))
	for _, e := range m.running {
		fds = append(fds, e.n.Fd())
	}
	return fds, nil
}

// Timeout suggests how long the owner may wait before calling Perform
// again: zero when work can be done right away, the time to the earliest
// transfer deadline otherwise, and -1 when there is nothing to suggest.
func (m *Multi) Timeout() (time.Duration, error) {
	if m.closed {
		return 0, api.ErrMultiplexerClosed
	}
	if len(m.pending) > 0 && (m.slots == nil || len(m.running) == 0) {
		return 0, nil
	}
	var earliest time.Time
	for _, e := range m.running {
		if e.h.Done() {
			return 0, nil
		}
		if earliest.IsZero() || e.deadline.Before(earliest) {
			earliest = e.deadline
		}
	}
	if earliest.IsZero() {
		return -1, nil
	}
	if d := time.Until(earliest); d > minPoll {
		return d, nil
	}
	return minPoll, nil
}

// Wait blocks until one of fds is readable or timeout elapses and returns
// the number of ready descriptors. Every fd must belong to an attached
// transfer.
func (m *Multi) Wait(fds []uintptr, timeout time.Duration) (int, error) {
	if m.closed {
		return -1, api.ErrMultiplexerClosed
	}
	for _, fd := range fds {
		if _, ok := m.byFd[fd]; !ok {
			return -1, fmt.Errorf("transport: descriptor %d is not attached", fd)
		}
	}
	if len(m.events) < len(fds) {
		m.events = make([]reactor.Event, len(fds))
	}
	return m.r.Wait(m.events, timeout)
}

// InfoRead pops the next completion message.
func (m *Multi) InfoRead() (Message, bool) {
	if m.msgs.Length() == 0 {
		return Message{}, false
	}
	return m.msgs.Remove().(Message), true
}

// Queued reports how many completion messages are waiting.
func (m *Multi) Queued() int {
	return m.msgs.Length()
}

// Close cancels every attached transfer, waits for their goroutines and
// releases the reactor.
func (m *Multi) Close() error {
	if m.closed {
		return nil
	}
	for h := range m.entries {
		m.Remove(h)
	}
	m.wg.Wait()
	m.closed = true
	return m.r.Close()
}

func without(list []*entry, e *entry) []*entry {
	for i, x := range list {
		if x == e {
			copy(list[i:], list[i+1:])
			list[len(list)-1] = nil
			return list[:len(list)-1]
		}
	}
	return list
}
