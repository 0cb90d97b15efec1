//go:build linux
// +build linux

package transport

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/momentics/hioload-batch/api"
	"github.com/momentics/hioload-batch/transfer"
)

func newServer(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
		io.WriteString(w, r.URL.Path)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// drive runs the perform/wait loop until every attached transfer reported.
func drive(t *testing.T, m *Multi) []Message {
	t.Helper()
	var out []Message
	deadline := time.Now().Add(10 * time.Second)
	for {
		running, err := m.Perform()
		if err != nil {
			t.Fatalf("Perform: %v", err)
		}
		for {
			msg, ok := m.InfoRead()
			if !ok {
				break
			}
			out = append(out, msg)
			if err := m.Remove(msg.Handle); err != nil {
				t.Fatalf("Remove: %v", err)
			}
		}
		if running == 0 {
			return out
		}
		if time.Now().After(deadline) {
			t.Fatalf("transfers did not finish, %d running", running)
		}
		fds, err := m.FDSet()
		if err != nil {
			t.Fatalf("FDSet: %v", err)
		}
		timeout, err := m.Timeout()
		if err != nil {
			t.Fatalf("Timeout: %v", err)
		}
		if timeout < 0 {
			timeout = 100 * time.Millisecond
		}
		if len(fds) == 0 {
			time.Sleep(timeout)
			continue
		}
		if n, err := m.Wait(fds, timeout); err != nil || n < 0 {
			t.Fatalf("Wait = %d, %v", n, err)
		}
	}
}

func TestMultiRunsTransfers(t *testing.T) {
	srv := newServer(t, 10*time.Millisecond)
	m, err := NewMulti(Options{})
	if err != nil {
		t.Fatalf("NewMulti: %v", err)
	}
	defer m.Close()
	b := transfer.NewBuilder(transfer.DefaultOptions())
	defer b.Close()

	want := map[string]string{"a": "/a", "b": "/b", "c": "/c"}
	for i, k := range []string{"a", "b", "c"} {
		if err := m.Add(b.Configure(i, api.NewRequest(k, srv.URL+"/"+k))); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	msgs := drive(t, m)
	if len(msgs) != 3 {
		t.Fatalf("got %d messages", len(msgs))
	}
	for _, msg := range msgs {
		if msg.Err != nil {
			t.Errorf("%s: %v", msg.Handle.Key(), msg.Err)
		}
		if got := string(msg.Handle.Body()); got != want[msg.Handle.Key()] {
			t.Errorf("%s: body %q", msg.Handle.Key(), got)
		}
	}
	if m.Queued() != 0 {
		t.Errorf("queued = %d", m.Queued())
	}
}

func TestMultiMaxTotal(t *testing.T) {
	srv := newServer(t, 20*time.Millisecond)
	m, err := NewMulti(Options{MaxTotal: 1})
	if err != nil {
		t.Fatalf("NewMulti: %v", err)
	}
	defer m.Close()
	b := transfer.NewBuilder(transfer.DefaultOptions())
	defer b.Close()

	for i, k := range []string{"x", "y", "z"} {
		if err := m.Add(b.Configure(i, api.NewRequest(k, srv.URL))); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	running, err := m.Perform()
	if err != nil || running != 3 {
		t.Fatalf("Perform = %d, %v", running, err)
	}
	fds, _ := m.FDSet()
	if len(fds) != 1 {
		t.Fatalf("in flight = %d, want 1", len(fds))
	}
	if msgs := drive(t, m); len(msgs) != 3 {
		t.Fatalf("got %d messages", len(msgs))
	}
}

func TestMultiTimeoutHints(t *testing.T) {
	srv := newServer(t, 5*time.Second)
	m, err := NewMulti(Options{})
	if err != nil {
		t.Fatalf("NewMulti: %v", err)
	}
	defer m.Close()

	if d, err := m.Timeout(); err != nil || d != -1 {
		t.Fatalf("idle Timeout = %v, %v", d, err)
	}

	b := transfer.NewBuilder(transfer.DefaultOptions())
	defer b.Close()
	req := api.NewRequest("slow", srv.URL)
	req.Timeout = 2 * time.Second
	h := b.Configure(0, req)
	if err := m.Add(h); err != nil {
		t.Fatal(err)
	}
	if d, _ := m.Timeout(); d != 0 {
		t.Errorf("pending Timeout = %v, want 0", d)
	}
	m.Perform()
	d, _ := m.Timeout()
	if d <= 0 || d > 2*time.Second {
		t.Errorf("running Timeout = %v", d)
	}

	// Removing an in-flight transfer cancels it.
	if err := m.Remove(h); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for !h.Done() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !h.Done() || h.Err() == nil {
		t.Fatalf("cancelled transfer: done=%v err=%v", h.Done(), h.Err())
	}
}

func TestMultiMisuse(t *testing.T) {
	m, err := NewMulti(Options{})
	if err != nil {
		t.Fatalf("NewMulti: %v", err)
	}
	b := transfer.NewBuilder(transfer.DefaultOptions())
	defer b.Close()
	h := b.Configure(0, api.NewRequest("k", "http://127.0.0.1:1/"))

	if err := m.Remove(h); !errors.Is(err, api.ErrUnknownTransfer) {
		t.Errorf("Remove unknown = %v", err)
	}
	if err := m.Add(nil); !errors.Is(err, api.ErrInvalidArgument) {
		t.Errorf("Add nil = %v", err)
	}
	if err := m.Add(h); err != nil {
		t.Fatal(err)
	}
	if err := m.Add(h); !errors.Is(err, api.ErrInvalidArgument) {
		t.Errorf("Add twice = %v", err)
	}
	if _, err := m.Wait([]uintptr{1 << 20}, time.Millisecond); err == nil {
		t.Error("Wait on a foreign descriptor should fail")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := m.Add(h); !errors.Is(err, api.ErrMultiplexerClosed) {
		t.Errorf("Add after Close = %v", err)
	}
	if _, err := m.Perform(); !errors.Is(err, api.ErrMultiplexerClosed) {
		t.Errorf("Perform after Close = %v", err)
	}
}
