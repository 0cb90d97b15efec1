//go:build linux
// +build linux

package reactor

import (
	"testing"
	"time"
)

func TestReactor_NotifierWakesWait(t *testing.T) {
	r, err := NewReactor()
	if err != nil {
		t.Fatalf("NewReactor: %v", err)
	}
	defer r.Close()

	n, err := NewNotifier()
	if err != nil {
		t.Fatalf("NewNotifier: %v", err)
	}
	defer n.Close()

	if err := r.Register(n.Fd(), 42); err != nil {
		t.Fatalf("Register: %v", err)
	}

	events := make([]Event, 4)
	got, err := r.Wait(events, 10*time.Millisecond)
	if err != nil || got != 0 {
		t.Fatalf("idle Wait = %d, %v", got, err)
	}

	if err := n.Signal(); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	if err := n.Signal(); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	got, err = r.Wait(events, time.Second)
	if err != nil || got != 1 {
		t.Fatalf("signalled Wait = %d, %v", got, err)
	}
	if events[0].Fd != n.Fd() || events[0].UserData != 42 {
		t.Errorf("unexpected event %+v", events[0])
	}

	count, err := n.Drain()
	if err != nil || count != 2 {
		t.Fatalf("Drain = %d, %v", count, err)
	}
	count, err = n.Drain()
	if err != nil || count != 0 {
		t.Fatalf("second Drain = %d, %v", count, err)
	}

	if err := r.Unregister(n.Fd()); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	_ = n.Signal()
	got, err = r.Wait(events, 10*time.Millisecond)
	if err != nil || got != 0 {
		t.Fatalf("Wait after Unregister = %d, %v", got, err)
	}
}

func TestReactor_WaitHonoursTimeout(t *testing.T) {
	r, err := NewReactor()
	if err != nil {
		t.Fatalf("NewReactor: %v", err)
	}
	defer r.Close()
	n, _ := NewNotifier()
	defer n.Close()
	_ = r.Register(n.Fd(), 0)

	start := time.Now()
	got, err := r.Wait(make([]Event, 1), 30*time.Millisecond)
	if err != nil || got != 0 {
		t.Fatalf("Wait = %d, %v", got, err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("Wait returned after %v", elapsed)
	}
}

func TestTimeoutMillis(t *testing.T) {
	cases := map[time.Duration]int{
		-time.Second:            -1,
		0:                       0,
		time.Microsecond:        1,
		100 * time.Millisecond:  100,
		1500 * time.Microsecond: 2,
	}
	for in, want := range cases {
		if got := timeoutMillis(in); got != want {
			t.Errorf("timeoutMillis(%v) = %d, want %d", in, got, want)
		}
	}
}
