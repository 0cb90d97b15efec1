//go:build linux
// +build linux

// File: reactor/notifier_linux.go
// Author: momentics <momentics@gmail.com>
//
// eventfd(2)-backed Notifier.

package reactor

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

type eventfdNotifier struct {
	fd int
}

// NewNotifier creates a non-blocking eventfd.
func NewNotifier() (Notifier, error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &eventfdNotifier{fd: fd}, nil
}

func (n *eventfdNotifier) Fd() uintptr {
	return uintptr(n.fd)
}

// Signal adds one to the counter, making the fd readable.
func (n *eventfdNotifier) Signal() error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	for {
		_, err := unix.Write(n.fd, buf[:])
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

// Drain resets the counter and returns how many signals were pending.
// It returns zero without error when nothing was signalled.
func (n *eventfdNotifier) Drain() (uint64, error) {
	var buf [8]byte
	for {
		_, err := unix.Read(n.fd, buf[:])
		switch err {
		case nil:
			return binary.LittleEndian.Uint64(buf[:]), nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, nil
		default:
			return 0, err
		}
	}
}

func (n *eventfdNotifier) Close() error {
	return unix.Close(n.fd)
}
