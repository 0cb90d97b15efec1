//go:build darwin || dragonfly || freebsd || netbsd || openbsd
// +build darwin dragonfly freebsd netbsd openbsd

// File: reactor/notifier_pipe.go
// Author: momentics <momentics@gmail.com>
//
// Self-pipe Notifier for platforms without eventfd.

package reactor

import "golang.org/x/sys/unix"

// pipeNotifier writes one byte per signal; Drain counts and discards them.
type pipeNotifier struct {
	r, w int
}

// NewNotifier creates a non-blocking pipe pair.
func NewNotifier() (Notifier, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return nil, err
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return nil, err
		}
	}
	return &pipeNotifier{r: p[0], w: p[1]}, nil
}

func (n *pipeNotifier) Fd() uintptr {
	return uintptr(n.r)
}

// Signal makes the read end readable. A full pipe is already readable, so
// EAGAIN is not an error.
func (n *pipeNotifier) Signal() error {
	buf := [1]byte{1}
	for {
		_, err := unix.Write(n.w, buf[:])
		switch err {
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return nil
		default:
			return err
		}
	}
}

// Drain empties the pipe and returns how many signals it held.
func (n *pipeNotifier) Drain() (uint64, error) {
	var (
		buf   [64]byte
		total uint64
	)
	for {
		k, err := unix.Read(n.r, buf[:])
		switch err {
		case nil:
			if k == 0 {
				return total, nil
			}
			total += uint64(k)
		case unix.EINTR:
		case unix.EAGAIN:
			return total, nil
		default:
			return total, err
		}
	}
}

func (n *pipeNotifier) Close() error {
	rerr := unix.Close(n.r)
	werr := unix.Close(n.w)
	if rerr != nil {
		return rerr
	}
	return werr
}
