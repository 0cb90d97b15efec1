// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness primitives the transfer engine
// waits on: a level-triggered reactor with bounded waits and notifiers that
// completed transfers signal. Linux uses epoll and eventfd, darwin and the
// BSDs use kqueue and a self-pipe, other platforms use channel notifiers.
package reactor
