// Package pool
// Author: momentics <momentics@gmail.com>
//
// Transfer pool scheduler for hioload-batch.
// Runs a batch of requests through a Multiplexer with a bounded window:
// the first window-many transfers start at once and every completion
// immediately pulls the next request from the backlog. A single goroutine
// owns the batch, the backlog and the active set for the whole run.
package pool
