// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics, configuration overrides, and debug introspection for
// hioload-batch.
//
// Provides concurrent-safe state handling primitives including:
//   - A metrics registry with counters and high-water marks
//   - A runtime override store with reload listeners
//   - Debug probe registration and state export
package control
