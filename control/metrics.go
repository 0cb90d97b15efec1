// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for pool telemetry.
// Exposes counters and gauges in a thread-safe map with dynamic registration.

package control

import (
	"sync"
	"time"
)

// MetricsRegistry holds mutable and read-only metrics.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]any
	updated time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		metrics: make(map[string]any),
	}
}

// Set sets or updates a metric key.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Add increments an int64 counter and returns the new value. A key holding
// a non-counter value is reset.
func (mr *MetricsRegistry) Add(key string, delta int64) int64 {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	v, _ := mr.metrics[key].(int64)
	v += delta
	mr.metrics[key] = v
	mr.updated = time.Now()
	return v
}

// Max raises an int64 high-water mark to v if v is larger.
func (mr *MetricsRegistry) Max(key string, v int64) int64 {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	cur, ok := mr.metrics[key].(int64)
	if !ok || v > cur {
		cur = v
		mr.metrics[key] = v
		mr.updated = time.Now()
	}
	return cur
}

// Int returns an int64 metric, zero when absent.
func (mr *MetricsRegistry) Int(key string) int64 {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	v, _ := mr.metrics[key].(int64)
	return v
}

// Updated reports when a metric last changed.
func (mr *MetricsRegistry) Updated() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}

// GetSnapshot returns the latest metrics.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	return out
}
