// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

package control

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsRegistry_Basic(t *testing.T) {
	reg := NewMetricsRegistry()
	reg.Set("foo.count", int64(42))
	reg.Set("bar.status", "ok")

	metrics := reg.GetSnapshot()
	if metrics["foo.count"] != int64(42) {
		t.Error("MetricsRegistry: value mismatch")
	}
	if metrics["bar.status"] != "ok" {
		t.Error("MetricsRegistry: string value mismatch")
	}
	if reg.Updated().IsZero() {
		t.Error("MetricsRegistry: update time not recorded")
	}
}

func TestMetricsRegistry_Counters(t *testing.T) {
	reg := NewMetricsRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				reg.Add("hits", 1)
			}
		}()
	}
	wg.Wait()
	if got := reg.Int("hits"); got != 800 {
		t.Errorf("hits = %d", got)
	}

	reg.Max("peak", 3)
	reg.Max("peak", 7)
	if got := reg.Max("peak", 5); got != 7 {
		t.Errorf("peak = %d", got)
	}
	reg.Set("mixed", "text")
	if got := reg.Add("mixed", 2); got != 2 {
		t.Errorf("non-counter key should reset, got %d", got)
	}
}

func TestConfigStore_TypedReads(t *testing.T) {
	cs := NewConfigStore()
	cs.SetConfig(map[string]any{
		"pool.max_concurrency": 4,
		"json.number":          float64(12),
		"pool.default_wait":    "250ms",
		"transfer.timeout":     int64(1500),
		"tls.strict":           true,
	})
	if got := cs.Int("pool.max_concurrency", 10); got != 4 {
		t.Errorf("int = %d", got)
	}
	if got := cs.Int("json.number", 0); got != 12 {
		t.Errorf("float as int = %d", got)
	}
	if got := cs.Int("missing", 9); got != 9 {
		t.Errorf("default int = %d", got)
	}
	if got := cs.Duration("pool.default_wait", 0); got != 250*time.Millisecond {
		t.Errorf("duration string = %v", got)
	}
	if got := cs.Duration("transfer.timeout", 0); got != 1500*time.Millisecond {
		t.Errorf("duration millis = %v", got)
	}
	if !cs.Bool("tls.strict", false) || cs.Bool("missing", false) {
		t.Error("bool reads wrong")
	}
}

func TestConfigStore_ReloadListeners(t *testing.T) {
	cs := NewConfigStore()
	calls := 0
	cs.OnReload(func() {
		calls++
		// Listeners may read the store.
		_ = cs.GetSnapshot()
	})
	cs.SetConfig(map[string]any{"k": 1})
	cs.SetConfig(map[string]any{"k": 2})
	if calls != 2 {
		t.Errorf("listener calls = %d", calls)
	}
	if cs.GetSnapshot()["k"] != 2 {
		t.Error("later value should win")
	}
}

func TestDebugProbes(t *testing.T) {
	dp := NewDebugProbes()
	RegisterPlatformProbes(dp)
	dp.RegisterProbe("custom", func() any { return "x" })
	state := dp.DumpState()
	if state["custom"] != "x" {
		t.Error("custom probe missing")
	}
	if n, ok := state["platform.cpus"].(int); !ok || n < 1 {
		t.Errorf("platform.cpus = %v", state["platform.cpus"])
	}
	dp.UnregisterProbe("custom")
	if _, ok := dp.DumpState()["custom"]; ok {
		t.Error("probe not removed")
	}
}
