package facade_test

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/momentics/hioload-batch/api"
	"github.com/momentics/hioload-batch/facade"
	"github.com/momentics/hioload-batch/fake"
	"github.com/momentics/hioload-batch/pool"
)

func batchOf(n int) api.Batch {
	b := make(api.Batch, n)
	for i := range b {
		b[i] = api.NewRequest(fmt.Sprintf("k%d", i), "http://fake.invalid/")
	}
	return b
}

func TestInitCleanupRefcount(t *testing.T) {
	base := facade.Initialized()
	env := facade.Init()
	if env.GoVersion == "" {
		t.Error("environment not probed")
	}
	facade.Init()
	facade.Cleanup()
	if !facade.Initialized() {
		t.Error("one Init still outstanding")
	}
	facade.Cleanup()
	if facade.Initialized() != base {
		t.Error("refcount not balanced")
	}
	if !base {
		// Surplus cleanups are ignored.
		facade.Cleanup()
		if facade.Initialized() {
			t.Error("surplus Cleanup changed state")
		}
	}
}

func TestClientLifecycle(t *testing.T) {
	c, err := facade.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !facade.Initialized() {
		t.Error("New must initialize the environment")
	}
	m := fake.NewMultiplexer()
	c.NewMultiplexer = func(int) (pool.Multiplexer, error) { return m, nil }

	batch := batchOf(4)
	if err := c.Do(batch); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if batch.Pending() != 0 {
		t.Errorf("%d requests pending", batch.Pending())
	}
	stats := c.Stats()
	if stats[pool.MetricCompleted] != int64(4) || stats[pool.MetricBatches] != int64(1) {
		t.Errorf("stats = %v", stats)
	}
	if _, ok := stats["debug.env.go"]; !ok {
		t.Error("environment probe missing")
	}
	if _, ok := c.Debug().DumpState()["client.running_batches"]; !ok {
		t.Error("running probe missing")
	}

	if err := c.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Do(batchOf(1)); !errors.Is(err, facade.ErrClosed) {
		t.Errorf("Do after Close = %v", err)
	}
}

func TestRuntimeOverrides(t *testing.T) {
	var logs bytes.Buffer
	cfg := facade.DefaultConfig()
	cfg.LogOutput = &logs
	c, err := facade.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	m := fake.NewMultiplexer()
	m.SetHold(1)
	c.NewMultiplexer = func(int) (pool.Multiplexer, error) { return m, nil }

	if err := c.Control().SetConfig(map[string]any{api.ConfigMaxConcurrency: 2}); err != nil {
		t.Fatal(err)
	}
	if err := c.Do(batchOf(7)); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got := m.Calls().PeakAttached; got != 2 {
		t.Errorf("peak attached = %d, want 2", got)
	}
	if !strings.Contains(logs.String(), "[HIOLOAD_BATCH][INFO] when (OnReload)") {
		t.Errorf("reload not logged: %q", logs.String())
	}
}

func TestFailuresAreLogged(t *testing.T) {
	var logs bytes.Buffer
	cfg := facade.DefaultConfig()
	cfg.LogOutput = &logs
	cfg.LogLevel = 1
	c, err := facade.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	m := fake.NewMultiplexer()
	m.SetHold(3)
	m.FailFDSet(1, nil)
	c.NewMultiplexer = func(int) (pool.Multiplexer, error) { return m, nil }

	err = c.Do(batchOf(3))
	if !errors.Is(err, api.ErrFDSet) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(logs.String(), "[HIOLOAD_BATCH][ERROR] when (Run) : error in file descriptors set operation") {
		t.Errorf("abort not logged: %q", logs.String())
	}
}

func TestInvalidConfig(t *testing.T) {
	cfg := facade.DefaultConfig()
	cfg.MaxConcurrency = -1
	if _, err := facade.New(cfg); api.CodeOf(err) != api.ErrCodeInvalidArgument {
		t.Errorf("err = %v", err)
	}
}
