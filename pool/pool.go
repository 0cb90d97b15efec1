// File: pool/pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TransferPool runs batches. Per-transfer failures land in the request's
// Response; only a failure of the multiplexing mechanism itself aborts the
// run. Responses are staged as transfers drain and written into the batch
// only when the whole run succeeds, so an aborted batch stays untouched.

package pool

import (
	"time"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-batch/api"
	"github.com/momentics/hioload-batch/control"
	"github.com/momentics/hioload-batch/internal/logging"
	"github.com/momentics/hioload-batch/transfer"
)

// TransferPool executes batches with a bounded concurrency window.
type TransferPool struct {
	cfg     Config
	log     *logging.Logger
	metrics *control.MetricsRegistry
}

// New returns a pool using cfg; unset fields take defaults.
func New(cfg Config) *TransferPool {
	cfg = cfg.normalized()
	return &TransferPool{
		cfg:     cfg,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// Config returns the effective configuration.
func (p *TransferPool) Config() Config {
	return p.cfg
}

// Metrics returns the registry the pool reports into.
func (p *TransferPool) Metrics() *control.MetricsRegistry {
	return p.metrics
}

// Window returns the concurrency window for a batch of n requests.
func (p *TransferPool) Window(n int) int {
	return min(n, p.cfg.MaxConcurrency)
}

// run is the state of one Run call.
type run struct {
	p       *TransferPool
	batch   api.Batch
	builder *transfer.Builder
	mux     Multiplexer
	backlog *queue.Queue
	active  map[*transfer.Handle]struct{}
	staged  []*api.Response
}

// Run executes batch and returns once every request is terminal. The error
// is nil unless the batch is invalid or the run was aborted; aborts carry
// ErrCodeFDSet, ErrCodeMultiTimeout, ErrCodeInvalidSelect or
// ErrCodeInternal and leave every Response unset.
func (p *TransferPool) Run(batch api.Batch) error {
	if err := batch.Validate(); err != nil {
		return err
	}
	p.metrics.Add(MetricBatches, 1)
	if len(batch) == 0 {
		return nil
	}

	window := p.Window(len(batch))
	topts := p.cfg.Transfer
	if topts.MaxConnects <= 0 {
		topts.MaxConnects = window
	}
	builder := transfer.NewBuilder(topts)
	defer builder.Close()

	mux, err := p.cfg.NewMultiplexer(window)
	if err != nil {
		p.metrics.Add(MetricAborted, 1)
		p.log.Errorf("Run", "cannot create multiplexer: %v", err)
		return api.NewError(api.ErrCodeInternal, "cannot create multiplexer").WithCause(err)
	}
	defer mux.Close()

	r := &run{
		p:       p,
		batch:   batch,
		builder: builder,
		mux:     mux,
		backlog: queue.New(),
		active:  make(map[*transfer.Handle]struct{}, window),
		staged:  make([]*api.Response, len(batch)),
	}
	for i := range batch {
		r.backlog.Add(i)
	}
	p.log.Debugf("Run", "batch of %d requests, window %d", len(batch), window)

	for i := 0; i < window; i++ {
		r.launch()
	}
	if err := r.loop(); err != nil {
		return err
	}
	r.commit()
	return nil
}

func (r *run) loop() error {
	p := r.p
	for len(r.active) > 0 {
		running, err := r.mux.Perform()
		if err != nil {
			p.log.Errorf("Run", "perform: %v", err)
		}
		if running > 0 {
			fds, err := r.mux.FDSet()
			if err != nil {
				return r.abort(api.ErrFDSet, err)
			}
			timeout, err := r.mux.Timeout()
			if err != nil {
				return r.abort(api.ErrMultiTimeout, err)
			}
			if timeout < 0 {
				timeout = p.cfg.DefaultWait
			}
			if len(fds) == 0 {
				time.Sleep(timeout)
			} else if n, err := r.mux.Wait(fds, timeout); err != nil || n < 0 {
				return r.abort(api.ErrInvalidSelect, err)
			}
		}
		r.drain()
	}
	return nil
}

// launch configures the next backlog entry and attaches it. A request the
// multiplexer refuses is completed with that error and the next one is
// tried.
func (r *run) launch() bool {
	for r.backlog.Length() > 0 {
		idx := r.backlog.Remove().(int)
		req := r.batch[idx]
		h := r.builder.Configure(idx, req)
		if err := r.mux.Add(h); err != nil {
			r.p.log.Errorf("Run", "request %q not attached: %v", req.Key, err)
			h.Complete(0, err)
			r.record(h)
			h.Cleanup()
			continue
		}
		r.active[h] = struct{}{}
		r.gauge()
		return true
	}
	return false
}

// drain collects every completion message, releases the finished transfer
// and refills its slot from the backlog.
func (r *run) drain() {
	for {
		msg, ok := r.mux.InfoRead()
		if !ok {
			return
		}
		h := msg.Handle
		if _, ok := r.active[h]; !ok {
			continue
		}
		r.record(h)
		if err := r.mux.Remove(h); err != nil {
			r.p.log.Errorf("Run", "request %q: detach: %v", h.Key(), err)
		}
		h.Cleanup()
		delete(r.active, h)
		r.gauge()
		r.launch()
	}
}

// record stages the terminal response of h and frees the header list.
func (r *run) record(h *transfer.Handle) {
	p := r.p
	req := r.batch[h.Index()]
	resp := h.Result(p.cfg.HeaderBounds)
	if !h.ReleaseHeaders() {
		p.log.Errorf("Run", "request %q: header list released twice", req.Key)
	}
	r.staged[h.Index()] = &resp
}

// commit writes every staged response into its request.
func (r *run) commit() {
	p := r.p
	for i, resp := range r.staged {
		if resp == nil {
			continue
		}
		req := r.batch[i]
		if err := req.Complete(*resp); err != nil {
			p.log.Errorf("Run", "%v", err)
			continue
		}
		p.metrics.Add(MetricCompleted, 1)
		if !resp.OK() {
			p.metrics.Add(MetricFailed, 1)
			p.log.Infof("Run", "request %q failed: %s", req.Key, resp.Error)
		} else if req.Debug {
			p.log.Verbosef("Run", "request %q: status %d, %d body bytes", req.Key, resp.Status, len(resp.Body))
		}
	}
}

// abort detaches and releases every active transfer, drops the backlog and
// discards staged responses.
func (r *run) abort(kind *api.Error, cause error) error {
	p := r.p
	n := len(r.active)
	for h := range r.active {
		if err := r.mux.Remove(h); err != nil {
			p.log.Errorf("Run", "request %q: detach: %v", h.Key(), err)
		}
		h.Cleanup()
		delete(r.active, h)
	}
	dropped := r.backlog.Length()
	r.backlog = queue.New()
	clear(r.staged)
	r.gauge()
	p.metrics.Add(MetricAborted, 1)
	p.log.Errorf("Run", "%s (cause: %v); released %d active, dropped %d queued, discarded all results", kind.Message, cause, n, dropped)
	return api.NewError(kind.Code, kind.Message).
		WithCause(cause).
		WithContext("active", n).
		WithContext("queued", dropped)
}

func (r *run) gauge() {
	n := int64(len(r.active))
	r.p.metrics.Set(MetricActive, n)
	r.p.metrics.Max(MetricPeakActive, n)
}
