// File: transfer/handle.go
// Author: momentics <momentics@gmail.com>
//
// Handle is one configured transfer: everything needed to run a single
// HTTP exchange and the buffers its response lands in.

package transfer

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/textproto"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/momentics/hioload-batch/api"
	"github.com/momentics/hioload-batch/core/buffer"
	"github.com/momentics/hioload-batch/internal/logging"
	"github.com/momentics/hioload-batch/protocol"
)

// Handle binds one batch entry to its transport configuration. The batch is
// referenced by index only; the pool maps the index back to the request.
//
// Execute runs on a transport goroutine. Every other accessor is meant for
// the goroutine that owns the pool and is valid once Done reports true.
type Handle struct {
	index   int
	key     string
	url     string
	method  string
	timeout time.Duration
	debug   bool

	headers *protocol.HeaderSet
	header  http.Header
	host    string
	body    *buffer.Reader

	client   *http.Client
	setupErr error

	respBody    buffer.Growable
	headMu      sync.Mutex // guards respHeaders and sealed
	respHeaders buffer.Growable
	sealed      bool
	status      int
	err         error
	errText     string
	errLimit    int

	ctx       context.Context
	cancel    context.CancelFunc
	started   atomic.Bool
	completed atomic.Bool
	done      atomic.Bool
	cleaned   bool

	chunks *buffer.ChunkPool
	log    *logging.Logger
}

// Index returns the batch position of the request this transfer serves.
func (h *Handle) Index() int { return h.index }

// Key returns the request key.
func (h *Handle) Key() string { return h.key }

// URL returns the target URL.
func (h *Handle) URL() string { return h.url }

// Method returns the resolved HTTP method.
func (h *Handle) Method() string { return h.method }

// Timeout returns the whole-exchange timeout.
func (h *Handle) Timeout() time.Duration { return h.timeout }

// Headers returns the header list built for the transfer.
func (h *Handle) Headers() *protocol.HeaderSet { return h.headers }

// Header returns the rendered request header map.
func (h *Handle) Header() http.Header { return h.header }

// BodyLen returns the declared request body length, or -1 without a body.
func (h *Handle) BodyLen() int {
	if h.body == nil {
		return -1
	}
	return h.body.Len()
}

// SetupErr returns the configuration failure, if any.
func (h *Handle) SetupErr() error { return h.setupErr }

// Execute performs the exchange synchronously and records the outcome.
// Only the first call does anything.
func (h *Handle) Execute() {
	if !h.started.CompareAndSwap(false, true) {
		return
	}
	if h.setupErr != nil {
		h.Complete(0, h.setupErr)
		return
	}
	req, err := h.newRequest()
	if err != nil {
		h.Complete(0, err)
		return
	}
	resp, err := h.client.Do(req)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		h.Complete(status, err)
		return
	}
	_, err = h.chunks.CopyInto(&h.respBody, resp.Body)
	resp.Body.Close()
	h.Complete(status, err)
}

// Complete records the terminal state. The first call wins.
func (h *Handle) Complete(status int, err error) {
	if !h.completed.CompareAndSwap(false, true) {
		return
	}
	h.headMu.Lock()
	h.sealed = true
	h.headMu.Unlock()
	h.status = status
	h.err = err
	if err != nil {
		h.errText = truncate(err.Error(), h.errLimit-1)
		if h.errText == "" {
			h.errText = "transfer failed"
		}
	}
	h.done.Store(true)
}

// Done reports whether the transfer reached a terminal state.
func (h *Handle) Done() bool { return h.done.Load() }

// Status returns the last HTTP status observed, 0 when none was received.
func (h *Handle) Status() int { return h.status }

// Err returns the transport error, nil on success.
func (h *Handle) Err() error { return h.err }

// ErrorText returns the bounded error message, empty on success.
func (h *Handle) ErrorText() string { return h.errText }

// Body returns the captured response body.
func (h *Handle) Body() []byte { return h.respBody.Bytes() }

// RawHeaders returns the captured response header blob.
func (h *Handle) RawHeaders() []byte { return h.respHeaders.Bytes() }

// Result converts the terminal state into an api.Response.
func (h *Handle) Result(bounds protocol.Bounds) api.Response {
	return api.Response{
		Status:     h.status,
		Body:       h.respBody.Copy(),
		RawHeaders: h.respHeaders.Copy(),
		Headers:    protocol.ParseHeaders(h.respHeaders.Bytes(), bounds),
		Error:      h.errText,
	}
}

// Cancel aborts an exchange in flight.
func (h *Handle) Cancel() {
	if h.cancel != nil {
		h.cancel()
	}
}

// ReleaseHeaders frees the header list; true on the first call only.
func (h *Handle) ReleaseHeaders() bool {
	return h.headers.Release()
}

// Cleanup cancels any exchange in flight and frees the header list if the
// pool has not done so already. It is idempotent.
func (h *Handle) Cleanup() {
	if h.cleaned {
		return
	}
	h.cleaned = true
	h.Cancel()
	h.headers.Release()
}

// Released reports whether Cleanup ran and the header list is gone.
func (h *Handle) Released() bool {
	return h.cleaned && h.headers.Released()
}

func (h *Handle) newRequest() (*http.Request, error) {
	ctx := httptrace.WithClientTrace(h.ctx, h.trace())
	req, err := http.NewRequestWithContext(ctx, h.method, h.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header = h.header.Clone()
	if h.host != "" {
		req.Host = h.host
	}
	if h.body != nil {
		src := h.body
		if src.Len() == 0 {
			req.Body = http.NoBody
		} else {
			req.Body = io.NopCloser(src.Clone())
		}
		req.ContentLength = int64(src.Len())
		req.GetBody = func() (io.ReadCloser, error) {
			if src.Len() == 0 {
				return http.NoBody, nil
			}
			return io.NopCloser(src.Clone()), nil
		}
	}
	return req, nil
}

// trace captures interim 1xx heads into the header buffer and, for debug
// requests, logs connection milestones.
func (h *Handle) trace() *httptrace.ClientTrace {
	t := &httptrace.ClientTrace{
		Got1xxResponse: func(code int, header textproto.MIMEHeader) error {
			h.appendHead(1, 1, code, http.StatusText(code), http.Header(header))
			return nil
		},
	}
	if !h.debug {
		return t
	}
	fn := "transfer " + h.key
	t.DNSDone = func(info httptrace.DNSDoneInfo) {
		h.log.Verbosef(fn, "resolved %v (err=%v)", info.Addrs, info.Err)
	}
	t.ConnectDone = func(network, addr string, err error) {
		h.log.Verbosef(fn, "connect %s %s (err=%v)", network, addr, err)
	}
	t.TLSHandshakeDone = func(cs tls.ConnectionState, err error) {
		h.log.Verbosef(fn, "tls handshake version=%#x resumed=%v (err=%v)", cs.Version, cs.DidResume, err)
	}
	t.WroteHeaders = func() {
		h.log.Verbosef(fn, "> %s %s", h.method, h.url)
	}
	t.Got100Continue = func() {
		h.log.Verbosef(fn, "< 100 Continue")
	}
	t.GotFirstResponseByte = func() {
		h.log.Verbosef(fn, "< first response byte")
	}
	return t
}

// appendHead captures one response head. Heads reported after Complete,
// such as a 1xx from a cancelled exchange's read loop, are dropped.
func (h *Handle) appendHead(major, minor, code int, text string, header http.Header) {
	h.headMu.Lock()
	defer h.headMu.Unlock()
	if h.sealed {
		return
	}
	writeHead(&h.respHeaders, major, minor, code, text, header)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
