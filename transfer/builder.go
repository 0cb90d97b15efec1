// File: transfer/builder.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Builder turns request descriptors into configured transfers. One Builder
// serves one batch run: transfers with identical TLS and 100-continue
// settings share a transport, and Close drops every idle connection so
// nothing outlives the run.

package transfer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/momentics/hioload-batch/api"
	"github.com/momentics/hioload-batch/core/buffer"
	"github.com/momentics/hioload-batch/internal/logging"
	"github.com/momentics/hioload-batch/protocol"
)

// DisableExpect is the header line that stops the transport from sending
// "Expect: 100-continue".
const DisableExpect = "Expect:"

type transportKey struct {
	https  bool
	tls    api.TLSOptions
	expect time.Duration
}

// Builder configures transfers.
type Builder struct {
	opts       Options
	log        *logging.Logger
	transports map[transportKey]*http.Transport
}

// NewBuilder returns a Builder using opts; unset fields take defaults.
func NewBuilder(opts Options) *Builder {
	opts = opts.normalized()
	return &Builder{
		opts:       opts,
		log:        opts.Logger,
		transports: make(map[transportKey]*http.Transport),
	}
}

// Options returns the effective options.
func (b *Builder) Options() Options {
	return b.opts
}

// Configure builds the transfer for req, which sits at index in the batch.
// Configuration failures do not surface here: the returned handle carries
// them and completes with that error as soon as it is executed.
func (b *Builder) Configure(index int, req *api.Request) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		index:    index,
		key:      req.Key,
		url:      req.URL,
		timeout:  req.Timeout,
		debug:    req.Debug,
		errLimit: b.opts.ErrorBufferSize,
		ctx:      ctx,
		cancel:   cancel,
		chunks:   b.opts.Chunks,
		log:      b.log,
	}
	if h.timeout <= 0 {
		h.timeout = b.opts.DefaultTimeout
	}

	b.setupMethod(h, req)
	h.headers = b.headerList(h, req)
	b.renderHeaders(h)

	key := transportKey{https: IsHTTPS(req.URL)}
	if key.https {
		key.tls = req.TLS
	}
	if h.body != nil {
		key.expect = req.Expect100Timeout
	}
	tr, err := b.transport(key)
	if err != nil {
		b.log.Errorf("Configure", "request %q: %v", req.Key, err)
		h.setupErr = err
	} else {
		h.client = &http.Client{
			Transport:     &captureTransport{base: tr, h: h},
			CheckRedirect: b.checkRedirect,
			Timeout:       h.timeout,
		}
	}

	if req.Debug {
		b.log.Verbosef("Configure", "request %q: %s %s timeout=%v headers=%d body=%d",
			req.Key, h.method, h.url, h.timeout, h.headers.Len(), h.BodyLen())
	}
	return h
}

// Close drops idle connections held by every transport the builder made.
func (b *Builder) Close() {
	for k, tr := range b.transports {
		tr.CloseIdleConnections()
		delete(b.transports, k)
	}
}

// setupMethod resolves the method and wires the request body.
func (b *Builder) setupMethod(h *Handle, req *api.Request) {
	switch {
	case req.IsMethod(api.MethodPost):
		h.method = http.MethodPost
		if req.PostParams != "" {
			h.body = buffer.NewReader([]byte(req.PostParams))
		} else {
			h.body = buffer.NewReader(req.Body)
		}
	case req.IsMethod(api.MethodPut):
		h.method = http.MethodPut
		h.body = buffer.NewReader(req.Body)
	case req.IsMethod(api.MethodGet):
		h.method = http.MethodGet
	default:
		if req.Method != "" {
			b.log.Infof("Configure", "request %q: unsupported method %q, sending GET", req.Key, req.Method)
		}
		h.method = http.MethodGet
	}
}

// headerList collects the caller's headers plus the 100-continue policy
// for requests that carry a body.
func (b *Builder) headerList(h *Handle, req *api.Request) *protocol.HeaderSet {
	set := protocol.NewHeaderSet(len(req.Headers) + 1)
	for _, hd := range req.Headers {
		set.Add(hd.Name, hd.Value)
	}
	if h.method != http.MethodPost && h.method != http.MethodPut {
		return set
	}
	if req.Expect100Timeout == 0 {
		set.AddLine(DisableExpect)
	}
	return set
}

// renderHeaders converts the header list into the transport's header map,
// filling in the defaults the caller did not override or remove.
func (b *Builder) renderHeaders(h *Handle) {
	hdr := make(http.Header)
	applied := protocol.ApplyLines(h.headers.Lines(), hdr)
	h.host = applied.Host

	setDefault := func(k, v string) {
		if _, ok := hdr[k]; ok || applied.Removed[k] {
			return
		}
		hdr.Set(k, v)
	}
	setDefault("Accept", "*/*")
	if h.method == http.MethodPost {
		setDefault("Content-Type", FormContentType)
	}
	if h.body != nil && h.body.Len() > 0 {
		setDefault("Expect", "100-continue")
	}
	if applied.Removed["User-Agent"] {
		// An empty value stops net/http from sending its default agent.
		hdr["User-Agent"] = []string{""}
	}
	h.header = hdr
}

// transport returns the shared transport for key, creating it on first use.
func (b *Builder) transport(key transportKey) (*http.Transport, error) {
	if tr, ok := b.transports[key]; ok {
		return tr, nil
	}
	var tlsCfg *tls.Config
	if key.https {
		cfg, err := b.tlsConfig(key.tls)
		if err != nil {
			return nil, err
		}
		tlsCfg = cfg
	}
	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       tlsCfg,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          b.opts.MaxConnects,
		MaxIdleConnsPerHost:   b.opts.MaxConnects,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: key.expect,
		// HTTP/1.1 only.
		TLSNextProto: map[string]func(string, *tls.Conn) http.RoundTripper{},
	}
	b.transports[key] = tr
	return tr, nil
}

func (b *Builder) checkRedirect(req *http.Request, via []*http.Request) error {
	limit := b.opts.MaxRedirects
	if limit < 0 {
		return http.ErrUseLastResponse
	}
	if len(via) > limit {
		return fmt.Errorf("maximum (%d) redirects followed", limit)
	}
	return nil
}
