// File: api/request.go
// Author: momentics <momentics@gmail.com>
//
// Request descriptors, their terminal responses, and the batch container.

package api

import (
	"fmt"
	"strings"
	"time"
)

// Supported request methods. Matching is case-insensitive.
const (
	MethodGet  = "GET"
	MethodPost = "POST"
	MethodPut  = "PUT"
)

// Header is one caller-supplied request header. Duplicates are allowed and
// each one is sent as its own header line.
type Header struct {
	Name  string
	Value string
}

// TLSOptions configures a request sent to an https:// URL.
// The zero value verifies both the peer chain and the host name.
type TLSOptions struct {
	CertificatePath string // client certificate, PEM
	KeyPath         string // client private key, PEM
	CAPath          string // CA bundle replacing the default roots
	KeyPassword     string // passphrase of an encrypted KeyPath

	InsecureSkipPeer bool // do not verify the peer certificate chain
	InsecureSkipHost bool // verify the chain but not the host name
}

// Request describes one HTTP exchange of a batch. Input fields are set by
// the caller; Response is written by the transfer pool once the exchange is
// terminal.
type Request struct {
	Key        string
	URL        string
	Method     string
	PostParams string // form-encoded body, preferred over Body for POST
	Body       []byte
	Headers    []Header
	TLS        TLSOptions

	Timeout          time.Duration // whole-exchange timeout, 0 = default
	Expect100Timeout time.Duration // 0 suppresses the 100-continue handshake
	Debug            bool

	Response Response
	done     bool
}

// Response holds the terminal outcome of a Request.
type Response struct {
	Status     int
	Body       []byte
	RawHeaders []byte
	Headers    map[string]string
	Error      string // empty on success
}

// OK reports whether the exchange finished without a transport error.
func (r Response) OK() bool {
	return r.Error == ""
}

// NewRequest returns a GET request for url identified by key.
func NewRequest(key, url string) *Request {
	return &Request{Key: key, URL: url, Method: MethodGet}
}

// AddHeader appends a request header.
func (r *Request) AddHeader(name, value string) *Request {
	r.Headers = append(r.Headers, Header{Name: name, Value: value})
	return r
}

// IsMethod reports whether the request method equals m, ignoring case.
func (r *Request) IsMethod(m string) bool {
	return strings.EqualFold(r.Method, m)
}

// Done reports whether Response has been written.
func (r *Request) Done() bool {
	return r.done
}

// Complete writes the terminal response. It succeeds once per request.
func (r *Request) Complete(resp Response) error {
	if r.done {
		return fmt.Errorf("%w: %q", ErrAlreadyCompleted, r.Key)
	}
	r.Response = resp
	r.done = true
	return nil
}

// Batch is the ordered set of requests executed by one pool run.
type Batch []*Request

// Validate rejects nil entries, duplicate keys and requests that already
// hold a response.
func (b Batch) Validate() error {
	seen := make(map[string]int, len(b))
	for i, r := range b {
		if r == nil {
			return fmt.Errorf("%w: request #%d is nil", ErrInvalidArgument, i)
		}
		if r.done {
			return fmt.Errorf("%w: %q (request #%d)", ErrAlreadyCompleted, r.Key, i)
		}
		if j, dup := seen[r.Key]; dup {
			return fmt.Errorf("%w: key %q used by requests #%d and #%d", ErrInvalidArgument, r.Key, j, i)
		}
		seen[r.Key] = i
	}
	return nil
}

// ByKey indexes the batch by request key.
func (b Batch) ByKey() map[string]*Request {
	out := make(map[string]*Request, len(b))
	for _, r := range b {
		if r != nil {
			out[r.Key] = r
		}
	}
	return out
}

// Pending returns the number of requests without a terminal response.
func (b Batch) Pending() int {
	n := 0
	for _, r := range b {
		if r != nil && !r.done {
			n++
		}
	}
	return n
}
