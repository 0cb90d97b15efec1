// File: transfer/capture.go
// Author: momentics <momentics@gmail.com>
//
// Response-head capture. Every hop's status line and header lines are
// appended to the transfer's header buffer, blank-line separated, so the
// buffer reads like the raw header stream of the exchange.

package transfer

import (
	"fmt"
	"net/http"

	"github.com/momentics/hioload-batch/core/buffer"
)

type captureTransport struct {
	base http.RoundTripper
	h    *Handle
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := c.base.RoundTrip(req)
	if resp != nil {
		text := http.StatusText(resp.StatusCode)
		if len(resp.Status) > 4 {
			text = resp.Status[4:]
		}
		c.h.appendHead(resp.ProtoMajor, resp.ProtoMinor, resp.StatusCode, text, resp.Header)
	}
	return resp, err
}

func writeHead(dst *buffer.Growable, major, minor, code int, text string, header http.Header) {
	fmt.Fprintf(dst, "HTTP/%d.%d %03d %s\r\n", major, minor, code, text)
	_ = header.Write(dst)
	dst.AppendString("\r\n")
}
