// File: transfer/tls_test.go
// Author: momentics <momentics@gmail.com>

package transfer

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/momentics/hioload-batch/api"
)

func tlsServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "secure")
	}))
	t.Cleanup(srv.Close)
	ca := filepath.Join(t.TempDir(), "ca.pem")
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	if err := os.WriteFile(ca, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return srv, ca
}

func TestIsHTTPS(t *testing.T) {
	cases := map[string]bool{
		"https://example.com": true,
		"https://":            false,
		"http://example.com":  false,
		"HTTPS://example.com": false,
		"":                    false,
	}
	for in, want := range cases {
		if got := IsHTTPS(in); got != want {
			t.Errorf("IsHTTPS(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTLSWithCABundle(t *testing.T) {
	srv, ca := tlsServer(t)
	b := NewBuilder(DefaultOptions())
	defer b.Close()

	req := api.NewRequest("s", srv.URL)
	req.TLS.CAPath = ca
	h := run(t, b, req)
	if h.Err() != nil {
		t.Fatalf("unexpected error: %v", h.Err())
	}
	if string(h.Body()) != "secure" {
		t.Errorf("body = %q", h.Body())
	}
}

func TestTLSUnknownAuthorityFails(t *testing.T) {
	srv, _ := tlsServer(t)
	b := NewBuilder(DefaultOptions())
	defer b.Close()

	h := run(t, b, api.NewRequest("s", srv.URL))
	if h.Err() == nil {
		t.Fatal("expected verification failure")
	}
	if h.Status() != 0 {
		t.Errorf("status = %d", h.Status())
	}
}

func TestTLSRootsOption(t *testing.T) {
	srv, _ := tlsServer(t)
	roots := x509.NewCertPool()
	roots.AddCert(srv.Certificate())
	opts := DefaultOptions()
	opts.Roots = roots
	b := NewBuilder(opts)
	defer b.Close()

	if h := run(t, b, api.NewRequest("s", srv.URL)); h.Err() != nil {
		t.Fatalf("unexpected error: %v", h.Err())
	}
}

func TestTLSSkipPeer(t *testing.T) {
	srv, _ := tlsServer(t)
	b := NewBuilder(DefaultOptions())
	defer b.Close()

	req := api.NewRequest("s", srv.URL)
	req.TLS.InsecureSkipPeer = true
	if h := run(t, b, req); h.Err() != nil {
		t.Fatalf("unexpected error: %v", h.Err())
	}
}

func TestTLSSkipHostStillChecksChain(t *testing.T) {
	srv, ca := tlsServer(t)
	b := NewBuilder(DefaultOptions())
	defer b.Close()

	// The test certificate does not name "localhost".
	url := strings.Replace(srv.URL, "127.0.0.1", "localhost", 1)

	strict := api.NewRequest("strict", url)
	strict.TLS.CAPath = ca
	if h := run(t, b, strict); h.Err() == nil {
		t.Fatal("host name mismatch should fail")
	}

	relaxed := api.NewRequest("relaxed", url)
	relaxed.TLS.CAPath = ca
	relaxed.TLS.InsecureSkipHost = true
	if h := run(t, b, relaxed); h.Err() != nil {
		t.Fatalf("chain-only verification failed: %v", h.Err())
	}

	untrusted := api.NewRequest("untrusted", url)
	untrusted.TLS.InsecureSkipHost = true
	if h := run(t, b, untrusted); h.Err() == nil {
		t.Fatal("unknown authority must still fail")
	}
}

func TestTLSBadCAPath(t *testing.T) {
	b := NewBuilder(DefaultOptions())
	defer b.Close()

	req := api.NewRequest("s", "https://127.0.0.1:1/")
	req.TLS.CAPath = filepath.Join(t.TempDir(), "missing.pem")
	h := b.Configure(0, req)
	if h.SetupErr() == nil {
		t.Fatal("expected setup error")
	}
	h.Execute()
	if !strings.Contains(h.ErrorText(), "CAfile") {
		t.Errorf("error text = %q", h.ErrorText())
	}
}

func TestTLSVersionPolicy(t *testing.T) {
	unsupported := func(uint16) bool { return false }

	lenient := NewBuilder(Options{TLSSupported: unsupported})
	defer lenient.Close()
	if h := lenient.Configure(0, api.NewRequest("l", "https://127.0.0.1:1/")); h.SetupErr() != nil {
		t.Errorf("lenient builder failed setup: %v", h.SetupErr())
	}

	strict := NewBuilder(Options{TLSSupported: unsupported, StrictTLS: true})
	defer strict.Close()
	h := strict.Configure(0, api.NewRequest("s", "https://127.0.0.1:1/"))
	if !errors.Is(h.SetupErr(), ErrTLSVersion) {
		t.Errorf("setup err = %v", h.SetupErr())
	}

	// Plain HTTP never consults TLS.
	if h := strict.Configure(1, api.NewRequest("p", "http://127.0.0.1:1/")); h.SetupErr() != nil {
		t.Errorf("http setup err = %v", h.SetupErr())
	}
}

func TestTLSVersionSupported(t *testing.T) {
	if !TLSVersionSupported(0x0303) {
		t.Error("TLS 1.2 should be supported")
	}
	if TLSVersionSupported(0x0200) {
		t.Error("SSL 2.0 must not be supported")
	}
}
