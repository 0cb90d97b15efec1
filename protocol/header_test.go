package protocol

import (
	"net/http"
	"reflect"
	"strings"
	"testing"
)

func TestHeaderSet_RendersInOrder(t *testing.T) {
	h := NewHeaderSet(2)
	h.Add("Accept", "application/json")
	h.Add("X-Dup", "1")
	h.Add("X-Dup", "2")
	h.AddLine("Expect:")

	want := []string{"Accept: application/json", "X-Dup: 1", "X-Dup: 2", "Expect:"}
	if !reflect.DeepEqual(h.Lines(), want) {
		t.Fatalf("Lines() = %q, want %q", h.Lines(), want)
	}
	if h.Len() != 4 {
		t.Errorf("Len() = %d", h.Len())
	}
}

func TestHeaderSet_ReleaseOnce(t *testing.T) {
	h := NewHeaderSet(0)
	h.Add("A", "b")
	if !h.Release() {
		t.Fatal("first Release should report true")
	}
	if h.Release() {
		t.Error("second Release should report false")
	}
	if !h.Released() || h.Len() != 0 {
		t.Error("released set should be empty")
	}
}

func TestParseHeaders_RoundTrip(t *testing.T) {
	got := ParseHeaders([]byte("Content-Type: text/html\r\nX-Foo: Bar\r\n"), DefaultBounds())
	want := map[string]string{"content-type": "text/html", "x-foo": "Bar"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseHeaders = %v, want %v", got, want)
	}
}

func TestParseHeaders_SkipsMalformed(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\n" +
		"\r\n" +
		"no colon here\n" +
		"Empty:\r\n" +
		"Keep: this\r\n" +
		strings.Repeat("k", 300) + ": long key\r\n" +
		"Big: " + strings.Repeat("v", 2000) + "\r\n"

	got := ParseHeaders([]byte(raw), DefaultBounds())
	want := map[string]string{"empty": "", "keep": "this"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseHeaders = %v, want %v", got, want)
	}
}

func TestParseHeaders_StripsSeparatorOnly(t *testing.T) {
	got := ParseHeaders([]byte("A:  two spaces\nB:x"), Bounds{})
	if got["a"] != " two spaces" {
		t.Errorf("a = %q", got["a"])
	}
	// Exactly two bytes go, even when the separator lacks a space.
	if got["b"] != "" {
		t.Errorf("b = %q", got["b"])
	}
}

func TestParseHeaders_CustomBounds(t *testing.T) {
	raw := []byte("Short: ok\r\nLonger-Key: ok\r\n")
	got := ParseHeaders(raw, Bounds{MaxKey: 6, MaxValue: 64})
	if _, ok := got["longer-key"]; ok {
		t.Error("key above bound should be skipped")
	}
	if got["short"] != "ok" {
		t.Errorf("short = %q", got["short"])
	}
}

func TestParseHeaders_LaterHopWins(t *testing.T) {
	raw := "HTTP/1.1 302 Found\r\nLocation: /next\r\nX-Hop: 1\r\n\r\nHTTP/1.1 200 OK\r\nX-Hop: 2\r\n\r\n"
	got := ParseHeaders([]byte(raw), DefaultBounds())
	if got["x-hop"] != "2" || got["location"] != "/next" {
		t.Errorf("unexpected map %v", got)
	}
}

func TestApplyLines(t *testing.T) {
	dst := http.Header{}
	dst.Set("Expect", "100-continue")
	applied := ApplyLines([]string{
		"x-trace: abc",
		"X-Trace: def",
		"Expect:",
		"X-Empty;",
		"Host: example.test",
		"garbage",
	}, dst)

	if got := dst.Values("X-Trace"); !reflect.DeepEqual(got, []string{"abc", "def"}) {
		t.Errorf("X-Trace = %q", got)
	}
	if _, ok := dst["Expect"]; ok {
		t.Error("Expect should be removed")
	}
	if !applied.Removed["Expect"] {
		t.Error("Expect should be reported as removed")
	}
	if v, ok := dst["X-Empty"]; !ok || len(v) != 1 || v[0] != "" {
		t.Errorf("X-Empty = %q, %v", v, ok)
	}
	if applied.Host != "example.test" {
		t.Errorf("Host = %q", applied.Host)
	}
	if _, ok := dst["Garbage"]; ok {
		t.Error("garbage line should be ignored")
	}
}
