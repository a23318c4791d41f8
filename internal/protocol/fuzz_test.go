package protocol

import (
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"
)

func FuzzParse(f *testing.F) {
	f.Add([]byte("GET / HTTP/1.1\r\nHost: localhost\r\n\r\n"))
	f.Add([]byte("POST /api HTTP/1.0\n\nbody"))
	f.Add([]byte("HTTP/"))
	f.Add([]byte(":::\r\n\r\n"))
	f.Add([]byte{0xff, 0xfe, 0x00, 0x00})
	f.Add([]byte(""))

	f.Fuzz(func(t *testing.T, data []byte) {
		req := Parse(data)
		if req == nil {
			t.Fatal("Parse returned nil")
		}
		if req.Headers == nil {
			t.Fatal("Parse returned nil headers")
		}
		if !utf8.ValidString(req.Path) || !utf8.ValidString(req.Body) {
			t.Errorf("Parse produced invalid UTF-8")
		}
		if strings.ContainsAny(req.Body, "\n") {
			t.Errorf("body spans lines: %q", req.Body)
		}
	})
}

func FuzzResponseContentLength(f *testing.F) {
	f.Add([]byte("hello"), "text/plain")
	f.Add([]byte("✓✓✓"), "text/html")
	f.Add([]byte{}, "")

	f.Fuzz(func(t *testing.T, body []byte, contentType string) {
		resp := NewResponse(StatusOK, map[string]string{"Content-Type": contentType}, body)
		out := string(resp.Bytes())

		want := "\r\nContent-Length: " + strconv.Itoa(len(body)) + "\r\n"
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
		if !strings.HasSuffix(out, string(body)) {
			t.Errorf("body not at end of response")
		}
	})
}
