package protocol

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// Request is a parsed client request.
type Request struct {
	Method  Method
	Version ProtocolVersion
	Path    string
	// Headers keeps keys as received; a repeated key keeps its last value.
	Headers map[string]string
	// Body holds only the first non-empty line after the header block.
	Body string
}

// Header returns the value for key, matched exactly.
func (r *Request) Header(key string) (string, bool) {
	v, ok := r.Headers[key]
	return v, ok
}

// Parse builds a Request from the raw bytes of one connection read. The
// buffer may be truncated or padded with NUL bytes. Parse never fails.
func Parse(buf []byte) *Request {
	req := &Request{
		Method:  MethodUnknown,
		Version: VersionUnknown,
		Headers: make(map[string]string),
	}

	text := decode(buf)
	if text == "" {
		return req
	}

	const (
		seekingRequestLine = iota
		inHeaders
		inBody
	)
	state := seekingRequestLine

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")

		switch state {
		case seekingRequestLine:
			if !isRequestLine(line) {
				continue
			}
			parseRequestLine(req, line)
			state = inHeaders

		case inHeaders:
			if strings.TrimSpace(line) == "" {
				state = inBody
				continue
			}
			key, value, found := strings.Cut(line, ":")
			if !found {
				continue
			}
			req.Headers[strings.TrimSpace(key)] = strings.TrimSpace(value)

		case inBody:
			if strings.TrimSpace(line) != "" {
				req.Body = line
				return req
			}
		}
	}

	return req
}

func parseRequestLine(req *Request, line string) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return
	}
	req.Method = ParseMethod(fields[0])
	req.Path = fields[1]
	req.Version = ParseVersion(fields[2])
}

// decode converts buf to a string, replacing invalid UTF-8 sequences and
// dropping trailing NUL padding.
func decode(buf []byte) string {
	buf = trimNUL(buf)
	if len(buf) == 0 {
		return ""
	}

	out, err := unicode.UTF8.NewDecoder().Bytes(buf)
	if err != nil {
		return strings.ToValidUTF8(string(buf), "�")
	}
	return string(out)
}

func trimNUL(buf []byte) []byte {
	end := len(buf)
	for end > 0 && buf[end-1] == 0 {
		end--
	}
	return buf[:end]
}
