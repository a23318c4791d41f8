// Package protocol implements the minimal HTTP/1.x wire format served by
// poolserve: a forgiving request parser and a response serializer.
//
// Parsing never fails. Unrecognized methods and versions degrade to
// MethodUnknown and VersionUnknown, and a request that cannot be read at
// all yields a Request with empty fields.
package protocol

import "strings"

// Method is an HTTP request method.
type Method int

const (
	MethodUnknown Method = iota
	MethodGet
	MethodHead
	MethodPost
	MethodPut
	MethodDelete
	MethodConnect
	MethodOptions
	MethodTrace
	MethodPatch
)

var methodNames = map[Method]string{
	MethodGet:     "GET",
	MethodHead:    "HEAD",
	MethodPost:    "POST",
	MethodPut:     "PUT",
	MethodDelete:  "DELETE",
	MethodConnect: "CONNECT",
	MethodOptions: "OPTIONS",
	MethodTrace:   "TRACE",
	MethodPatch:   "PATCH",
}

// String returns the method token, or UNKNOWN.
func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseMethod maps a request-line token to a Method. Matching is exact;
// methods are case-sensitive on the wire.
func ParseMethod(s string) Method {
	for m, name := range methodNames {
		if name == s {
			return m
		}
	}
	return MethodUnknown
}

// ProtocolVersion is the HTTP version named in a request or response line.
type ProtocolVersion int

const (
	VersionUnknown ProtocolVersion = iota
	VersionHTTP10
	VersionHTTP11
	VersionHTTP2
)

// String returns the version token, or UNKNOWN.
func (v ProtocolVersion) String() string {
	switch v {
	case VersionHTTP10:
		return "HTTP/1.0"
	case VersionHTTP11:
		return "HTTP/1.1"
	case VersionHTTP2:
		return "HTTP/2"
	default:
		return "UNKNOWN"
	}
}

// ParseVersion maps a request-line token to a ProtocolVersion.
func ParseVersion(s string) ProtocolVersion {
	switch s {
	case "HTTP/1.0":
		return VersionHTTP10
	case "HTTP/1.1":
		return VersionHTTP11
	case "HTTP/2", "HTTP/2.0":
		return VersionHTTP2
	default:
		return VersionUnknown
	}
}

// protocolToken marks the request line.
const protocolToken = "HTTP/"

func isRequestLine(line string) bool {
	return strings.Contains(line, protocolToken)
}
