package wire

import (
	"errors"
	"net/http"
	"sort"
	"strings"
)

// Frame validation errors.
var (
	ErrUnknownFrameType = errors.New("unknown frame type")
	ErrMissingPayload   = errors.New("frame payload missing")
	ErrMissingVerb      = errors.New("request verb missing")
	ErrMissingPath      = errors.New("request path missing")
)

// FrameType distinguishes requests from responses.
type FrameType uint8

const (
	// FrameTypeRequest carries a RequestFrame.
	FrameTypeRequest FrameType = 1
	// FrameTypeResponse carries a ResponseFrame.
	FrameTypeResponse FrameType = 2
)

// String returns the frame type name.
func (t FrameType) String() string {
	switch t {
	case FrameTypeRequest:
		return "REQUEST"
	case FrameTypeResponse:
		return "RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// Frame is one binary WebSocket message. Either side may send requests;
// a response echoes the ID of the request it answers.
type Frame struct {
	Type     FrameType      `cbor:"1,keyasint"`
	Request  *RequestFrame  `cbor:"2,keyasint,omitempty"`
	Response *ResponseFrame `cbor:"3,keyasint,omitempty"`
}

// RequestFrame is a request in either direction.
type RequestFrame struct {
	ID      uint64   `cbor:"1,keyasint"`
	Verb    string   `cbor:"2,keyasint"`
	Path    string   `cbor:"3,keyasint"`
	Headers []string `cbor:"4,keyasint,omitempty"` // "name:value"
	Body    []byte   `cbor:"5,keyasint,omitempty"`
}

// ResponseFrame answers the request with the same ID.
type ResponseFrame struct {
	ID      uint64   `cbor:"1,keyasint"`
	Status  int      `cbor:"2,keyasint"`
	Message string   `cbor:"3,keyasint,omitempty"`
	Headers []string `cbor:"4,keyasint,omitempty"`
	Body    []byte   `cbor:"5,keyasint,omitempty"`
}

// Validate checks that the frame carries the payload its type announces.
func (f *Frame) Validate() error {
	switch f.Type {
	case FrameTypeRequest:
		if f.Request == nil {
			return ErrMissingPayload
		}
		if f.Request.Verb == "" {
			return ErrMissingVerb
		}
		if f.Request.Path == "" {
			return ErrMissingPath
		}
	case FrameTypeResponse:
		if f.Response == nil {
			return ErrMissingPayload
		}
	default:
		return ErrUnknownFrameType
	}
	return nil
}

// Header returns the value of the first header line with the given name
// (case-insensitive), or "".
func (r *RequestFrame) Header(name string) string {
	return ParseHeaderLines(r.Headers).Get(name)
}

// HeaderLines flattens h into sorted "name:value" lines.
func HeaderLines(h http.Header) []string {
	if len(h) == 0 {
		return nil
	}
	lines := make([]string, 0, len(h))
	for name, values := range h {
		for _, v := range values {
			lines = append(lines, strings.ToLower(name)+":"+v)
		}
	}
	sort.Strings(lines)
	return lines
}

// ParseHeaderLines is the inverse of HeaderLines. Lines without a colon are
// skipped.
func ParseHeaderLines(lines []string) http.Header {
	h := make(http.Header, len(lines))
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		h.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return h
}
