package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// Transport errors.
var (
	ErrConnectTimeout = errors.New("connect timeout")
	ErrClosed         = errors.New("resource closed")
	ErrNotConnected   = errors.New("not connected")
)

// ErrorCode classifies errors reported by the transport library.
type ErrorCode uint8

const (
	// ErrorCodeUnknown is any failure not listed below.
	ErrorCodeUnknown ErrorCode = iota
	// ErrorCodeIO is a network-level failure.
	ErrorCodeIO
	// ErrorCodeConnectedElsewhere means another session replaced this one.
	ErrorCodeConnectedElsewhere
	// ErrorCodeConnectionInvalidated means the server revoked the connection.
	ErrorCodeConnectionInvalidated
	// ErrorCodeDeviceDelinked means this device is no longer linked.
	ErrorCodeDeviceDelinked
	// ErrorCodeAppExpired means this client build is too old.
	ErrorCodeAppExpired
	// ErrorCodeRateLimited means the server throttled the connect.
	ErrorCodeRateLimited
)

// String returns the code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeIO:
		return "IO"
	case ErrorCodeConnectedElsewhere:
		return "CONNECTED_ELSEWHERE"
	case ErrorCodeConnectionInvalidated:
		return "CONNECTION_INVALIDATED"
	case ErrorCodeDeviceDelinked:
		return "DEVICE_DELINKED"
	case ErrorCodeAppExpired:
		return "APP_EXPIRED"
	case ErrorCodeRateLimited:
		return "RATE_LIMITED"
	default:
		return "UNKNOWN"
	}
}

// Error is a classified transport library error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// NewError creates a transport error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		return fmt.Sprintf("transport error %s", e.Code)
	}
	return fmt.Sprintf("transport error %s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCodeOf returns the code of the first *Error in err's chain.
func ErrorCodeOf(err error) (ErrorCode, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Code, true
	}
	return ErrorCodeUnknown, false
}

// HasErrorCode reports whether err carries the given transport error code.
func HasErrorCode(err error, code ErrorCode) bool {
	c, ok := ErrorCodeOf(err)
	return ok && c == code
}

// HTTPError is a failure with an HTTP-like status. Code -1 means the
// request never reached the server.
type HTTPError struct {
	Code    int
	Message string
	Header  http.Header
	Cause   error
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("http %d", e.Code)
}

func (e *HTTPError) Unwrap() error {
	return e.Cause
}

// NewHTTPError creates an HTTPError wrapping cause.
func NewHTTPError(code int, message string, cause error) *HTTPError {
	return &HTTPError{Code: code, Message: message, Cause: cause}
}

// HTTPStatusOf returns the code of the first *HTTPError in err's chain.
func HTTPStatusOf(err error) (int, bool) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Code, true
	}
	return 0, false
}
