package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/chatsock/chatsock-go/pkg/connection"
	"github.com/chatsock/chatsock-go/pkg/transport"
)

// failureClass is the manager's reaction to a failed authenticated connect.
type failureClass uint8

const (
	// failureIgnored - the attempt was aborted or superseded.
	failureIgnored failureClass = iota

	// failureFatal - stop connecting until the caller intervenes.
	failureFatal

	// failureCaller - surface to the caller without retrying.
	failureCaller

	// failureRetryable - schedule a delayed reconnect.
	failureRetryable
)

// String returns the class name.
func (c failureClass) String() string {
	switch c {
	case failureIgnored:
		return "IGNORED"
	case failureFatal:
		return "FATAL"
	case failureCaller:
		return "CALLER"
	case failureRetryable:
		return "RETRYABLE"
	default:
		return "UNKNOWN"
	}
}

// connectFailure is the outcome of classifyConnectError.
type connectFailure struct {
	class failureClass

	// event is emitted when hasEvent is set.
	event    EventType
	hasEvent bool

	// offline marks the network unreachable.
	offline bool
}

// classifyConnectError decides how an authenticated connect failure is
// handled.
func classifyConnectError(err error) connectFailure {
	if errors.Is(err, connection.ErrAborted) || errors.Is(err, context.Canceled) {
		return connectFailure{class: failureIgnored}
	}

	if code, ok := transport.ErrorCodeOf(err); ok {
		switch code {
		case transport.ErrorCodeDeviceDelinked:
			return connectFailure{class: failureFatal, event: EventAuthError, hasEvent: true}
		case transport.ErrorCodeAppExpired:
			return connectFailure{class: failureFatal, event: EventAppExpired, hasEvent: true}
		case transport.ErrorCodeRateLimited:
			return connectFailure{class: failureCaller}
		case transport.ErrorCodeIO:
			return connectFailure{class: failureRetryable, offline: true}
		default:
			return connectFailure{class: failureRetryable}
		}
	}

	if errors.Is(err, transport.ErrConnectTimeout) {
		return connectFailure{class: failureRetryable, offline: true}
	}

	if status, ok := transport.HTTPStatusOf(err); ok {
		switch {
		case status == -1:
			return connectFailure{class: failureRetryable, offline: true}
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return connectFailure{class: failureFatal, event: EventAuthError, hasEvent: true}
		case status >= 500 && status <= 599:
			return connectFailure{class: failureRetryable}
		default:
			return connectFailure{class: failureFatal}
		}
	}

	return connectFailure{class: failureRetryable}
}

// mapUnauthenticatedError converts anonymous connect failures into the
// errors Fetch callers see.
func mapUnauthenticatedError(err error) error {
	code, ok := transport.ErrorCodeOf(err)
	if !ok {
		return err
	}
	switch code {
	case transport.ErrorCodeDeviceDelinked:
		return transport.NewHTTPError(http.StatusForbidden, "device delinked", err)
	case transport.ErrorCodeAppExpired:
		return transport.NewHTTPError(transport.StatusAppExpired, "app expired", err)
	case transport.ErrorCodeRateLimited:
		return transport.NewHTTPError(http.StatusTooManyRequests, "rate limited", err)
	case transport.ErrorCodeIO:
		return errors.Join(transport.ErrConnectTimeout, err)
	default:
		return err
	}
}
