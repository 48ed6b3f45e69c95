package transport

// CloseCode is the reason a channel resource closed. Nothing above the
// resource distinguishes more than these five values.
type CloseCode uint8

const (
	// CloseNormal is a deliberate close.
	CloseNormal CloseCode = iota
	// CloseAborted is a close of a superseded connection attempt.
	CloseAborted
	// CloseConnectedElsewhere means another session took over.
	CloseConnectedElsewhere
	// CloseConnectionInvalidated means the server revoked the connection.
	CloseConnectionInvalidated
	// CloseUnexpectedDisconnect covers every other drop.
	CloseUnexpectedDisconnect
)

// Numeric close codes as seen on the socket.
const (
	NormalDisconnectCode      = 3000
	UnexpectedDisconnectCode  = 3001
	ConnectedElsewhereCode    = 4409
	ConnectionInvalidatedCode = 4401
)

// String returns the close code name.
func (c CloseCode) String() string {
	switch c {
	case CloseNormal:
		return "NORMAL"
	case CloseAborted:
		return "ABORTED"
	case CloseConnectedElsewhere:
		return "CONNECTED_ELSEWHERE"
	case CloseConnectionInvalidated:
		return "CONNECTION_INVALIDATED"
	case CloseUnexpectedDisconnect:
		return "UNEXPECTED_DISCONNECT"
	default:
		return "UNKNOWN"
	}
}

// Number returns the numeric close code. Aborted closes share the normal
// disconnect code.
func (c CloseCode) Number() int {
	switch c {
	case CloseNormal, CloseAborted:
		return NormalDisconnectCode
	case CloseConnectedElsewhere:
		return ConnectedElsewhereCode
	case CloseConnectionInvalidated:
		return ConnectionInvalidatedCode
	default:
		return UnexpectedDisconnectCode
	}
}

// Reconnects reports whether a close with this code should be followed by
// a reconnect.
func (c CloseCode) Reconnects() bool {
	return c != CloseNormal && c != CloseConnectedElsewhere
}

// CloseCodeForCause maps a transport drop cause to a close code.
func CloseCodeForCause(cause error) CloseCode {
	if cause == nil {
		return CloseNormal
	}
	switch code, _ := ErrorCodeOf(cause); code {
	case ErrorCodeConnectedElsewhere:
		return CloseConnectedElsewhere
	case ErrorCodeConnectionInvalidated:
		return CloseConnectionInvalidated
	default:
		return CloseUnexpectedDisconnect
	}
}

// CloseEvent is the single close notification of a resource.
type CloseEvent struct {
	Code   CloseCode
	Reason string

	// Remote is true when the transport reported the drop.
	Remote bool
}
