package transport

import (
	"sync"
	"time"
)

// RequestType classifies a server-initiated request by its path.
type RequestType uint8

const (
	// RequestTypeUnknown is any path not listed below.
	RequestTypeUnknown RequestType = iota
	// RequestTypeAPIMessage carries one envelope.
	RequestTypeAPIMessage
	// RequestTypeAPIEmptyQueue signals the server queue is drained.
	RequestTypeAPIEmptyQueue
	// RequestTypeProvisioningMessage carries a provisioning envelope.
	RequestTypeProvisioningMessage
	// RequestTypeProvisioningAddress carries the provisioning address.
	RequestTypeProvisioningAddress
)

// Server request paths.
const (
	PathAPIMessage          = "/api/v1/message"
	PathAPIEmptyQueue       = "/api/v1/queue/empty"
	PathProvisioningMessage = "/v1/message"
	PathProvisioningAddress = "/v1/address"
)

// String returns the request type name.
func (t RequestType) String() string {
	switch t {
	case RequestTypeAPIMessage:
		return "API_MESSAGE"
	case RequestTypeAPIEmptyQueue:
		return "API_EMPTY_QUEUE"
	case RequestTypeProvisioningMessage:
		return "PROVISIONING_MESSAGE"
	case RequestTypeProvisioningAddress:
		return "PROVISIONING_ADDRESS"
	default:
		return "UNKNOWN"
	}
}

// Path returns the request path of the type, or "" for unknown.
func (t RequestType) Path() string {
	switch t {
	case RequestTypeAPIMessage:
		return PathAPIMessage
	case RequestTypeAPIEmptyQueue:
		return PathAPIEmptyQueue
	case RequestTypeProvisioningMessage:
		return PathProvisioningMessage
	case RequestTypeProvisioningAddress:
		return PathProvisioningAddress
	default:
		return ""
	}
}

// RequestTypeForPath maps a server request path to its type.
func RequestTypeForPath(path string) RequestType {
	switch path {
	case PathAPIMessage:
		return RequestTypeAPIMessage
	case PathAPIEmptyQueue:
		return RequestTypeAPIEmptyQueue
	case PathProvisioningMessage:
		return RequestTypeProvisioningMessage
	case PathProvisioningAddress:
		return RequestTypeProvisioningAddress
	default:
		return RequestTypeUnknown
	}
}

// IncomingRequest is a server-initiated request delivered to handlers.
type IncomingRequest struct {
	Type RequestType

	// Body is nil for requests without a body.
	Body []byte

	// Timestamp is zero when the server did not send one.
	Timestamp time.Time

	ack  Ack
	once sync.Once
}

// NewIncomingRequest creates a request. ack may be nil.
func NewIncomingRequest(typ RequestType, body []byte, timestamp time.Time, ack Ack) *IncomingRequest {
	return &IncomingRequest{Type: typ, Body: body, Timestamp: timestamp, ack: ack}
}

// Respond acknowledges the request. Only the first call is sent; requests
// without an ack ignore it.
func (r *IncomingRequest) Respond(status int) error {
	var err error
	r.once.Do(func() {
		if r.ack != nil {
			err = r.ack.Send(status)
		}
	})
	return err
}
