package log

import (
	"time"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the channel resource (UUID).
	ConnectionID string `cbor:"2,keyasint,omitempty"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Channel is the logical channel name ("authenticated", "unauthenticated",
	// "provisioning").
	Channel string `cbor:"6,keyasint,omitempty"`

	// LocalPort is the local port of the underlying connection, if known.
	LocalPort int `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Request     *RequestEvent     `cbor:"10,keyasint,omitempty"` // Request/response traffic
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"` // Channel/network state
	Close       *CloseEvent       `cbor:"12,keyasint,omitempty"` // Resource close
	KeepAlive   *KeepAliveEvent   `cbor:"13,keyasint,omitempty"` // Keepalive probe
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates a server-initiated request.
	DirectionIn Direction = 0
	// DirectionOut indicates a client-initiated request.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which component captured the event.
type Layer uint8

const (
	// LayerTransport is the transport library boundary.
	LayerTransport Layer = 0
	// LayerResource is the channel resource (keepalive, close handling).
	LayerResource Layer = 1
	// LayerManager is the connection manager.
	LayerManager Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerResource:
		return "RESOURCE"
	case LayerManager:
		return "MANAGER"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryRequest indicates request/response traffic.
	CategoryRequest Category = 0
	// CategoryControl indicates a keepalive or close.
	CategoryControl Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryRequest:
		return "REQUEST"
	case CategoryControl:
		return "CONTROL"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// RequestEvent captures one request and, once known, its response status.
type RequestEvent struct {
	// Verb is the request method (GET, PUT, ...).
	Verb string `cbor:"1,keyasint"`

	// Path is the request path.
	Path string `cbor:"2,keyasint"`

	// Status is the response status (nil while the request is in flight or
	// when it failed without a response).
	Status *int `cbor:"3,keyasint,omitempty"`

	// RequestType classifies server-initiated requests.
	RequestType string `cbor:"4,keyasint,omitempty"`

	// BodySize is the request body length in bytes.
	BodySize int `cbor:"5,keyasint,omitempty"`

	// Duration from send to response. Stored as nanoseconds.
	Duration *time.Duration `cbor:"6,keyasint,omitempty"`
}

// StateChangeEvent captures channel and network lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityChannel indicates a channel state change.
	StateEntityChannel StateEntity = 0
	// StateEntityNetwork indicates an online/offline change.
	StateEntityNetwork StateEntity = 1
	// StateEntityExpiration indicates the manager expired.
	StateEntityExpiration StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityChannel:
		return "CHANNEL"
	case StateEntityNetwork:
		return "NETWORK"
	case StateEntityExpiration:
		return "EXPIRATION"
	default:
		return "UNKNOWN"
	}
}

// CloseEvent captures the single close notification of a resource.
type CloseEvent struct {
	// Code is the numeric close code.
	Code int `cbor:"1,keyasint"`

	// CodeName is the symbolic close code.
	CodeName string `cbor:"2,keyasint,omitempty"`

	// Reason is the close reason.
	Reason string `cbor:"3,keyasint,omitempty"`

	// Remote is true when the transport reported the drop.
	Remote bool `cbor:"4,keyasint,omitempty"`
}

// KeepAliveEvent captures the outcome of a keepalive probe.
type KeepAliveEvent struct {
	// Result is the probe outcome (SUCCESS, STALE, BAD_STATUS, FAILURE).
	Result string `cbor:"1,keyasint"`

	// RTT is the probe round trip. Stored as nanoseconds.
	RTT time.Duration `cbor:"2,keyasint,omitempty"`

	// Status is the response status for BAD_STATUS results.
	Status int `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the error code (if applicable).
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
