package transport

import (
	"context"
	"net/http"
	"time"
)

// Credentials identify the account on the authenticated channel.
// Two Credentials are the same login when they compare equal.
type Credentials struct {
	Username string
	Password string
}

// Empty reports whether neither field is set.
func (c Credentials) Empty() bool {
	return c.Username == "" && c.Password == ""
}

// IPVersion is the IP family of an established connection.
type IPVersion uint8

const (
	// IPv4 connection.
	IPv4 IPVersion = 4
	// IPv6 connection.
	IPv6 IPVersion = 6
)

// String returns "ipv4", "ipv6" or "unknown".
func (v IPVersion) String() string {
	switch v {
	case IPv4:
		return "ipv4"
	case IPv6:
		return "ipv6"
	default:
		return "unknown"
	}
}

// ConnectionInfo describes an established connection.
type ConnectionInfo struct {
	IPVersion IPVersion
	LocalPort int
}

// Request is an outgoing request on a channel.
type Request struct {
	Verb   string
	Path   string
	Header http.Header
	Body   []byte

	// Timeout bounds the request when positive.
	Timeout time.Duration
}

// Response is the server's answer to a Request.
type Response struct {
	Status  int
	Message string
	Header  http.Header
	Body    []byte
}

// OK reports whether the status is in [200, 300).
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Ack acknowledges a server-pushed message.
type Ack interface {
	Send(status int) error
}

// ConnectionListener receives the drop notification of a connection.
// A nil cause means the connection closed normally.
type ConnectionListener interface {
	OnConnectionInterrupted(cause error)
}

// ChatListener receives server-pushed traffic on the authenticated channel.
type ChatListener interface {
	ConnectionListener

	// OnIncomingMessage delivers one envelope. timestamp is the server time
	// the envelope was queued.
	OnIncomingMessage(envelope []byte, timestamp time.Time, ack Ack)

	// OnQueueEmpty signals the server has delivered all queued envelopes.
	OnQueueEmpty()

	// OnReceivedAlerts delivers raw alert header values.
	OnReceivedAlerts(alerts []string)
}

// ServerRequestListener receives arbitrary server-initiated requests. It is
// used by the provisioning channel.
type ServerRequestListener interface {
	ConnectionListener

	OnServerRequest(verb, path string, body []byte, ack Ack)
}

// ConnectOptions tunes a connection attempt.
type ConnectOptions struct {
	// ReceiveStories asks the server to deliver stories.
	ReceiveStories bool

	// Languages is the ordered list of preferred languages.
	Languages []string

	// Header carries extra upgrade headers.
	Header http.Header
}

// ChatConnection is a live connection returned by a Dialer.
type ChatConnection interface {
	// Fetch sends a request and waits for the response.
	Fetch(ctx context.Context, req *Request) (*Response, error)

	// Info returns the connection's IP version and local port.
	Info() ConnectionInfo

	// Disconnect closes the connection. The listener is not notified.
	Disconnect() error
}

// Dialer establishes chat connections. It is the secure-channel library
// seen from the connection manager.
type Dialer interface {
	ConnectAuthenticated(ctx context.Context, creds Credentials, listener ChatListener, opts ConnectOptions) (ChatConnection, error)
	ConnectUnauthenticated(ctx context.Context, listener ConnectionListener, opts ConnectOptions) (ChatConnection, error)
}

// ProvisioningDialer establishes the provisioning channel.
type ProvisioningDialer interface {
	ConnectProvisioning(ctx context.Context, listener ServerRequestListener, opts ConnectOptions) (ChatConnection, error)
}

// Compile-time interface satisfaction checks.
var (
	_ Dialer             = (*WebSocketDialer)(nil)
	_ ProvisioningDialer = (*WebSocketDialer)(nil)
	_ ChatConnection     = (*wsConnection)(nil)
)
