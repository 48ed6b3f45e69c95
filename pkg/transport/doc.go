// Package transport provides the channel layer of the connection manager.
//
// A channel is one persistent connection to the chat service. The package
// defines the library seen from the manager (Dialer, ChatConnection and the
// listener interfaces) and the pieces layered on top of a live connection:
//
//   - Resource wraps one ChatConnection, owns its keepalive and reports
//     exactly one CloseEvent to its observers.
//   - KeepAlive probes the connection periodically and closes the resource
//     on a failed, late or stale probe.
//   - ConnectAuthenticated, ConnectUnauthenticated and ConnectProvisioning
//     start cancellable attempts that resolve to a Resource.
//
// # Close Codes
//
// Resources close with one of five codes. Only CloseNormal and
// CloseConnectedElsewhere are final; every other code is followed by a
// reconnect when credentials are present.
//
//	NORMAL                   3000  deliberate close
//	ABORTED                  3000  superseded attempt
//	CONNECTED_ELSEWHERE      4409  another session took over
//	CONNECTION_INVALIDATED   4401  server revoked the connection
//	UNEXPECTED_DISCONNECT    3001  everything else
//
// # WebSocket Dialer
//
// WebSocketDialer is the reference Dialer. Every binary message carries one
// CBOR wire.Frame; requests in either direction are answered by a response
// echoing the request ID. The server pushes envelopes as
// PUT /api/v1/message and signals a drained queue with
// PUT /api/v1/queue/empty.
package transport
