// Package service keeps a client's chat channels connected.
//
// SocketManager owns two channels to the chat service:
//   - the authenticated channel, opened with the user's credentials, which
//     carries inbound envelopes and reconnects with back-off when it drops
//   - the anonymous channel, opened lazily by the first anonymous Fetch and
//     rotated every few minutes
//
// Example usage:
//
//	dialer, _ := transport.NewWebSocketDialer(transport.WebSocketDialerConfig{URL: url})
//	config := service.DefaultManagerConfig()
//	config.Dialer = dialer
//
//	m, err := service.NewSocketManager(config)
//	m.OnEvent(func(ev service.Event) { ... })
//	m.RegisterRequestHandler(handler)
//	err = m.Authenticate(ctx, transport.Credentials{Username: u, Password: p})
//	defer m.Close()
//
// # Connection Lifecycle
//
// Each channel moves through CLOSED, CONNECTING and OPEN. A connect is a
// cancellable process; starting a new one aborts the previous one, and
// completions or close notifications from a superseded process are ignored.
//
// When the authenticated channel closes with anything but a normal close
// or a takeover by another session, a reconnect is scheduled. Delays
// follow a Fibonacci sequence with jitter. While the network is reported
// offline a longer sequence is used, and reporting it online cancels the
// pending delay and reconnects at once.
//
// Connect failures are classified:
//
//	401, 403, device delinked   fatal, EventAuthError
//	app expired                 fatal, EventAppExpired
//	other 4xx                   fatal
//	rate limited                returned as HTTP 429, no retry
//	timeout, network error      retried, marks the network offline
//	5xx, unknown                retried
//
// # Inbound Requests
//
// Inbound requests are delivered to every registered RequestHandler in
// arrival order. With no handler registered they are queued until one is.
// The first envelope after each connect is also reported as
// EventFirstEnvelope.
//
// # Expiration
//
// OnExpiration is terminal: it logs out and every later Authenticate fails
// with ErrExpired without dialing.
package service
