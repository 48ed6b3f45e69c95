// Package wire defines the CBOR frame format spoken by the reference
// WebSocket transport.
//
// Every binary WebSocket message carries one Frame with integer keys. A
// Frame is either a request or a response; requests flow in both
// directions and are matched to responses by ID.
//
// # Server Requests
//
// The server pushes work to the client as requests:
//   - PUT /api/v1/message: one envelope, header X-Timestamp (ms since epoch)
//   - PUT /api/v1/queue/empty: the server-side queue is drained
//
// The client answers each with a response frame carrying the ack status.
package wire
