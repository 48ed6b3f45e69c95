// Package connection provides the building blocks of connection lifecycle
// management.
//
// This package handles:
//   - Sequence backoff with jitter for reconnect delays
//   - Cancellable connection attempts (Process)
//   - Per-channel state tracking with checked transitions
//   - A reconnect loop that runs delayed rounds one at a time
//
// # Reconnection Strategy
//
// Delays follow a Fibonacci sequence of seconds:
//
//	1, 2, 3, 5, 8, 13, 21, 34, 55
//
// The last value repeats until the backoff is reset. While the device is
// believed to be offline the sequence is swapped for an extended one that
// continues up to 10946 seconds.
//
// # Jitter
//
// To prevent thundering herd when many clients reconnect:
//
//	actual_delay = base_delay + random(0, 5s)
//
// # Attempts
//
// A Process owns exactly one attempt. Aborting it either cancels the attempt
// or closes the value it produced, so an aborted attempt never leaks a live
// connection.
package connection
