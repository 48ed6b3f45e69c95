// Package log provides structured protocol logging for chatsock.
//
// This package defines the Logger interface and Event types for capturing
// channel-level events at the transport, resource and manager layers.
// It is separate from operational logging (slog) - protocol capture provides
// a complete machine-readable event trace for debugging and analysis.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/chatsock/client.clog")
//
//	// Both: use a Tee
//	cfg.ProtocolLogger = log.NewTee(slogAdapter, fileLogger)
//
// # Event Types
//
//   - Request: outgoing fetches and server-initiated requests (RequestEvent)
//   - State: channel status and online/offline changes (StateChangeEvent)
//   - Control: keepalive probes and resource closes (KeepAliveEvent, CloseEvent)
//   - Error: failures at any layer (ErrorEventData)
//
// # File Format
//
// Log files use the .clog extension and are a stream of CBOR items: a
// Header carrying the format version, then one item per event. Readers
// reject files without the header and versions newer than FormatVersion.
// The chatsock-log CLI tool views, filters and exports them.
package log
