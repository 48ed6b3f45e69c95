package log

import (
	"errors"
	"io"
)

// Logger receives protocol events from the transport, resource and
// manager layers. Log is called on the connection's goroutines and must
// not block.
type Logger interface {
	Log(event Event)
}

// NoopLogger discards all events.
type NoopLogger struct{}

func (NoopLogger) Log(Event) {}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(Event)

func (f LoggerFunc) Log(event Event) { f(event) }

// OrNoop returns l, or NoopLogger if l is nil.
func OrNoop(l Logger) Logger {
	if l == nil {
		return NoopLogger{}
	}
	return l
}

// Tee copies each event to all of its loggers, in order.
type Tee []Logger

// NewTee builds a Tee from loggers. Nil entries are dropped and nested
// tees are flattened.
func NewTee(loggers ...Logger) Tee {
	var t Tee
	for _, l := range loggers {
		switch l := l.(type) {
		case nil:
		case Tee:
			t = append(t, l...)
		default:
			t = append(t, l)
		}
	}
	return t
}

func (t Tee) Log(event Event) {
	for _, l := range t {
		l.Log(event)
	}
}

// Close closes every member that is an io.Closer.
func (t Tee) Close() error {
	var errs []error
	for _, l := range t {
		if c, ok := l.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

var (
	_ Logger = NoopLogger{}
	_ Logger = LoggerFunc(nil)
	_ Logger = Tee(nil)
)
