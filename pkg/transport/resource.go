package transport

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chatsock/chatsock-go/pkg/log"
	"github.com/chatsock/chatsock-go/pkg/metrics"
)

// ResourceConfig configures a channel resource.
type ResourceConfig struct {
	// Name identifies the channel in logs ("authenticated", ...).
	Name string

	// KeepAlive configures the liveness checker.
	KeepAlive KeepAliveConfig

	// OnKeepAlive is notified after every keepalive probe.
	OnKeepAlive KeepAliveObserver

	// Logger for operational logging. Nil disables it.
	Logger *slog.Logger

	// ProtocolLogger receives request, keepalive and close events.
	ProtocolLogger log.Logger
}

// Resource wraps one live ChatConnection. It owns the connection's
// keepalive and reports exactly one close notification.
type Resource struct {
	id     string
	name   string
	conn   ChatConnection
	info   ConnectionInfo
	logger *slog.Logger
	plog   log.Logger

	keepalive *KeepAlive

	mu         sync.Mutex
	closed     bool
	closeEvent CloseEvent
	observers  []func(CloseEvent)
}

// NewResource wraps conn and arms its keepalive.
func NewResource(conn ChatConnection, cfg ResourceConfig) *Resource {
	id := uuid.NewString()
	logger := orDiscard(cfg.Logger).With("channel", cfg.Name, "conn_id", id)

	r := &Resource{
		id:     id,
		name:   cfg.Name,
		conn:   conn,
		info:   conn.Info(),
		logger: logger,
		plog:   log.OrNoop(cfg.ProtocolLogger),
	}

	r.keepalive = NewKeepAlive(cfg.KeepAlive, r, logger)
	r.keepalive.SetObserver(func(result KeepAliveResult, rtt time.Duration, status int) {
		r.logKeepAlive(result, rtt, status)
		if cfg.OnKeepAlive != nil {
			cfg.OnKeepAlive(result, rtt, status)
		}
	})

	// The keepalive must stop before any other close observer runs.
	r.observers = append(r.observers, func(CloseEvent) { r.keepalive.Stop() })
	r.keepalive.Reset()

	return r
}

// ID returns the resource's unique ID.
func (r *Resource) ID() string {
	return r.id
}

// Name returns the channel name.
func (r *Resource) Name() string {
	return r.name
}

// Info returns the connection info captured at creation.
func (r *Resource) Info() ConnectionInfo {
	return r.info
}

// LocalPort returns the local port of the underlying connection.
func (r *Resource) LocalPort() int {
	return r.info.LocalPort
}

// IPVersion returns the IP family of the underlying connection.
func (r *Resource) IPVersion() IPVersion {
	return r.info.IPVersion
}

// KeepAlive returns the resource's keepalive checker.
func (r *Resource) KeepAlive() *KeepAlive {
	return r.keepalive
}

// Closed reports whether the resource has closed.
func (r *Resource) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// SendRequest sends req on the connection. A positive req.Timeout bounds the
// request in addition to ctx.
func (r *Resource) SendRequest(ctx context.Context, req *Request) (*Response, error) {
	if r.Closed() {
		return nil, ErrClosed
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := r.conn.Fetch(ctx, req)
	elapsed := time.Since(start)

	event := &log.RequestEvent{
		Verb:     req.Verb,
		Path:     req.Path,
		BodySize: len(req.Body),
		Duration: &elapsed,
	}
	if resp != nil {
		status := resp.Status
		event.Status = &status
	}
	r.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: r.id,
		Direction:    log.DirectionOut,
		Layer:        log.LayerResource,
		Category:     log.CategoryRequest,
		Channel:      r.name,
		LocalPort:    r.info.LocalPort,
		Request:      event,
	})

	return resp, err
}

// OnClose registers fn to receive the close notification. Observers run in
// registration order. If the resource already closed, fn runs immediately
// with the recorded event.
func (r *Resource) OnClose(fn func(CloseEvent)) {
	r.mu.Lock()
	if r.closed {
		ev := r.closeEvent
		r.mu.Unlock()
		fn(ev)
		return
	}
	r.observers = append(r.observers, fn)
	r.mu.Unlock()
}

// Close disconnects the transport and dispatches the close notification.
// Only the first call has any effect.
func (r *Resource) Close(code CloseCode, reason string) {
	if reason == "" {
		reason = "no reason provided"
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Info("close: already closed", "code", code, "reason", reason)
		return
	}
	r.closed = true
	r.closeEvent = CloseEvent{Code: code, Reason: reason}
	r.mu.Unlock()

	if err := r.conn.Disconnect(); err != nil {
		r.logger.Debug("disconnect failed", "error", err)
	}

	r.dispatchClose()
}

// Shutdown closes the resource normally.
func (r *Resource) Shutdown() {
	r.Close(CloseNormal, "shutdown")
}

// OnInterrupted handles a drop reported by the transport. The transport is
// already gone, so Disconnect is not called.
func (r *Resource) OnInterrupted(cause error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		if cause != nil {
			r.logger.Info("connection interrupted after resource closed", "cause", cause)
		}
		return
	}

	reason := "normal"
	if cause != nil {
		reason = cause.Error()
	}

	r.closed = true
	r.closeEvent = CloseEvent{Code: CloseCodeForCause(cause), Reason: reason, Remote: true}
	r.mu.Unlock()

	r.logger.Warn("connection closed", "code", r.closeEvent.Code, "reason", reason)
	r.dispatchClose()
}

// ForceKeepAlive probes the connection now without blocking. timeout <= 0
// uses the configured probe timeout.
func (r *Resource) ForceKeepAlive(timeout time.Duration) {
	go r.keepalive.Send(timeout)
}

// CheckKeepAlive probes the connection now and blocks until the probe
// settles.
func (r *Resource) CheckKeepAlive(timeout time.Duration) bool {
	return r.keepalive.Send(timeout)
}

func (r *Resource) dispatchClose() {
	r.mu.Lock()
	ev := r.closeEvent
	observers := r.observers
	r.observers = nil
	r.mu.Unlock()

	metrics.CloseTotal.WithLabelValues(r.name, ev.Code.String()).Inc()
	r.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: r.id,
		Layer:        log.LayerResource,
		Category:     log.CategoryControl,
		Channel:      r.name,
		LocalPort:    r.info.LocalPort,
		Close: &log.CloseEvent{
			Code:     ev.Code.Number(),
			CodeName: ev.Code.String(),
			Reason:   ev.Reason,
			Remote:   ev.Remote,
		},
	})

	for _, fn := range observers {
		fn(ev)
	}
}

func (r *Resource) logKeepAlive(result KeepAliveResult, rtt time.Duration, status int) {
	r.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: r.id,
		Direction:    log.DirectionOut,
		Layer:        log.LayerResource,
		Category:     log.CategoryControl,
		Channel:      r.name,
		LocalPort:    r.info.LocalPort,
		KeepAlive: &log.KeepAliveEvent{
			Result: result.String(),
			RTT:    rtt,
			Status: status,
		},
	})
}

// Compile-time interface satisfaction check.
var _ KeepAliveTarget = (*Resource)(nil)
