package transport

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/chatsock/chatsock-go/pkg/connection"
)

// ResourceProcess is a cancellable attempt to establish a Resource.
type ResourceProcess = connection.Process[*Resource]

// RequestHandler receives server-initiated requests of one channel.
type RequestHandler func(req *IncomingRequest)

// AlertsHandler receives raw alert header values.
type AlertsHandler func(alerts []string)

// resourceHolder routes transport callbacks to the resource once it exists.
// A drop reported before the resource was attached is replayed on attach.
type resourceHolder struct {
	name   string
	logger *slog.Logger

	mu          sync.Mutex
	resource    *Resource
	interrupted bool
	cause       error
}

func (h *resourceHolder) attach(r *Resource) {
	h.mu.Lock()
	if h.interrupted {
		cause := h.cause
		h.mu.Unlock()
		r.OnInterrupted(cause)
		return
	}
	h.resource = r
	h.mu.Unlock()
}

func (h *resourceHolder) current() *Resource {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resource
}

func (h *resourceHolder) OnConnectionInterrupted(cause error) {
	h.mu.Lock()
	r := h.resource
	h.resource = nil
	if r == nil {
		if h.interrupted {
			h.mu.Unlock()
			h.logger.Warn("received connection interrupted, but listener already disconnected", "channel", h.name)
			return
		}
		h.interrupted = true
		h.cause = cause
	}
	h.mu.Unlock()

	if r != nil {
		r.OnInterrupted(cause)
	}
}

// chatListener adapts ChatListener callbacks for the authenticated channel.
type chatListener struct {
	*resourceHolder
	handler  RequestHandler
	onAlerts AlertsHandler
}

func (l *chatListener) OnIncomingMessage(envelope []byte, timestamp time.Time, ack Ack) {
	// Envelopes are delivered even after the resource went away; the server
	// still expects an ack.
	l.handler(NewIncomingRequest(RequestTypeAPIMessage, envelope, timestamp, ack))
}

func (l *chatListener) OnQueueEmpty() {
	if l.current() == nil {
		l.logger.Warn("received queue empty, but listener already disconnected", "channel", l.name)
		return
	}
	l.handler(NewIncomingRequest(RequestTypeAPIEmptyQueue, nil, time.Time{}, nil))
}

func (l *chatListener) OnReceivedAlerts(alerts []string) {
	if l.onAlerts != nil {
		l.onAlerts(alerts)
	}
}

// serverRequestListener adapts ServerRequestListener for provisioning.
type serverRequestListener struct {
	*resourceHolder
	handler RequestHandler
}

func (l *serverRequestListener) OnServerRequest(verb, path string, body []byte, ack Ack) {
	typ := RequestTypeForPath(path)
	if verb != "PUT" {
		typ = RequestTypeUnknown
	}
	l.handler(NewIncomingRequest(typ, body, time.Time{}, ack))
}

// ConnectAuthenticated starts establishing the authenticated channel.
// Inbound requests go to handler; alert headers go to onAlerts.
func ConnectAuthenticated(
	parent context.Context,
	dialer Dialer,
	creds Credentials,
	handler RequestHandler,
	onAlerts AlertsHandler,
	opts ConnectOptions,
	cfg ResourceConfig,
) *ResourceProcess {
	holder := newHolder(cfg)
	listener := &chatListener{resourceHolder: holder, handler: handler, onAlerts: onAlerts}

	return startConnect(parent, holder, cfg, func(ctx context.Context) (ChatConnection, error) {
		return dialer.ConnectAuthenticated(ctx, creds, listener, opts)
	})
}

// ConnectUnauthenticated starts establishing the anonymous channel.
func ConnectUnauthenticated(
	parent context.Context,
	dialer Dialer,
	opts ConnectOptions,
	cfg ResourceConfig,
) *ResourceProcess {
	holder := newHolder(cfg)

	return startConnect(parent, holder, cfg, func(ctx context.Context) (ChatConnection, error) {
		return dialer.ConnectUnauthenticated(ctx, holder, opts)
	})
}

// ConnectProvisioning starts establishing a provisioning channel.
func ConnectProvisioning(
	parent context.Context,
	dialer ProvisioningDialer,
	handler RequestHandler,
	opts ConnectOptions,
	cfg ResourceConfig,
) *ResourceProcess {
	holder := newHolder(cfg)
	listener := &serverRequestListener{resourceHolder: holder, handler: handler}

	return startConnect(parent, holder, cfg, func(ctx context.Context) (ChatConnection, error) {
		return dialer.ConnectProvisioning(ctx, listener, opts)
	})
}

func newHolder(cfg ResourceConfig) *resourceHolder {
	return &resourceHolder{name: cfg.Name, logger: orDiscard(cfg.Logger)}
}

func startConnect(
	parent context.Context,
	holder *resourceHolder,
	cfg ResourceConfig,
	dial func(ctx context.Context) (ChatConnection, error),
) *ResourceProcess {
	logger := orDiscard(cfg.Logger)
	name := cfg.Name + ".connect"

	attempt := func(ctx context.Context) (*Resource, error) {
		start := time.Now()
		conn, err := dial(ctx)
		if err != nil {
			logger.Error("connection failed", "channel", cfg.Name, "error", err)
			return nil, err
		}

		r := NewResource(conn, cfg)
		if ctx.Err() != nil {
			r.Close(CloseAborted, "aborted")
			return nil, connection.ErrAborted
		}
		holder.attach(r)

		logger.Info("connected", "channel", cfg.Name, "local_port", r.LocalPort(),
			"ip_version", r.IPVersion(), "duration", time.Since(start))
		return r, nil
	}

	return connection.StartProcess(parent, name, attempt, func(r *Resource) {
		logger.Warn("closing aborted socket", "channel", cfg.Name)
		r.Close(CloseAborted, "aborted")
	})
}
