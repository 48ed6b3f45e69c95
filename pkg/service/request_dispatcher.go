package service

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/chatsock/chatsock-go/pkg/metrics"
	"github.com/chatsock/chatsock-go/pkg/transport"
)

// RequestDispatcher routes inbound requests of the authenticated channel to
// the registered handlers. Requests that arrive while no handler is
// registered are queued and drained, in order, to the first handler.
//
// Delivery is serialised: handlers never see two requests at once and must
// not register handlers from within HandleRequest.
type RequestDispatcher struct {
	// Held for the whole of a delivery or drain
	deliverMu sync.Mutex

	mu       sync.Mutex
	handlers []RequestHandler
	queue    []*transport.IncomingRequest

	logger *slog.Logger
}

// NewRequestDispatcher creates an empty dispatcher.
func NewRequestDispatcher(logger *slog.Logger) *RequestDispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RequestDispatcher{logger: logger}
}

// Dispatch delivers req to every handler, or queues it when there are none.
func (d *RequestDispatcher) Dispatch(req *transport.IncomingRequest) {
	d.deliverMu.Lock()
	defer d.deliverMu.Unlock()

	metrics.InboundRequestsTotal.WithLabelValues(req.Type.String()).Inc()

	d.mu.Lock()
	if len(d.handlers) == 0 {
		d.queue = append(d.queue, req)
		size := len(d.queue)
		d.mu.Unlock()

		metrics.InboundQueueLength.Set(float64(size))
		d.logger.Info("request handler unavailable, queued request", "type", req.Type, "queue_size", size)
		return
	}
	handlers := slices.Clone(d.handlers)
	d.mu.Unlock()

	d.deliver(handlers, req)
}

// Register adds h and drains queued requests to the handlers in arrival
// order.
func (d *RequestDispatcher) Register(h RequestHandler) {
	d.deliverMu.Lock()
	defer d.deliverMu.Unlock()

	d.mu.Lock()
	d.handlers = append(d.handlers, h)
	handlers := slices.Clone(d.handlers)
	queued := d.queue
	d.queue = nil
	d.mu.Unlock()

	if len(queued) == 0 {
		return
	}

	metrics.InboundQueueLength.Set(0)
	d.logger.Info("request handler registered, draining queue", "queue_size", len(queued))
	for _, req := range queued {
		d.deliver(handlers, req)
	}
}

// Unregister removes h. Unknown handlers are ignored.
func (d *RequestDispatcher) Unregister(h RequestHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if i := slices.Index(d.handlers, h); i >= 0 {
		d.handlers = slices.Delete(d.handlers, i, i+1)
	}
}

// Disconnect drops queued requests and notifies every handler that the
// channel went away.
func (d *RequestDispatcher) Disconnect() {
	d.mu.Lock()
	dropped := len(d.queue)
	d.queue = nil
	handlers := slices.Clone(d.handlers)
	d.mu.Unlock()

	metrics.InboundQueueLength.Set(0)
	if dropped > 0 {
		d.logger.Info("dropped queued requests", "queue_size", dropped)
	}

	for _, h := range handlers {
		d.safeCall("disconnect", func() error {
			h.HandleDisconnect()
			return nil
		})
	}
}

// QueueLength returns the number of waiting requests.
func (d *RequestDispatcher) QueueLength() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// HandlerCount returns the number of registered handlers.
func (d *RequestDispatcher) HandlerCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.handlers)
}

func (d *RequestDispatcher) deliver(handlers []RequestHandler, req *transport.IncomingRequest) {
	for _, h := range handlers {
		d.safeCall("request", func() error { return h.HandleRequest(req) })
	}
}

// safeCall runs fn and logs a returned error or panic.
func (d *RequestDispatcher) safeCall(op string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("request handler panicked", "op", op, "panic", fmt.Sprint(r))
		}
	}()
	if err := fn(); err != nil {
		d.logger.Warn("request handler failed", "op", op, "error", err)
	}
}
