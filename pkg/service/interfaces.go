package service

import (
	"github.com/chatsock/chatsock-go/pkg/transport"
)

// RequestHandler consumes server-initiated requests of the authenticated
// channel. Handlers are compared with == on unregister, so implementations
// should be pointer types.
type RequestHandler interface {
	// HandleRequest processes one request. A returned error is logged and
	// does not affect other handlers.
	HandleRequest(req *transport.IncomingRequest) error

	// HandleDisconnect is called when the authenticated channel drops.
	HandleDisconnect()
}

// RequestHandlerFuncs adapts plain functions to RequestHandler. Nil fields
// are skipped.
type RequestHandlerFuncs struct {
	OnRequest    func(req *transport.IncomingRequest) error
	OnDisconnect func()
}

// HandleRequest calls OnRequest.
func (h *RequestHandlerFuncs) HandleRequest(req *transport.IncomingRequest) error {
	if h.OnRequest == nil {
		return nil
	}
	return h.OnRequest(req)
}

// HandleDisconnect calls OnDisconnect.
func (h *RequestHandlerFuncs) HandleDisconnect() {
	if h.OnDisconnect != nil {
		h.OnDisconnect()
	}
}

// Compile-time interface satisfaction check.
var _ RequestHandler = (*RequestHandlerFuncs)(nil)
