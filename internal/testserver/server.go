// Package testserver provides an in-process chat service for tests.
//
// The server accepts WebSocket upgrades on any path, answers keepalive
// probes and configured routes, and lets a test push requests, close
// connections with chosen codes and reject upgrades with chosen statuses.
package testserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/chatsock/chatsock-go/pkg/wire"
)

// ErrClosed is returned by Push after the connection went away.
var ErrClosed = errors.New("testserver: connection closed")

// Route is a canned answer for a client request.
type Route struct {
	Status int
	Body   []byte

	// Delay is waited before answering.
	Delay time.Duration
}

// Server is an httptest-backed WebSocket chat service.
type Server struct {
	srv *httptest.Server

	mu              sync.Mutex
	rejectStatus    int
	rejectHeader    http.Header
	alerts          []string
	keepAliveStatus int
	keepAliveDelay  time.Duration
	routes          map[string]Route
	conns           []*Conn
	upgrades        int

	accepted chan *Conn
}

// New starts a plain-HTTP server.
func New() *Server {
	s := newServer()
	s.srv = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	return s
}

// NewTLS starts a TLS server. Use Certificate for the client trust root.
func NewTLS() *Server {
	s := newServer()
	s.srv = httptest.NewTLSServer(http.HandlerFunc(s.serveHTTP))
	return s
}

func newServer() *Server {
	return &Server{
		keepAliveStatus: http.StatusOK,
		routes:          make(map[string]Route),
		accepted:        make(chan *Conn, 16),
	}
}

// URL returns the server base URL.
func (s *Server) URL() string {
	return s.srv.URL
}

// HTTPServer returns the underlying httptest server.
func (s *Server) HTTPServer() *httptest.Server {
	return s.srv
}

// Close drops every connection and stops the server.
func (s *Server) Close() {
	for _, c := range s.Conns() {
		c.Drop()
	}
	s.srv.Close()
}

// RejectWith makes every following upgrade fail with status. 0 accepts
// upgrades again.
func (s *Server) RejectWith(status int, header http.Header) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectStatus = status
	s.rejectHeader = header
}

// SetAlerts sets the X-Server-Alert values sent on every upgrade.
func (s *Server) SetAlerts(alerts ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = alerts
}

// SetKeepAlive sets the status and delay of keepalive answers.
func (s *Server) SetKeepAlive(status int, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keepAliveStatus = status
	s.keepAliveDelay = delay
}

// Handle sets the answer for requests with verb and path.
func (s *Server) Handle(verb, path string, route Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[verb+" "+path] = route
}

// Accepted delivers every accepted connection.
func (s *Server) Accepted() <-chan *Conn {
	return s.accepted
}

// Conns returns all connections accepted so far.
func (s *Server) Conns() []*Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Conn, len(s.conns))
	copy(out, s.conns)
	return out
}

// Upgrades returns the number of upgrade requests seen, rejected included.
func (s *Server) Upgrades() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upgrades
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.upgrades++
	status := s.rejectStatus
	rejectHeader := s.rejectHeader
	alerts := s.alerts
	s.mu.Unlock()

	if status != 0 {
		for name, values := range rejectHeader {
			for _, v := range values {
				w.Header().Add(name, v)
			}
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	for _, a := range alerts {
		w.Header().Add("X-Server-Alert", a)
	}

	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}

	c := &Conn{
		server:  s,
		ws:      ws,
		Path:    r.URL.Path,
		Header:  r.Header.Clone(),
		pending: make(map[uint64]chan *wire.ResponseFrame),
		done:    make(chan struct{}),
	}

	s.mu.Lock()
	s.conns = append(s.conns, c)
	s.mu.Unlock()

	select {
	case s.accepted <- c:
	default:
	}

	c.serve()
}

func (s *Server) route(req *wire.RequestFrame) Route {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.HasPrefix(req.Path, "/v1/keepalive") {
		return Route{Status: s.keepAliveStatus, Delay: s.keepAliveDelay}
	}
	if r, ok := s.routes[req.Verb+" "+req.Path]; ok {
		return r
	}
	return Route{Status: http.StatusNotFound}
}

// Conn is one accepted client connection.
type Conn struct {
	server *Server
	ws     *websocket.Conn

	// Path and Header are taken from the upgrade request.
	Path   string
	Header http.Header

	mu         sync.Mutex
	nextID     uint64
	pending    map[uint64]chan *wire.ResponseFrame
	keepAlives int
	requests   []*wire.RequestFrame
	closeErr   error

	done chan struct{}
}

// Done is closed when the connection ends.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the connection.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeErr
}

// KeepAlives returns the number of keepalive probes answered.
func (c *Conn) KeepAlives() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keepAlives
}

// Requests returns the non-keepalive requests received.
func (c *Conn) Requests() []*wire.RequestFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*wire.RequestFrame, len(c.requests))
	copy(out, c.requests)
	return out
}

// Push sends a server-initiated request and waits for the client's answer.
func (c *Conn) Push(ctx context.Context, verb, path string, header http.Header, body []byte) (*wire.ResponseFrame, error) {
	ch := make(chan *wire.ResponseFrame, 1)

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	data, err := wire.EncodeFrame(wire.NewRequest(id, verb, path, wire.HeaderLines(header), body))
	if err != nil {
		return nil, err
	}
	if err := c.ws.Write(ctx, websocket.MessageBinary, data); err != nil {
		return nil, err
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PushEnvelope pushes one envelope queued at ts and returns the ack status.
func (c *Conn) PushEnvelope(ctx context.Context, envelope []byte, ts time.Time) (int, error) {
	header := http.Header{}
	header.Set("X-Timestamp", strconv.FormatInt(ts.UnixMilli(), 10))

	resp, err := c.Push(ctx, http.MethodPut, "/api/v1/message", header, envelope)
	if err != nil {
		return 0, err
	}
	return resp.Status, nil
}

// PushQueueEmpty signals the drained queue.
func (c *Conn) PushQueueEmpty(ctx context.Context) error {
	_, err := c.Push(ctx, http.MethodPut, "/api/v1/queue/empty", nil, nil)
	return err
}

// CloseWith closes the connection with a WebSocket close code.
func (c *Conn) CloseWith(code int, reason string) error {
	return c.ws.Close(websocket.StatusCode(code), reason)
}

// Drop closes the underlying connection without a close handshake.
func (c *Conn) Drop() {
	c.ws.CloseNow()
}

func (c *Conn) serve() {
	defer close(c.done)

	for {
		typ, data, err := c.ws.Read(context.Background())
		if err != nil {
			c.mu.Lock()
			c.closeErr = err
			c.mu.Unlock()
			return
		}
		if typ != websocket.MessageBinary {
			continue
		}

		frame, err := wire.DecodeFrame(data)
		if err != nil {
			continue
		}

		switch frame.Type {
		case wire.FrameTypeRequest:
			go c.answer(frame.Request)
		case wire.FrameTypeResponse:
			c.mu.Lock()
			ch := c.pending[frame.Response.ID]
			c.mu.Unlock()
			if ch != nil {
				select {
				case ch <- frame.Response:
				default:
				}
			}
		}
	}
}

func (c *Conn) answer(req *wire.RequestFrame) {
	route := c.server.route(req)

	c.mu.Lock()
	if strings.HasPrefix(req.Path, "/v1/keepalive") {
		c.keepAlives++
	} else {
		c.requests = append(c.requests, req)
	}
	c.mu.Unlock()

	if route.Delay > 0 {
		select {
		case <-time.After(route.Delay):
		case <-c.done:
			return
		}
	}

	data, err := wire.EncodeFrame(wire.NewResponse(req.ID, route.Status, http.StatusText(route.Status), nil, route.Body))
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = c.ws.Write(ctx, websocket.MessageBinary, data)
}
