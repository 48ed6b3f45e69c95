package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chatsock/chatsock-go/pkg/connection"
	"github.com/chatsock/chatsock-go/pkg/transport"
)

var testCreds = transport.Credentials{Username: "alice.1", Password: "secret"}

// fakeConn is a ChatConnection answering every request with 200.
type fakeConn struct {
	info transport.ConnectionInfo

	mu          sync.Mutex
	fetch       func(ctx context.Context, req *transport.Request) (*transport.Response, error)
	requests    []*transport.Request
	disconnects int
}

func newFakeConn(version transport.IPVersion) *fakeConn {
	return &fakeConn{info: transport.ConnectionInfo{IPVersion: version, LocalPort: 41000}}
}

func (c *fakeConn) Fetch(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	fetch := c.fetch
	c.mu.Unlock()

	if fetch != nil {
		return fetch(ctx, req)
	}
	return &transport.Response{Status: http.StatusOK}, nil
}

func (c *fakeConn) Info() transport.ConnectionInfo {
	return c.info
}

func (c *fakeConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	return nil
}

func (c *fakeConn) setFetch(fn func(ctx context.Context, req *transport.Request) (*transport.Response, error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetch = fn
}

func (c *fakeConn) Disconnects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnects
}

func (c *fakeConn) Paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	paths := make([]string, len(c.requests))
	for i, r := range c.requests {
		paths[i] = r.Path
	}
	return paths
}

// fakeDialer hands out fakeConns. Scripted errors are returned first, in
// order; a gate holds dials until it is closed.
type fakeDialer struct {
	mu sync.Mutex

	authErrs   []error
	unauthErrs []error
	authGate   chan struct{}
	unauthGate chan struct{}

	authDials   int
	unauthDials int
	authConns   []*fakeConn
	unauthConns []*fakeConn
	listeners   []transport.ChatListener
	authOpts    []transport.ConnectOptions
	authCreds   []transport.Credentials
}

func (d *fakeDialer) ConnectAuthenticated(ctx context.Context, creds transport.Credentials, listener transport.ChatListener, opts transport.ConnectOptions) (transport.ChatConnection, error) {
	d.mu.Lock()
	d.authDials++
	d.listeners = append(d.listeners, listener)
	d.authOpts = append(d.authOpts, opts)
	d.authCreds = append(d.authCreds, creds)
	var err error
	if len(d.authErrs) > 0 {
		err, d.authErrs = d.authErrs[0], d.authErrs[1:]
	}
	gate := d.authGate
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	conn := newFakeConn(transport.IPv4)
	d.mu.Lock()
	d.authConns = append(d.authConns, conn)
	d.mu.Unlock()
	return conn, nil
}

func (d *fakeDialer) ConnectUnauthenticated(ctx context.Context, _ transport.ConnectionListener, _ transport.ConnectOptions) (transport.ChatConnection, error) {
	d.mu.Lock()
	d.unauthDials++
	var err error
	if len(d.unauthErrs) > 0 {
		err, d.unauthErrs = d.unauthErrs[0], d.unauthErrs[1:]
	}
	gate := d.unauthGate
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	conn := newFakeConn(transport.IPv4)
	d.mu.Lock()
	d.unauthConns = append(d.unauthConns, conn)
	d.mu.Unlock()
	return conn, nil
}

func (d *fakeDialer) AuthDials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.authDials
}

func (d *fakeDialer) UnauthDials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unauthDials
}

func (d *fakeDialer) AuthConn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.authConns) {
		return nil
	}
	return d.authConns[i]
}

func (d *fakeDialer) UnauthConn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.unauthConns) {
		return nil
	}
	return d.unauthConns[i]
}

func (d *fakeDialer) Listener(i int) transport.ChatListener {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.listeners[i]
}

func (d *fakeDialer) AuthOpts(i int) transport.ConnectOptions {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.authOpts[i]
}

// eventRecorder collects manager events.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func recordEvents(m *SocketManager) *eventRecorder {
	r := &eventRecorder{}
	m.OnEvent(func(ev Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, ev)
	})
	return r
}

func (r *eventRecorder) Count(typ EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func (r *eventRecorder) Statuses() []connection.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	var states []connection.State
	for _, ev := range r.events {
		if ev.Type == EventStatusChange {
			states = append(states, ev.Status)
		}
	}
	return states
}

func (r *eventRecorder) Last(typ EventType) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == typ {
			return r.events[i], true
		}
	}
	return Event{}, false
}

// recordingHandler is a RequestHandler that records what it saw.
type recordingHandler struct {
	name string
	fail error
	log  *callLog

	mu          sync.Mutex
	requests    []*transport.IncomingRequest
	disconnects int
}

// callLog records handler calls across handlers in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
}

func (l *callLog) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (h *recordingHandler) HandleRequest(req *transport.IncomingRequest) error {
	h.mu.Lock()
	h.requests = append(h.requests, req)
	h.mu.Unlock()
	if h.log != nil {
		h.log.add(h.name + ":" + string(req.Body))
	}
	return h.fail
}

func (h *recordingHandler) HandleDisconnect() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disconnects++
}

func (h *recordingHandler) Bodies() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, r := range h.requests {
		out = append(out, string(r.Body))
	}
	return out
}

func (h *recordingHandler) Disconnects() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.disconnects
}

// statusAck records the ack status of an inbound request.
type statusAck struct {
	mu     sync.Mutex
	status []int
}

func (a *statusAck) Send(status int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = append(a.status, status)
	return nil
}

func testManagerConfig(d transport.Dialer) ManagerConfig {
	cfg := DefaultManagerConfig()
	cfg.Dialer = d
	cfg.KeepAlive.Interval = time.Hour
	cfg.Backoff = connection.BackoffConfig{Sequence: []time.Duration{20 * time.Millisecond}, Jitter: -1}
	cfg.OfflineSequence = []time.Duration{time.Hour}
	return cfg
}

func newTestManager(t *testing.T, d transport.Dialer, opts ...func(*ManagerConfig)) *SocketManager {
	t.Helper()
	cfg := testManagerConfig(d)
	for _, opt := range opts {
		opt(&cfg)
	}
	m, err := NewSocketManager(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func authState(m *SocketManager) connection.State {
	return m.Status().Authenticated.State
}

var errBoom = errors.New("boom")
