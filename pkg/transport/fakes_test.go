package transport

import (
	"context"
	"sync"
	"time"

	"github.com/chatsock/chatsock-go/pkg/log"
)

// fakeConn is a ChatConnection with scripted Fetch results.
type fakeConn struct {
	info ConnectionInfo

	mu          sync.Mutex
	fetch       func(ctx context.Context, req *Request) (*Response, error)
	requests    []*Request
	deadlines   []bool
	disconnects int
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		info: ConnectionInfo{IPVersion: IPv4, LocalPort: 40000},
		fetch: func(context.Context, *Request) (*Response, error) {
			return &Response{Status: 200}, nil
		},
	}
}

func (c *fakeConn) Fetch(ctx context.Context, req *Request) (*Response, error) {
	_, hasDeadline := ctx.Deadline()

	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.deadlines = append(c.deadlines, hasDeadline)
	fn := c.fetch
	c.mu.Unlock()

	return fn(ctx, req)
}

func (c *fakeConn) Info() ConnectionInfo {
	return c.info
}

func (c *fakeConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	return nil
}

func (c *fakeConn) setFetch(fn func(ctx context.Context, req *Request) (*Response, error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetch = fn
}

func (c *fakeConn) requestCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func (c *fakeConn) disconnectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnects
}

// captureLogger records protocol events.
type captureLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (l *captureLogger) Log(e log.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *captureLogger) Events() []log.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]log.Event, len(l.events))
	copy(out, l.events)
	return out
}

// waitFor polls cond until it holds or the timeout elapses.
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
