package transport

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/chatsock/chatsock-go/pkg/wire"
)

// WebSocket endpoint paths.
const (
	ChatSocketPath         = "/v1/websocket/"
	ProvisioningSocketPath = "/v1/websocket/provisioning/"
)

// Header names used on the upgrade and on pushed requests.
const (
	HeaderServerAlert    = "X-Server-Alert"
	HeaderReceiveStories = "X-Receive-Stories"
	HeaderTimestamp      = "X-Timestamp"
	HeaderSocketTimeout  = "X-Signal-Websocket-Timeout"
)

// Upgrade statuses with a dedicated meaning.
const (
	StatusAppExpired = 499
)

// Dialer defaults.
const (
	DefaultConnectTimeout = 20 * time.Second
	DefaultReadLimit      = 1 << 20
	requestQueueSize      = 64
)

// WebSocketDialerConfig configures a WebSocketDialer.
type WebSocketDialerConfig struct {
	// URL is the service base URL ("wss://chat.example.org").
	URL string

	// UserAgent is sent on every upgrade when set.
	UserAgent string

	// TLS configures wss:// connections. Nil uses the system defaults.
	TLS *TLSConfig

	// ConnectTimeout bounds the upgrade handshake.
	ConnectTimeout time.Duration

	// ReadLimit is the largest accepted frame in bytes.
	ReadLimit int64

	// Logger for operational logging. Nil disables it.
	Logger *slog.Logger
}

// WebSocketDialer dials chat and provisioning channels over WebSocket with
// CBOR request/response frames.
type WebSocketDialer struct {
	base   *url.URL
	config WebSocketDialerConfig
	http   *http.Transport
	logger *slog.Logger
}

// NewWebSocketDialer creates a dialer for cfg.URL.
func NewWebSocketDialer(cfg WebSocketDialerConfig) (*WebSocketDialer, error) {
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	switch base.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return nil, fmt.Errorf("unsupported url scheme %q", base.Scheme)
	}

	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = DefaultReadLimit
	}

	d := &WebSocketDialer{
		base:   base,
		config: cfg,
		logger: orDiscard(cfg.Logger),
		http:   &http.Transport{Proxy: http.ProxyFromEnvironment},
	}

	if cfg.TLS != nil {
		tlsConfig, err := NewClientTLSConfig(cfg.TLS)
		if err != nil {
			return nil, err
		}
		d.http.TLSClientConfig = tlsConfig
	}

	return d, nil
}

// ConnectAuthenticated dials the chat socket with basic auth.
func (d *WebSocketDialer) ConnectAuthenticated(ctx context.Context, creds Credentials, listener ChatListener, opts ConnectOptions) (ChatConnection, error) {
	header := d.header(opts)
	auth := base64.StdEncoding.EncodeToString([]byte(creds.Username + ":" + creds.Password))
	header.Set("Authorization", "Basic "+auth)
	header.Set(HeaderReceiveStories, strconv.FormatBool(opts.ReceiveStories))

	c, resp, err := d.dial(ctx, ChatSocketPath, header, listener)
	if err != nil {
		return nil, err
	}
	c.onRequest = func(req *wire.RequestFrame) { chatRequest(c, listener, req) }
	c.start()

	if alerts := resp.Header.Values(HeaderServerAlert); len(alerts) > 0 {
		listener.OnReceivedAlerts(alerts)
	}
	return c, nil
}

// ConnectUnauthenticated dials the chat socket without credentials.
func (d *WebSocketDialer) ConnectUnauthenticated(ctx context.Context, listener ConnectionListener, opts ConnectOptions) (ChatConnection, error) {
	c, _, err := d.dial(ctx, ChatSocketPath, d.header(opts), listener)
	if err != nil {
		return nil, err
	}
	c.onRequest = func(req *wire.RequestFrame) {
		c.logger.Warn("unexpected server request on unauthenticated channel", "verb", req.Verb, "path", req.Path)
		c.respond(req.ID, http.StatusNotFound, "not found")
	}
	c.start()
	return c, nil
}

// ConnectProvisioning dials the provisioning socket.
func (d *WebSocketDialer) ConnectProvisioning(ctx context.Context, listener ServerRequestListener, opts ConnectOptions) (ChatConnection, error) {
	header := d.header(opts)
	header.Set(HeaderSocketTimeout, "true")

	c, _, err := d.dial(ctx, ProvisioningSocketPath, header, listener)
	if err != nil {
		return nil, err
	}
	c.onRequest = func(req *wire.RequestFrame) {
		listener.OnServerRequest(req.Verb, req.Path, req.Body, &wsAck{conn: c, id: req.ID})
	}
	c.start()
	return c, nil
}

func (d *WebSocketDialer) header(opts ConnectOptions) http.Header {
	header := opts.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	if d.config.UserAgent != "" {
		header.Set("User-Agent", d.config.UserAgent)
	}
	if len(opts.Languages) > 0 {
		header.Set("Accept-Language", strings.Join(opts.Languages, ", "))
	}
	return header
}

func (d *WebSocketDialer) endpoint(path string) string {
	u := *d.base
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return u.String()
}

func (d *WebSocketDialer) dial(ctx context.Context, path string, header http.Header, listener ConnectionListener) (*wsConnection, *http.Response, error) {
	dialCtx, cancel := context.WithTimeout(ctx, d.config.ConnectTimeout)
	defer cancel()

	// Each dial gets its own transport so the local address can be recorded.
	var (
		addrMu    sync.Mutex
		localAddr net.Addr
	)
	transport := d.http.Clone()
	transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := (&net.Dialer{}).DialContext(ctx, network, addr)
		if err == nil {
			addrMu.Lock()
			localAddr = conn.LocalAddr()
			addrMu.Unlock()
		}
		return conn, err
	}

	start := time.Now()
	ws, resp, err := websocket.Dial(dialCtx, d.endpoint(path), &websocket.DialOptions{
		HTTPClient: &http.Client{Transport: transport},
		HTTPHeader: header,
	})
	if err != nil {
		return nil, nil, d.dialError(ctx, dialCtx, resp, err)
	}
	ws.SetReadLimit(d.config.ReadLimit)

	addrMu.Lock()
	info := connectionInfo(localAddr)
	addrMu.Unlock()

	d.logger.Debug("websocket connected", "path", path, "local_port", info.LocalPort, "duration", time.Since(start))
	return newWSConnection(ws, info, listener, d.logger), resp, nil
}

// dialError classifies a failed upgrade.
func (d *WebSocketDialer) dialError(parent, dialCtx context.Context, resp *http.Response, err error) error {
	if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
		return upgradeError(resp, err)
	}
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(dialCtx.Err(), context.DeadlineExceeded) {
		return ErrConnectTimeout
	}
	return NewHTTPError(-1, "connect failed", err)
}

func upgradeError(resp *http.Response, err error) error {
	switch resp.StatusCode {
	case http.StatusGone:
		return &Error{Code: ErrorCodeDeviceDelinked, Message: "device delinked", Err: err}
	case StatusAppExpired:
		return &Error{Code: ErrorCodeAppExpired, Message: "app expired", Err: err}
	case http.StatusTooManyRequests:
		return &Error{Code: ErrorCodeRateLimited, Message: "rate limited", Err: err}
	default:
		he := NewHTTPError(resp.StatusCode, http.StatusText(resp.StatusCode), err)
		he.Header = resp.Header.Clone()
		return he
	}
}

func connectionInfo(addr net.Addr) ConnectionInfo {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return ConnectionInfo{}
	}
	info := ConnectionInfo{LocalPort: tcp.Port, IPVersion: IPv6}
	if tcp.IP.To4() != nil {
		info.IPVersion = IPv4
	}
	return info
}

// wsConnection is one live WebSocket with pending requests matched by ID.
type wsConnection struct {
	ws       *websocket.Conn
	info     ConnectionInfo
	listener ConnectionListener
	logger   *slog.Logger

	// Handles server-initiated requests in arrival order
	onRequest func(req *wire.RequestFrame)
	requests  chan *wire.RequestFrame

	mu           sync.Mutex
	nextID       uint64
	pending      map[uint64]chan *wire.ResponseFrame
	disconnected bool
	cause        error

	done chan struct{}
}

func newWSConnection(ws *websocket.Conn, info ConnectionInfo, listener ConnectionListener, logger *slog.Logger) *wsConnection {
	return &wsConnection{
		ws:       ws,
		info:     info,
		listener: listener,
		logger:   logger,
		requests: make(chan *wire.RequestFrame, requestQueueSize),
		pending:  make(map[uint64]chan *wire.ResponseFrame),
		done:     make(chan struct{}),
	}
}

func (c *wsConnection) start() {
	go c.readLoop()
	go c.requestLoop()
}

// Info returns the connection's IP version and local port.
func (c *wsConnection) Info() ConnectionInfo {
	return c.info
}

// Fetch sends req and waits for the response with the same ID.
func (c *wsConnection) Fetch(ctx context.Context, req *Request) (*Response, error) {
	ch := make(chan *wire.ResponseFrame, 1)

	c.mu.Lock()
	if c.cause != nil || c.disconnected {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	c.nextID++
	id := c.nextID
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	data, err := wire.EncodeFrame(wire.NewRequest(id, req.Verb, req.Path, wire.HeaderLines(req.Header), req.Body))
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	if err := c.ws.Write(ctx, websocket.MessageBinary, data); err != nil {
		return nil, &Error{Code: ErrorCodeIO, Message: "write request", Err: err}
	}

	select {
	case resp := <-ch:
		return &Response{
			Status:  resp.Status,
			Message: resp.Message,
			Header:  wire.ParseHeaderLines(resp.Headers),
			Body:    resp.Body,
		}, nil
	case <-c.done:
		return nil, ErrNotConnected
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Disconnect closes the socket without notifying the listener.
func (c *wsConnection) Disconnect() error {
	c.mu.Lock()
	if c.disconnected {
		c.mu.Unlock()
		return nil
	}
	c.disconnected = true
	c.mu.Unlock()

	// Close waits for the peer's close frame; do not block the caller on it.
	go func() {
		if err := c.ws.Close(websocket.StatusCode(NormalDisconnectCode), "disconnect"); err != nil {
			c.logger.Debug("websocket close", "error", err)
		}
	}()
	return nil
}

func (c *wsConnection) readLoop() {
	for {
		typ, data, err := c.ws.Read(context.Background())
		if err != nil {
			c.finish(err)
			return
		}
		if typ != websocket.MessageBinary {
			c.logger.Debug("ignoring non-binary frame")
			continue
		}

		frame, err := wire.DecodeFrame(data)
		if err != nil {
			c.logger.Warn("dropping invalid frame", "error", err)
			continue
		}

		switch frame.Type {
		case wire.FrameTypeResponse:
			c.mu.Lock()
			ch := c.pending[frame.Response.ID]
			c.mu.Unlock()
			if ch == nil {
				c.logger.Debug("response for unknown request", "id", frame.Response.ID)
				continue
			}
			select {
			case ch <- frame.Response:
			default:
				c.logger.Debug("duplicate response", "id", frame.Response.ID)
			}
		case wire.FrameTypeRequest:
			c.requests <- frame.Request
		}
	}
}

// requestLoop runs request handlers off the read loop so a handler may use
// Fetch. It reports the drop once every queued request was handled.
func (c *wsConnection) requestLoop() {
	for req := range c.requests {
		c.onRequest(req)
	}

	c.mu.Lock()
	notify := !c.disconnected
	cause := c.cause
	c.mu.Unlock()

	if notify {
		c.listener.OnConnectionInterrupted(closeCause(cause))
	}
}

func (c *wsConnection) finish(err error) {
	c.mu.Lock()
	c.cause = err
	c.mu.Unlock()

	close(c.done)
	close(c.requests)
}

func (c *wsConnection) respond(id uint64, status int, message string) error {
	data, err := wire.EncodeFrame(wire.NewResponse(id, status, message, nil, nil))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultKeepAliveTimeout)
	defer cancel()
	return c.ws.Write(ctx, websocket.MessageBinary, data)
}

// closeCause maps the read error that ended a connection to a drop cause.
func closeCause(err error) error {
	var ce websocket.CloseError
	if !errors.As(err, &ce) {
		return &Error{Code: ErrorCodeIO, Err: err}
	}

	switch int(ce.Code) {
	case int(websocket.StatusNormalClosure), NormalDisconnectCode:
		return nil
	case ConnectedElsewhereCode:
		return &Error{Code: ErrorCodeConnectedElsewhere, Message: ce.Reason, Err: err}
	case ConnectionInvalidatedCode:
		return &Error{Code: ErrorCodeConnectionInvalidated, Message: ce.Reason, Err: err}
	default:
		return &Error{Code: ErrorCodeIO, Message: ce.Reason, Err: err}
	}
}

func chatRequest(c *wsConnection, listener ChatListener, req *wire.RequestFrame) {
	switch {
	case req.Verb == http.MethodPut && req.Path == PathAPIMessage:
		listener.OnIncomingMessage(req.Body, requestTimestamp(req), &wsAck{conn: c, id: req.ID})
	case req.Verb == http.MethodPut && req.Path == PathAPIEmptyQueue:
		if err := c.respond(req.ID, http.StatusOK, "OK"); err != nil {
			c.logger.Debug("queue empty ack failed", "error", err)
		}
		listener.OnQueueEmpty()
	default:
		c.logger.Warn("unsupported server request", "verb", req.Verb, "path", req.Path)
		if err := c.respond(req.ID, http.StatusNotFound, "not found"); err != nil {
			c.logger.Debug("reject failed", "error", err)
		}
	}
}

func requestTimestamp(req *wire.RequestFrame) time.Time {
	ms, err := strconv.ParseInt(req.Header(HeaderTimestamp), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// wsAck answers one server-initiated request.
type wsAck struct {
	conn *wsConnection
	id   uint64
}

func (a *wsAck) Send(status int) error {
	return a.conn.respond(a.id, status, http.StatusText(status))
}
