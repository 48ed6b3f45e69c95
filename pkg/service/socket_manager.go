package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chatsock/chatsock-go/pkg/connection"
	"github.com/chatsock/chatsock-go/pkg/log"
	"github.com/chatsock/chatsock-go/pkg/metrics"
	"github.com/chatsock/chatsock-go/pkg/transport"
)

// SocketManager keeps the authenticated and anonymous chat channels alive.
// The authenticated channel reconnects with back-off after unexpected
// drops; the anonymous one is created on demand and rotated periodically.
//
// Fields are guarded by mu. Transport code, event handlers and request
// handlers are never called while mu is held.
type SocketManager struct {
	config ManagerConfig
	logger *slog.Logger
	plog   log.Logger

	// Parent of every connect process
	ctx    context.Context
	cancel context.CancelFunc

	backoff     *connection.Backoff
	reconnector *connection.Reconnector
	authState   *connection.StateMachine
	unauthState *connection.StateMachine
	dispatcher  *RequestDispatcher
	stats       *StatsRecorder

	mu sync.Mutex

	// Current attempts; the pointer identifies the attempt in completions
	authenticated   *transport.ResourceProcess
	unauthenticated *transport.ResourceProcess
	rotationTimer   *time.Timer

	credentials      *transport.Credentials
	receiveStories   bool
	navigatorOffline bool
	online           *bool
	expiration       ExpirationReason
	closed           bool

	eventHandlers []EventHandler
}

// NewSocketManager creates a manager and starts its reconnect loop. No
// connection is made until Authenticate or Fetch is called.
func NewSocketManager(config ManagerConfig) (*SocketManager, error) {
	if config.Dialer == nil {
		return nil, fmt.Errorf("%w: dialer is required", ErrInvalidConfig)
	}
	config = config.withDefaults()

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &SocketManager{
		config:         config,
		logger:         logger,
		plog:           log.OrNoop(config.ProtocolLogger),
		ctx:            ctx,
		cancel:         cancel,
		backoff:        connection.NewBackoffWithConfig(config.Backoff),
		authState:      connection.NewStateMachine(),
		unauthState:    connection.NewStateMachine(),
		dispatcher:     NewRequestDispatcher(logger),
		stats:          NewStatsRecorder(config.Stats, config.StatsName, logger),
		receiveStories: config.ReceiveStories,
	}

	m.reconnector = connection.NewReconnector(m.backoff, m.reconnectAuthenticated)
	m.reconnector.SetNeeded(m.reconnectNeeded)
	m.reconnector.OnScheduled(func(attempt int, delay time.Duration) {
		metrics.ReconnectsScheduledTotal.Inc()
		m.logger.Info("reconnecting authenticated socket", "attempt", attempt, "delay", delay)
	})
	m.reconnector.OnCanceled(func() {
		m.logger.Info("pending reconnect canceled")
	})
	m.reconnector.Start()

	return m, nil
}

// OnEvent registers a handler for manager events.
func (m *SocketManager) OnEvent(handler EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventHandlers = append(m.eventHandlers, handler)
}

// Authenticate connects the authenticated channel with creds and waits for
// the attempt to settle. Calling it again with the same credentials while
// an attempt is alive waits for that attempt instead of starting another.
//
// A retryable failure is returned and also schedules a delayed reconnect.
// Rate limiting is returned as an *transport.HTTPError with status 429 and
// is not retried. Returning early because ctx is done does not stop the
// attempt.
func (m *SocketManager) Authenticate(ctx context.Context, creds transport.Credentials) error {
	m.mu.Lock()
	if err := m.usableLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	if creds.Empty() {
		m.mu.Unlock()
		m.logger.Warn("authenticate called with empty credentials")
		return nil
	}

	if p := m.authenticated; p != nil && m.credentials != nil && *m.credentials == creds {
		m.mu.Unlock()
		m.logger.Info("authenticated socket already connecting or open")
		_, err := p.Result(ctx)
		return err
	}

	stored := creds
	m.credentials = &stored

	prev := m.authenticated
	dropPrev := prev != nil && m.authState.State() == connection.StateOpen

	var envelopes atomic.Int64
	p := transport.ConnectAuthenticated(m.ctx, m.config.Dialer, creds,
		func(req *transport.IncomingRequest) { m.handleRequest(req, &envelopes) },
		m.handleAlerts,
		m.connectOptionsLocked(),
		m.resourceConfig(ChannelAuthenticated.String()))
	m.authenticated = p
	m.mu.Unlock()

	m.logger.Info("connecting authenticated socket")

	if prev != nil {
		if dropPrev {
			m.authenticatedDropped()
		}
		prev.Abort()
	}
	m.setAuthenticatedState(connection.StateConnecting)

	done := make(chan error, 1)
	go func() { done <- m.completeAuthenticated(p) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// completeAuthenticated waits for p and applies its outcome.
func (m *SocketManager) completeAuthenticated(p *transport.ResourceProcess) error {
	r, err := p.Result(context.Background())
	if err != nil {
		return m.authenticatedFailed(p, err)
	}

	if !m.isCurrentAuthenticated(p) {
		metrics.ConnectAttemptsTotal.WithLabelValues(ChannelAuthenticated.String(), metrics.ResultAborted).Inc()
		return connection.ErrAborted
	}

	metrics.ConnectAttemptsTotal.WithLabelValues(ChannelAuthenticated.String(), metrics.ResultSuccess).Inc()
	m.backoff.ResetTo(m.config.Backoff.Sequence)
	m.setAuthenticatedState(connection.StateOpen)

	r.OnClose(func(ev transport.CloseEvent) { m.authenticatedClosed(p, ev) })
	return nil
}

func (m *SocketManager) authenticatedFailed(p *transport.ResourceProcess, err error) error {
	if !m.detachAuthenticated(p) {
		metrics.ConnectAttemptsTotal.WithLabelValues(ChannelAuthenticated.String(), metrics.ResultAborted).Inc()
		m.logger.Debug("ignoring failure of superseded authenticated connect", "error", err)
		return err
	}

	m.authenticatedDropped()

	failure := classifyConnectError(err)
	if failure.class == failureIgnored {
		metrics.ConnectAttemptsTotal.WithLabelValues(ChannelAuthenticated.String(), metrics.ResultAborted).Inc()
		return err
	}

	metrics.ConnectAttemptsTotal.WithLabelValues(ChannelAuthenticated.String(), metrics.ResultFailure).Inc()
	m.logger.Warn("authenticated socket connect failed", "class", failure.class, "error", err)
	m.logError(ChannelAuthenticated.String(), err, "authenticate")

	switch failure.class {
	case failureFatal:
		if failure.hasEvent {
			m.emit(Event{Type: failure.event, Error: err})
		}
		return err

	case failureCaller:
		return transport.NewHTTPError(http.StatusTooManyRequests, "rate limited", err)

	default:
		m.stats.ConnectionFailure()
		if failure.offline {
			m.setOnline(false)
		}
		m.reconnector.Trigger()
		return err
	}
}

func (m *SocketManager) authenticatedClosed(p *transport.ResourceProcess, ev transport.CloseEvent) {
	if !m.detachAuthenticated(p) {
		m.logger.Debug("ignoring close of superseded authenticated socket", "code", ev.Code)
		return
	}

	m.logger.Warn("authenticated socket closed", "code", ev.Code, "reason", ev.Reason, "remote", ev.Remote)
	m.authenticatedDropped()

	if ev.Code == transport.CloseConnectedElsewhere {
		m.emit(Event{Type: EventConnectedElsewhere})
	}
	if ev.Code.Reconnects() {
		m.reconnector.Trigger()
	}
}

// detachAuthenticated clears the current attempt if it is still p.
func (m *SocketManager) detachAuthenticated(p *transport.ResourceProcess) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.authenticated != p {
		return false
	}
	m.authenticated = nil
	return true
}

func (m *SocketManager) isCurrentAuthenticated(p *transport.ResourceProcess) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authenticated == p
}

// authenticatedDropped runs after the current authenticated attempt was
// detached.
func (m *SocketManager) authenticatedDropped() {
	m.setAuthenticatedState(connection.StateClosed)
	m.dispatcher.Disconnect()
}

func (m *SocketManager) reconnectNeeded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed && m.expiration == 0 && m.credentials != nil && m.authenticated == nil
}

// reconnectAuthenticated runs on the reconnect loop after the back-off
// delay. Only rate limiting asks the loop for another round; retryable
// failures have already scheduled one.
func (m *SocketManager) reconnectAuthenticated(ctx context.Context) error {
	m.mu.Lock()
	creds := m.credentials
	m.mu.Unlock()
	if creds == nil {
		return nil
	}

	err := m.Authenticate(ctx, *creds)
	if err == nil || ctx.Err() != nil {
		return nil
	}
	m.logger.Warn("reconnect failed", "error", err)
	if transport.HasErrorCode(err, transport.ErrorCodeRateLimited) {
		return err
	}
	return nil
}

// GetAuthenticatedResource returns the authenticated resource, connecting
// with the stored credentials if there is no attempt.
func (m *SocketManager) GetAuthenticatedResource(ctx context.Context) (*transport.Resource, error) {
	m.mu.Lock()
	p := m.authenticated
	creds := m.credentials
	m.mu.Unlock()

	if p == nil {
		if creds == nil {
			return nil, ErrNoCredentials
		}
		if err := m.Authenticate(ctx, *creds); err != nil {
			return nil, err
		}

		m.mu.Lock()
		p = m.authenticated
		m.mu.Unlock()
		if p == nil {
			return nil, ErrNotAuthenticated
		}
	}

	return p.Result(ctx)
}

// RegisterRequestHandler adds a handler for inbound requests. Requests
// queued while no handler was registered are delivered to it first.
func (m *SocketManager) RegisterRequestHandler(h RequestHandler) {
	m.dispatcher.Register(h)
}

// UnregisterRequestHandler removes a handler.
func (m *SocketManager) UnregisterRequestHandler(h RequestHandler) {
	m.dispatcher.Unregister(h)
}

// Check probes both channels now. While offline the probes use the
// shorter offline timeout. It returns once every current attempt settled
// and its probe was started.
func (m *SocketManager) Check(ctx context.Context) error {
	m.mu.Lock()
	procs := []*transport.ResourceProcess{m.authenticated, m.unauthenticated}
	offline := m.navigatorOffline
	m.mu.Unlock()

	var timeout time.Duration
	if offline {
		timeout = m.config.OfflineKeepAliveTimeout
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range procs {
		if p == nil {
			continue
		}
		g.Go(func() error {
			r, err := p.Result(gctx)
			if err != nil {
				return err
			}
			r.ForceKeepAlive(timeout)
			return nil
		})
	}
	return g.Wait()
}

// OnNavigatorOnline reports that the network is reachable. A pending
// reconnect is canceled and the authenticated channel reconnects at once.
func (m *SocketManager) OnNavigatorOnline(ctx context.Context) error {
	m.mu.Lock()
	m.navigatorOffline = false
	creds := m.credentials
	m.mu.Unlock()

	m.logger.Info("navigator online")
	m.logStateChange("", log.StateEntityNetwork, "offline", "online", "navigator")
	m.backoff.ResetTo(m.config.Backoff.Sequence)

	if creds == nil {
		return nil
	}
	m.reconnector.Interrupt()
	return m.Authenticate(ctx, *creds)
}

// OnNavigatorOffline reports that the network is unreachable. The back-off
// switches to the offline sequence and both channels are probed.
func (m *SocketManager) OnNavigatorOffline(ctx context.Context) error {
	m.mu.Lock()
	m.navigatorOffline = true
	m.mu.Unlock()

	m.logger.Info("navigator offline")
	m.logStateChange("", log.StateEntityNetwork, "online", "offline", "navigator")
	m.backoff.ResetTo(m.config.OfflineSequence)

	return m.Check(ctx)
}

// OnExpiration marks the client expired and logs out. The flag is never
// cleared; later calls are ignored.
func (m *SocketManager) OnExpiration(reason ExpirationReason) {
	m.mu.Lock()
	if m.expiration != 0 {
		m.mu.Unlock()
		return
	}
	m.expiration = reason
	m.mu.Unlock()

	m.logger.Warn("client expired, disconnecting", "reason", reason)
	m.logStateChange("", log.StateEntityExpiration, "", "expired", reason.String())

	m.reconnector.Interrupt()
	m.Logout()
}

// Expiration returns the expiration reason, if any.
func (m *SocketManager) Expiration() (ExpirationReason, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expiration, m.expiration != 0
}

// Logout closes the authenticated channel and forgets the credentials.
func (m *SocketManager) Logout() {
	m.mu.Lock()
	p := m.authenticated
	m.authenticated = nil
	m.credentials = nil
	m.mu.Unlock()

	m.logger.Info("logging out")
	if p != nil {
		p.Abort()
		m.authenticatedDropped()
	}
	m.setOnline(false)
}

// Reconnect closes both channels and, if credentials are stored,
// reconnects the authenticated channel without delay.
func (m *SocketManager) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	a, u := m.authenticated, m.unauthenticated
	m.authenticated, m.unauthenticated = nil, nil
	timer := m.rotationTimer
	m.rotationTimer = nil
	creds := m.credentials
	m.mu.Unlock()

	m.logger.Info("reconnecting all sockets")

	if timer != nil {
		timer.Stop()
	}
	if a != nil {
		a.Abort()
		m.authenticatedDropped()
	}
	if u != nil {
		u.Abort()
		m.unauthenticatedDropped()
	}

	if creds == nil {
		return nil
	}
	m.backoff.ResetTo(nil)
	m.reconnector.Interrupt()
	return m.Authenticate(ctx, *creds)
}

// SetReceiveStories changes whether stories are requested on connect.
// A change reconnects.
func (m *SocketManager) SetReceiveStories(ctx context.Context, receive bool) error {
	m.mu.Lock()
	if m.receiveStories == receive {
		m.mu.Unlock()
		return nil
	}
	m.receiveStories = receive
	m.mu.Unlock()

	m.logger.Info("story setting changed", "receive_stories", receive)
	return m.Reconnect(ctx)
}

// Status returns the state of both channels.
func (m *SocketManager) Status() SocketStatuses {
	return SocketStatuses{
		Authenticated:   m.authState.Status(),
		Unauthenticated: m.unauthState.Status(),
	}
}

// IsOnline reports whether the network is believed reachable. known is
// false until the first online or offline transition.
func (m *SocketManager) IsOnline() (online, known bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.online == nil {
		return false, false
	}
	return *m.online, true
}

// Stats returns the failure recorder.
func (m *SocketManager) Stats() *StatsRecorder {
	return m.stats
}

// GetProvisioningResource connects a standalone provisioning channel. Its
// inbound requests go to handler, and handler.HandleDisconnect runs when it
// closes. The manager does not track or reconnect it.
func (m *SocketManager) GetProvisioningResource(ctx context.Context, handler RequestHandler) (*transport.Resource, error) {
	m.mu.Lock()
	err := m.usableLocked()
	opts := transport.ConnectOptions{Languages: m.config.Languages}
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if m.config.ProvisioningDialer == nil {
		return nil, ErrProvisioningUnsupported
	}

	cfg := m.resourceConfig(ProvisioningChannel)
	cfg.KeepAlive.Path = transport.ProvisioningKeepAlivePath

	p := transport.ConnectProvisioning(m.ctx, m.config.ProvisioningDialer, func(req *transport.IncomingRequest) {
		if err := handler.HandleRequest(req); err != nil {
			m.logger.Warn("provisioning request handler failed", "type", req.Type, "error", err)
		}
	}, opts, cfg)

	r, err := p.Result(ctx)
	if err != nil {
		p.Abort()
		return nil, err
	}

	r.OnClose(func(ev transport.CloseEvent) {
		m.logger.Info("provisioning socket closed", "code", ev.Code, "reason", ev.Reason)
		handler.HandleDisconnect()
	})
	return r, nil
}

// Close stops the reconnect loop, closes both channels and flushes the
// failure stats. Close must not be called from an event handler.
func (m *SocketManager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	a, u := m.authenticated, m.unauthenticated
	m.authenticated, m.unauthenticated = nil, nil
	timer := m.rotationTimer
	m.rotationTimer = nil
	m.mu.Unlock()

	m.reconnector.Stop()
	if timer != nil {
		timer.Stop()
	}
	if a != nil {
		a.Abort()
		m.authenticatedDropped()
	}
	if u != nil {
		u.Abort()
		m.unauthenticatedDropped()
	}
	m.cancel()

	_, _, err := m.stats.Flush(time.Now())
	return err
}

// handleRequest receives inbound requests of one authenticated attempt.
// envelopes counts that attempt's API messages.
func (m *SocketManager) handleRequest(req *transport.IncomingRequest, envelopes *atomic.Int64) {
	if req.Type == transport.RequestTypeAPIMessage && envelopes.Add(1) == 1 {
		m.emit(Event{Type: EventFirstEnvelope, Request: req})
	}
	m.dispatcher.Dispatch(req)
}

func (m *SocketManager) handleAlerts(values []string) {
	alerts := ParseServerAlerts(values)
	m.logger.Info("received server alerts", "count", len(alerts))
	m.emit(Event{Type: EventServerAlerts, Alerts: alerts})
}

func (m *SocketManager) setAuthenticatedState(to connection.State) {
	if !m.transition(m.authState, ChannelAuthenticated, to) {
		return
	}
	m.emit(Event{Type: EventStatusChange, Status: to})
	if to == connection.StateOpen {
		m.setOnline(true)
	}
}

func (m *SocketManager) setUnauthenticatedState(to connection.State) {
	m.transition(m.unauthState, ChannelUnauthenticated, to)
}

func (m *SocketManager) transition(sm *connection.StateMachine, channel ChannelKind, to connection.State) bool {
	from := sm.State()
	changed, err := sm.Transition(to)
	if err != nil {
		m.logger.Warn("state change rejected", "channel", channel, "error", err)
		return false
	}
	if !changed {
		return false
	}

	metrics.ChannelState.WithLabelValues(channel.String()).Set(float64(to))
	m.logStateChange(channel.String(), log.StateEntityChannel, from.String(), to.String(), "")
	return true
}

// setOnline records an online or offline transition. Repeating the current
// value is a no-op.
func (m *SocketManager) setOnline(online bool) {
	m.mu.Lock()
	if m.online != nil && *m.online == online {
		m.mu.Unlock()
		return
	}
	var old string
	if m.online != nil {
		old = onlineName(*m.online)
	}
	m.online = &online
	m.mu.Unlock()

	if online {
		metrics.Online.Set(1)
		m.emit(Event{Type: EventOnline})
	} else {
		metrics.Online.Set(0)
		m.emit(Event{Type: EventOffline})
	}
	m.logStateChange("", log.StateEntityNetwork, old, onlineName(online), "")
}

func onlineName(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}

func (m *SocketManager) emit(event Event) {
	m.mu.Lock()
	handlers := slices.Clone(m.eventHandlers)
	m.mu.Unlock()

	for _, handler := range handlers {
		handler(event)
	}
}

// usableLocked fails when no new connection may be made.
func (m *SocketManager) usableLocked() error {
	if m.closed {
		return ErrManagerClosed
	}
	if m.expiration != 0 {
		return fmt.Errorf("%w: %s", ErrExpired, m.expiration)
	}
	return nil
}

func (m *SocketManager) connectOptionsLocked() transport.ConnectOptions {
	return transport.ConnectOptions{
		ReceiveStories: m.receiveStories,
		Languages:      m.config.Languages,
	}
}

func (m *SocketManager) resourceConfig(name string) transport.ResourceConfig {
	return transport.ResourceConfig{
		Name:      name,
		KeepAlive: m.config.KeepAlive,
		OnKeepAlive: func(result transport.KeepAliveResult, _ time.Duration, _ int) {
			m.stats.KeepAlive(result)
		},
		Logger:         m.logger,
		ProtocolLogger: m.plog,
	}
}

func (m *SocketManager) logStateChange(channel string, entity log.StateEntity, from, to, reason string) {
	m.plog.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerManager,
		Category:  log.CategoryState,
		Channel:   channel,
		StateChange: &log.StateChangeEvent{
			Entity:   entity,
			OldState: from,
			NewState: to,
			Reason:   reason,
		},
	})
}

func (m *SocketManager) logError(channel string, err error, op string) {
	event := &log.ErrorEventData{
		Layer:   log.LayerManager,
		Message: err.Error(),
		Context: op,
	}
	if status, ok := transport.HTTPStatusOf(err); ok {
		event.Code = &status
	}
	m.plog.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerManager,
		Category:  log.CategoryError,
		Channel:   channel,
		Error:     event,
	})
}
