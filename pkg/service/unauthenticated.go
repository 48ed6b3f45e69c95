package service

import (
	"context"
	"time"

	"github.com/chatsock/chatsock-go/pkg/connection"
	"github.com/chatsock/chatsock-go/pkg/metrics"
	"github.com/chatsock/chatsock-go/pkg/transport"
)

// unauthenticatedResource returns the anonymous resource, connecting it if
// there is no attempt. Connect failures are mapped for Fetch callers.
func (m *SocketManager) unauthenticatedResource(ctx context.Context) (*transport.Resource, *transport.ResourceProcess, error) {
	m.mu.Lock()
	if err := m.usableLocked(); err != nil {
		m.mu.Unlock()
		return nil, nil, err
	}

	p := m.unauthenticated
	created := false
	if p == nil {
		opts := transport.ConnectOptions{Languages: m.config.Languages}
		p = transport.ConnectUnauthenticated(m.ctx, m.config.Dialer, opts,
			m.resourceConfig(ChannelUnauthenticated.String()))
		m.unauthenticated = p
		created = true
	}
	m.mu.Unlock()

	if created {
		m.logger.Info("connecting unauthenticated socket")
		m.setUnauthenticatedState(connection.StateConnecting)
		go m.completeUnauthenticated(p)
	}

	r, err := p.Result(ctx)
	if err != nil {
		return nil, nil, mapUnauthenticatedError(err)
	}
	return r, p, nil
}

func (m *SocketManager) completeUnauthenticated(p *transport.ResourceProcess) {
	r, err := p.Result(context.Background())
	if err != nil {
		if !m.detachUnauthenticated(p) {
			metrics.ConnectAttemptsTotal.WithLabelValues(ChannelUnauthenticated.String(), metrics.ResultAborted).Inc()
			return
		}
		metrics.ConnectAttemptsTotal.WithLabelValues(ChannelUnauthenticated.String(), metrics.ResultFailure).Inc()
		m.logger.Warn("unauthenticated socket connect failed", "error", err)
		m.logError(ChannelUnauthenticated.String(), err, "connect")
		m.unauthenticatedDropped()
		return
	}

	if !m.isCurrentUnauthenticated(p) {
		metrics.ConnectAttemptsTotal.WithLabelValues(ChannelUnauthenticated.String(), metrics.ResultAborted).Inc()
		return
	}

	metrics.ConnectAttemptsTotal.WithLabelValues(ChannelUnauthenticated.String(), metrics.ResultSuccess).Inc()
	m.setUnauthenticatedState(connection.StateOpen)

	r.OnClose(func(ev transport.CloseEvent) {
		if !m.detachUnauthenticated(p) {
			return
		}
		m.logger.Warn("unauthenticated socket closed", "code", ev.Code, "reason", ev.Reason, "remote", ev.Remote)
		m.unauthenticatedDropped()
	})
}

// armRotation starts the rotation timer for r unless one is running.
func (m *SocketManager) armRotation(p *transport.ResourceProcess, r *transport.Resource) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || m.unauthenticated != p || m.rotationTimer != nil {
		return
	}
	m.rotationTimer = time.AfterFunc(m.config.UnauthenticatedRotation, func() {
		m.rotateUnauthenticated(p, r)
	})
}

// rotateUnauthenticated replaces a long-lived anonymous resource.
func (m *SocketManager) rotateUnauthenticated(p *transport.ResourceProcess, r *transport.Resource) {
	current := m.detachUnauthenticated(p)

	m.logger.Info("rotating unauthenticated socket")
	r.Shutdown()
	if !current {
		return
	}
	m.unauthenticatedDropped()

	if _, _, err := m.unauthenticatedResource(m.ctx); err != nil {
		m.logger.Warn("failed to reconnect unauthenticated socket", "error", err)
	}
}

// detachUnauthenticated clears the current attempt and its rotation timer
// if the attempt is still p.
func (m *SocketManager) detachUnauthenticated(p *transport.ResourceProcess) bool {
	m.mu.Lock()
	if m.unauthenticated != p {
		m.mu.Unlock()
		return false
	}
	m.unauthenticated = nil
	timer := m.rotationTimer
	m.rotationTimer = nil
	m.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	return true
}

func (m *SocketManager) isCurrentUnauthenticated(p *transport.ResourceProcess) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unauthenticated == p
}

func (m *SocketManager) unauthenticatedDropped() {
	m.setUnauthenticatedState(connection.StateClosed)
}
