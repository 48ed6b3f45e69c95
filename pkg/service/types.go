package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/chatsock/chatsock-go/pkg/connection"
	"github.com/chatsock/chatsock-go/pkg/log"
	"github.com/chatsock/chatsock-go/pkg/persistence"
	"github.com/chatsock/chatsock-go/pkg/transport"
)

// Manager errors.
var (
	ErrExpired                 = errors.New("client expired")
	ErrInvalidConfig           = errors.New("invalid configuration")
	ErrManagerClosed           = errors.New("socket manager closed")
	ErrNoCredentials           = errors.New("no credentials")
	ErrNotAuthenticated        = errors.New("authenticated socket unavailable")
	ErrProvisioningUnsupported = errors.New("dialer does not support provisioning")
	ErrFetchAborted            = errors.New("fetch aborted")
	ErrInvalidURL              = errors.New("invalid fetch url")
)

// ChannelKind identifies one of the two managed channels.
type ChannelKind uint8

const (
	// ChannelAuthenticated is the channel opened with the user's credentials.
	ChannelAuthenticated ChannelKind = iota

	// ChannelUnauthenticated is the anonymous channel.
	ChannelUnauthenticated
)

// String returns the channel name used in logs and metrics.
func (c ChannelKind) String() string {
	switch c {
	case ChannelAuthenticated:
		return "authenticated"
	case ChannelUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// ProvisioningChannel is the name of standalone provisioning resources.
const ProvisioningChannel = "provisioning"

// ExpirationReason records why the client stopped connecting.
type ExpirationReason uint8

const (
	// ExpirationRemote - the server reported the build as expired.
	ExpirationRemote ExpirationReason = iota + 1

	// ExpirationBuild - the local build reached its end of life.
	ExpirationBuild
)

// String returns the reason name.
func (r ExpirationReason) String() string {
	switch r {
	case ExpirationRemote:
		return "REMOTE"
	case ExpirationBuild:
		return "BUILD"
	default:
		return "UNKNOWN"
	}
}

// Event types for manager callbacks.
type EventType uint8

const (
	// EventAuthError - the server rejected the stored credentials.
	EventAuthError EventType = iota

	// EventStatusChange - the authenticated channel changed state.
	EventStatusChange

	// EventOnline - the network became reachable.
	EventOnline

	// EventOffline - the network became unreachable.
	EventOffline

	// EventFirstEnvelope - the first envelope after a connect arrived.
	EventFirstEnvelope

	// EventServerAlerts - the server sent alerts on connect.
	EventServerAlerts

	// EventAppExpired - the server refused this client version.
	EventAppExpired

	// EventConnectedElsewhere - another session took over the account.
	EventConnectedElsewhere
)

// String returns the event type name.
func (e EventType) String() string {
	switch e {
	case EventAuthError:
		return "AUTH_ERROR"
	case EventStatusChange:
		return "STATUS_CHANGE"
	case EventOnline:
		return "ONLINE"
	case EventOffline:
		return "OFFLINE"
	case EventFirstEnvelope:
		return "FIRST_ENVELOPE"
	case EventServerAlerts:
		return "SERVER_ALERTS"
	case EventAppExpired:
		return "APP_EXPIRED"
	case EventConnectedElsewhere:
		return "CONNECTED_ELSEWHERE"
	default:
		return "UNKNOWN"
	}
}

// Event represents a manager event.
type Event struct {
	// Type is the event type.
	Type EventType

	// Status is the new authenticated channel state (for status changes).
	Status connection.State

	// Request is the first envelope (for first-envelope events).
	Request *transport.IncomingRequest

	// Alerts are the parsed server alerts (for alert events).
	Alerts []ServerAlert

	// Error is the failure behind auth and expiry events.
	Error error
}

// EventHandler handles manager events. Handlers run on the goroutine that
// produced the event and may call back into the manager.
type EventHandler func(Event)

// SocketStatuses is a snapshot of both channels.
type SocketStatuses struct {
	Authenticated   connection.Status
	Unauthenticated connection.Status
}

// ManagerConfig configures a SocketManager.
type ManagerConfig struct {
	// Dialer establishes chat connections. Required.
	Dialer transport.Dialer

	// ProvisioningDialer establishes provisioning connections. When nil and
	// Dialer also implements transport.ProvisioningDialer, Dialer is used.
	ProvisioningDialer transport.ProvisioningDialer

	// KeepAlive configures the keepalive of both managed channels.
	KeepAlive transport.KeepAliveConfig

	// Backoff configures the authenticated reconnect policy. Its sequence
	// is used while the network is believed reachable. A zero Jitter means
	// DefaultJitter; a negative one disables jitter.
	Backoff connection.BackoffConfig

	// OfflineSequence replaces the back-off sequence while the network is
	// unreachable.
	OfflineSequence []time.Duration

	// UnauthenticatedRotation is the lifetime of an anonymous resource.
	UnauthenticatedRotation time.Duration

	// OfflineKeepAliveTimeout bounds forced keepalives while offline.
	OfflineKeepAliveTimeout time.Duration

	// ReceiveStories is sent on authenticated connects.
	ReceiveStories bool

	// Languages are sent as Accept-Language on connects.
	Languages []string

	// Stats receives connection and healthcheck failure counts. Nil
	// disables persistence.
	Stats *persistence.StatsStore

	// StatsName names the stats file within Stats.
	StatsName string

	// Logger for operational logging. Nil disables it.
	Logger *slog.Logger

	// ProtocolLogger receives state, request and close events.
	ProtocolLogger log.Logger
}

// Default manager settings.
const (
	DefaultUnauthenticatedRotation = 5 * time.Minute
	DefaultOfflineKeepAliveTimeout = 5 * time.Second
	DefaultStatsName               = "chat"
)

// DefaultManagerConfig returns a ManagerConfig with default settings. The
// Dialer still has to be set.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		KeepAlive: transport.DefaultKeepAliveConfig(),
		Backoff: connection.BackoffConfig{
			Sequence: connection.FibonacciSequence,
			Jitter:   connection.DefaultJitter,
		},
		OfflineSequence:         connection.ExtendedFibonacciSequence,
		UnauthenticatedRotation: DefaultUnauthenticatedRotation,
		OfflineKeepAliveTimeout: DefaultOfflineKeepAliveTimeout,
		ReceiveStories:          true,
		StatsName:               DefaultStatsName,
	}
}

func (c ManagerConfig) withDefaults() ManagerConfig {
	if c.UnauthenticatedRotation <= 0 {
		c.UnauthenticatedRotation = DefaultUnauthenticatedRotation
	}
	if c.OfflineKeepAliveTimeout <= 0 {
		c.OfflineKeepAliveTimeout = DefaultOfflineKeepAliveTimeout
	}
	if len(c.Backoff.Sequence) == 0 {
		c.Backoff.Sequence = connection.FibonacciSequence
	}
	if c.Backoff.Jitter == 0 {
		c.Backoff.Jitter = connection.DefaultJitter
	}
	if len(c.OfflineSequence) == 0 {
		c.OfflineSequence = connection.ExtendedFibonacciSequence
	}
	if c.StatsName == "" {
		c.StatsName = DefaultStatsName
	}
	if c.ProvisioningDialer == nil {
		if pd, ok := c.Dialer.(transport.ProvisioningDialer); ok {
			c.ProvisioningDialer = pd
		}
	}
	return c
}
