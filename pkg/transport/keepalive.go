package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chatsock/chatsock-go/pkg/metrics"
)

// Keep-alive constants.
const (
	// DefaultKeepAlivePath is the probe path on chat channels.
	DefaultKeepAlivePath = "/v1/keepalive"

	// ProvisioningKeepAlivePath is the probe path on the provisioning channel.
	ProvisioningKeepAlivePath = "/v1/keepalive/provisioning"

	// DefaultKeepAliveInterval is the delay between a successful probe and the next.
	DefaultKeepAliveInterval = 30 * time.Second

	// DefaultKeepAliveTimeout bounds a single probe.
	DefaultKeepAliveTimeout = 30 * time.Second

	// DefaultStaleThreshold is the longest gap since the last successful probe
	// before the connection is dropped without probing, e.g. after the
	// machine slept.
	DefaultStaleThreshold = 5 * time.Minute

	// DefaultDelayedThreshold is the probe round trip above which the probe
	// is logged as delayed.
	DefaultDelayedThreshold = 500 * time.Millisecond
)

// KeepAliveConfig configures keep-alive behavior.
type KeepAliveConfig struct {
	// Path is the probe request path.
	Path string

	// Interval is the delay between a successful probe and the next.
	Interval time.Duration

	// Timeout bounds a single probe.
	Timeout time.Duration

	// StaleThreshold is the longest tolerated gap since the last success.
	StaleThreshold time.Duration

	// DelayedThreshold is the round trip above which a probe is logged.
	DelayedThreshold time.Duration
}

// DefaultKeepAliveConfig returns the default keep-alive configuration.
func DefaultKeepAliveConfig() KeepAliveConfig {
	return KeepAliveConfig{
		Path:             DefaultKeepAlivePath,
		Interval:         DefaultKeepAliveInterval,
		Timeout:          DefaultKeepAliveTimeout,
		StaleThreshold:   DefaultStaleThreshold,
		DelayedThreshold: DefaultDelayedThreshold,
	}
}

// withDefaults fills zero fields from DefaultKeepAliveConfig.
func (c KeepAliveConfig) withDefaults() KeepAliveConfig {
	d := DefaultKeepAliveConfig()
	if c.Path == "" {
		c.Path = d.Path
	}
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.StaleThreshold <= 0 {
		c.StaleThreshold = d.StaleThreshold
	}
	if c.DelayedThreshold <= 0 {
		c.DelayedThreshold = d.DelayedThreshold
	}
	return c
}

// KeepAliveResult is the outcome of one probe.
type KeepAliveResult uint8

const (
	// KeepAliveSuccess is a 2xx response within the timeout.
	KeepAliveSuccess KeepAliveResult = iota
	// KeepAliveStale means the last success was too long ago to probe.
	KeepAliveStale
	// KeepAliveBadStatus is a non-2xx response.
	KeepAliveBadStatus
	// KeepAliveFailure is an error or a timeout.
	KeepAliveFailure
)

// String returns the result name.
func (r KeepAliveResult) String() string {
	switch r {
	case KeepAliveSuccess:
		return "SUCCESS"
	case KeepAliveStale:
		return "STALE"
	case KeepAliveBadStatus:
		return "BAD_STATUS"
	case KeepAliveFailure:
		return "FAILURE"
	default:
		return "UNKNOWN"
	}
}

func (r KeepAliveResult) metricLabel() string {
	switch r {
	case KeepAliveSuccess:
		return metrics.ResultSuccess
	case KeepAliveStale:
		return metrics.ResultStale
	case KeepAliveBadStatus:
		return metrics.ResultStatus
	default:
		return metrics.ResultTimeout
	}
}

// KeepAliveTarget is what a KeepAlive probes and closes.
// Implemented by Resource.
type KeepAliveTarget interface {
	SendRequest(ctx context.Context, req *Request) (*Response, error)
	Close(code CloseCode, reason string)
}

// KeepAliveObserver is notified after every probe. status is the response
// status for KeepAliveBadStatus and 0 otherwise.
type KeepAliveObserver func(result KeepAliveResult, rtt time.Duration, status int)

// KeepAlive checks that one resource is still alive with periodic probes.
// Any failed probe closes the resource with CloseUnexpectedDisconnect.
type KeepAlive struct {
	config KeepAliveConfig
	target KeepAliveTarget
	logger *slog.Logger

	mu          sync.Mutex
	observer    KeepAliveObserver
	timer       *time.Timer
	generation  uint64
	lastAliveAt time.Time
	stopped     bool

	now func() time.Time
}

// NewKeepAlive creates a keep-alive checker. Call Reset to arm it.
func NewKeepAlive(config KeepAliveConfig, target KeepAliveTarget, logger *slog.Logger) *KeepAlive {
	return &KeepAlive{
		config: config.withDefaults(),
		target: target,
		logger: orDiscard(logger),
		now:    time.Now,
	}
}

// Config returns the effective configuration.
func (ka *KeepAlive) Config() KeepAliveConfig {
	return ka.config
}

// SetObserver sets a callback invoked after every probe.
func (ka *KeepAlive) SetObserver(fn KeepAliveObserver) {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	ka.observer = fn
}

// wallNow returns the current time without its monotonic reading. The
// monotonic clock stops while the host is suspended, so staleness is
// measured on the wall clock.
func (ka *KeepAlive) wallNow() time.Time {
	return ka.now().Round(0)
}

// LastAliveAt returns the wall-clock time of the last Reset.
func (ka *KeepAlive) LastAliveAt() time.Time {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return ka.lastAliveAt
}

// IsRunning returns true while a probe timer is armed.
func (ka *KeepAlive) IsRunning() bool {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return ka.timer != nil
}

// Reset records the connection as alive and arms the timer for the next
// probe. It has no effect after Stop.
func (ka *KeepAlive) Reset() {
	ka.mu.Lock()
	defer ka.mu.Unlock()

	if ka.stopped {
		return
	}

	ka.lastAliveAt = ka.wallNow()
	ka.clearTimerLocked()

	gen := ka.generation
	ka.timer = time.AfterFunc(ka.config.Interval, func() {
		ka.mu.Lock()
		current := gen == ka.generation
		ka.mu.Unlock()
		if current {
			ka.Send(0)
		}
	})
}

// Stop cancels the timer. The checker cannot be restarted.
func (ka *KeepAlive) Stop() {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	ka.stopped = true
	ka.clearTimerLocked()
}

// Send probes the connection now and blocks until the probe settles.
// timeout <= 0 uses the configured timeout. It returns true if the
// connection is alive.
func (ka *KeepAlive) Send(timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = ka.config.Timeout
	}

	ka.mu.Lock()
	if ka.stopped {
		ka.mu.Unlock()
		return false
	}
	ka.clearTimerLocked()
	lastAliveAt := ka.lastAliveAt
	stale := ka.wallNow().Sub(lastAliveAt) > ka.config.StaleThreshold
	ka.mu.Unlock()

	if stale {
		ka.logger.Info("keepalive: disconnecting due to stale state", "last_alive_at", lastAliveAt)
		ka.observe(KeepAliveStale, 0, 0)
		ka.target.Close(CloseUnexpectedDisconnect,
			fmt.Sprintf("last keepalive request was too far in the past: %s", lastAliveAt.Format(time.RFC3339)))
		return false
	}

	ka.logger.Debug("keepalive: sending probe", "path", ka.config.Path, "timeout", timeout)
	start := ka.now()
	resp, err := ka.probe(timeout)
	rtt := ka.now().Sub(start)

	if err != nil {
		ka.logger.Warn("keepalive: no response", "timeout", timeout, "error", err)
		ka.observe(KeepAliveFailure, rtt, 0)
		ka.target.Close(CloseUnexpectedDisconnect,
			fmt.Sprintf("no response to keepalive request after %s", timeout))
		return false
	}

	if !resp.OK() {
		ka.logger.Warn("keepalive: bad response status", "status", resp.Status)
		ka.observe(KeepAliveBadStatus, rtt, resp.Status)
		ka.target.Close(CloseUnexpectedDisconnect,
			fmt.Sprintf("keepalive response with %d code", resp.Status))
		return false
	}

	if rtt > ka.config.DelayedThreshold {
		ka.logger.Warn("keepalive: delayed response", "rtt", rtt)
	}
	ka.observe(KeepAliveSuccess, rtt, 0)

	ka.Reset()
	return true
}

// probe sends the probe request and waits at most timeout, even if the
// target ignores its context.
func (ka *KeepAlive) probe(timeout time.Duration) (*Response, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	type outcome struct {
		resp *Response
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		resp, err := ka.target.SendRequest(ctx, &Request{Verb: "GET", Path: ka.config.Path})
		done <- outcome{resp, err}
	}()

	select {
	case o := <-done:
		if o.err == nil && o.resp == nil {
			return nil, ErrNotConnected
		}
		return o.resp, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (ka *KeepAlive) observe(result KeepAliveResult, rtt time.Duration, status int) {
	metrics.KeepAliveTotal.WithLabelValues(result.metricLabel()).Inc()
	if result == KeepAliveSuccess {
		metrics.KeepAliveRTT.Observe(rtt.Seconds())
	}

	ka.mu.Lock()
	fn := ka.observer
	ka.mu.Unlock()

	if fn != nil {
		fn(result, rtt, status)
	}
}

func (ka *KeepAlive) clearTimerLocked() {
	ka.generation++
	if ka.timer != nil {
		ka.timer.Stop()
		ka.timer = nil
	}
}

func orDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
