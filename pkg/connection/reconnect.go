package connection

import (
	"context"
	"sync"
	"time"
)

// ReconnectFunc is called to re-establish a connection after the backoff
// delay. A non-nil error schedules another round.
type ReconnectFunc func(ctx context.Context) error

// Reconnector runs reconnect rounds on a single goroutine. Each round waits
// the next backoff delay and then calls the reconnect function, so rounds
// never overlap. Triggers that arrive while a round is pending coalesce.
type Reconnector struct {
	mu sync.Mutex

	// Backoff calculator
	backoff *Backoff

	// Reconnect function
	reconnectFn ReconnectFunc

	// Reports whether a round still has work to do
	needed func() bool

	// Context for cancellation
	ctx    context.Context
	cancel context.CancelFunc

	// Wait group for the loop goroutine
	wg sync.WaitGroup

	// Channel to signal a round should start
	reconnectCh chan struct{}

	// Cancels the sleep of the pending round
	sleepCancel context.CancelFunc

	started bool
	stopped bool

	// Callbacks
	onScheduled func(attempt int, delay time.Duration)
	onCanceled  func()
}

// NewReconnector creates a reconnector. The loop starts with Start.
func NewReconnector(b *Backoff, fn ReconnectFunc) *Reconnector {
	if b == nil {
		b = NewBackoff()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Reconnector{
		backoff:     b,
		reconnectFn: fn,
		needed:      func() bool { return true },
		ctx:         ctx,
		cancel:      cancel,
		reconnectCh: make(chan struct{}, 1),
	}
}

// Backoff returns the backoff policy driving the delays.
func (r *Reconnector) Backoff() *Backoff {
	return r.backoff
}

// SetNeeded sets the predicate checked before sleeping and again before
// reconnecting. A round is dropped when it returns false.
func (r *Reconnector) SetNeeded(fn func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn == nil {
		fn = func() bool { return true }
	}
	r.needed = fn
}

// OnScheduled sets a callback invoked when a round starts sleeping.
func (r *Reconnector) OnScheduled(fn func(attempt int, delay time.Duration)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onScheduled = fn
}

// OnCanceled sets a callback invoked when a pending round is interrupted.
func (r *Reconnector) OnCanceled(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onCanceled = fn
}

// Start starts the loop goroutine. Calling Start more than once is a no-op.
func (r *Reconnector) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.stopped {
		return
	}
	r.started = true

	r.wg.Add(1)
	go r.loop()
}

// Trigger requests a reconnect round.
func (r *Reconnector) Trigger() {
	select {
	case r.reconnectCh <- struct{}{}:
	default:
		// Already pending
	}
}

// Pending reports whether a round is sleeping.
func (r *Reconnector) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sleepCancel != nil
}

// Interrupt cancels the sleeping round, if any, and drops queued triggers.
// It does not affect a reconnect call that is already running.
func (r *Reconnector) Interrupt() {
	select {
	case <-r.reconnectCh:
	default:
	}

	r.mu.Lock()
	cancel := r.sleepCancel
	r.sleepCancel = nil
	onCanceled := r.onCanceled
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		if onCanceled != nil {
			onCanceled()
		}
	}
}

// Stop ends the loop and waits for it to exit.
func (r *Reconnector) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
}

// loop runs in a goroutine and handles reconnect rounds.
func (r *Reconnector) loop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.reconnectCh:
			r.round()
		}
	}
}

// round performs one delayed reconnect.
func (r *Reconnector) round() {
	r.mu.Lock()
	needed := r.needed
	onScheduled := r.onScheduled
	r.mu.Unlock()

	if !needed() {
		return
	}

	delay := r.backoff.Next()
	attempts := r.backoff.Attempts()

	sleepCtx, cancel := context.WithCancel(r.ctx)
	defer cancel()

	r.mu.Lock()
	r.sleepCancel = cancel
	r.mu.Unlock()

	if onScheduled != nil {
		onScheduled(attempts, delay)
	}

	// Wait for backoff delay
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-sleepCtx.Done():
		return
	case <-timer.C:
	}

	r.mu.Lock()
	canceled := r.sleepCancel == nil
	r.sleepCancel = nil
	r.mu.Unlock()

	if canceled || r.ctx.Err() != nil || !needed() {
		return
	}

	if err := r.reconnectFn(r.ctx); err != nil && r.ctx.Err() == nil {
		r.Trigger()
	}
}
