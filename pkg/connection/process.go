package connection

import (
	"context"
	"errors"
	"sync"
)

// ErrAborted is returned by a process that was aborted before it produced a
// usable result.
var ErrAborted = errors.New("process aborted")

// AttemptFunc performs one asynchronous attempt. It must honour ctx.
type AttemptFunc[T any] func(ctx context.Context) (T, error)

// Process pairs an in-flight attempt with the ability to abort it.
//
// Aborting a process that already produced a value closes that value with
// the closer. A value produced after Abort is closed as well, and the process
// reports ErrAborted.
type Process[T any] struct {
	name   string
	closer func(T)
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	settled bool
	aborted bool
	value   T
	err     error
}

// StartProcess starts attempt in a new goroutine. closer may be nil.
func StartProcess[T any](parent context.Context, name string, attempt AttemptFunc[T], closer func(T)) *Process[T] {
	ctx, cancel := context.WithCancel(parent)
	p := &Process[T]{
		name:   name,
		closer: closer,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go p.run(ctx, attempt)
	return p
}

func (p *Process[T]) run(ctx context.Context, attempt AttemptFunc[T]) {
	v, err := attempt(ctx)

	p.mu.Lock()
	lateValue := false
	if p.aborted {
		lateValue = err == nil
		var zero T
		p.value, p.err = zero, ErrAborted
	} else {
		p.value, p.err = v, err
	}
	p.settled = true
	p.mu.Unlock()

	p.cancel()
	close(p.done)

	if lateValue && p.closer != nil {
		p.closer(v)
	}
}

// Name returns the process name.
func (p *Process[T]) Name() string {
	return p.name
}

// Done is closed once the attempt has settled.
func (p *Process[T]) Done() <-chan struct{} {
	return p.done
}

// Aborted reports whether Abort has been called.
func (p *Process[T]) Aborted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.aborted
}

// Abort cancels the attempt or closes its result. Safe to call repeatedly.
func (p *Process[T]) Abort() {
	p.mu.Lock()
	if p.aborted {
		p.mu.Unlock()
		return
	}
	p.aborted = true

	var (
		v        T
		hasValue bool
	)
	if p.settled && p.err == nil {
		v, hasValue = p.value, true
		var zero T
		p.value, p.err = zero, ErrAborted
	}
	p.mu.Unlock()

	p.cancel()
	if hasValue && p.closer != nil {
		p.closer(v)
	}
}

// Result waits for the attempt to settle and returns its value.
func (p *Process[T]) Result(ctx context.Context) (T, error) {
	select {
	case <-p.done:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.err
}
