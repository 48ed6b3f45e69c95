package connection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testBackoff(seq ...time.Duration) *Backoff {
	return NewBackoffWithConfig(BackoffConfig{Sequence: seq, Jitter: 0})
}

func TestReconnector(t *testing.T) {
	t.Run("DelayedReconnect", func(t *testing.T) {
		var calls atomic.Int32
		r := NewReconnector(testBackoff(50*time.Millisecond), func(ctx context.Context) error {
			calls.Add(1)
			return nil
		})
		r.Start()
		defer r.Stop()

		start := time.Now()
		r.Trigger()

		time.Sleep(20 * time.Millisecond)
		if calls.Load() != 0 {
			t.Fatal("reconnect ran before the backoff delay")
		}
		if !r.Pending() {
			t.Error("Pending() = false while sleeping")
		}

		time.Sleep(100 * time.Millisecond)
		if got := calls.Load(); got != 1 {
			t.Errorf("reconnect called %d times, want 1", got)
		}
		if time.Since(start) < 50*time.Millisecond {
			t.Error("reconnect ran too early")
		}
	})

	t.Run("TriggersCoalesce", func(t *testing.T) {
		var calls atomic.Int32
		r := NewReconnector(testBackoff(30*time.Millisecond), func(ctx context.Context) error {
			calls.Add(1)
			return nil
		})
		r.Start()
		defer r.Stop()

		r.Trigger()
		r.Trigger()
		r.Trigger()

		time.Sleep(150 * time.Millisecond)
		// One round runs, at most one more was queued while it slept.
		if got := calls.Load(); got < 1 || got > 2 {
			t.Errorf("reconnect called %d times, want 1 or 2", got)
		}
	})

	t.Run("FailureSchedulesAnotherRound", func(t *testing.T) {
		var mu sync.Mutex
		var attempts []time.Time
		var calls atomic.Int32

		r := NewReconnector(testBackoff(20*time.Millisecond, 60*time.Millisecond), func(ctx context.Context) error {
			mu.Lock()
			attempts = append(attempts, time.Now())
			mu.Unlock()
			if calls.Add(1) < 3 {
				return errors.New("not yet")
			}
			return nil
		})
		r.Start()
		defer r.Stop()

		r.Trigger()
		time.Sleep(400 * time.Millisecond)

		if got := calls.Load(); got != 3 {
			t.Fatalf("reconnect called %d times, want 3", got)
		}

		mu.Lock()
		defer mu.Unlock()
		if gap := attempts[2].Sub(attempts[1]); gap < 50*time.Millisecond {
			t.Errorf("gap between attempts 2 and 3 = %v, want >= 60ms", gap)
		}
	})

	t.Run("NotNeededSkipsRound", func(t *testing.T) {
		var calls atomic.Int32
		r := NewReconnector(testBackoff(10*time.Millisecond), func(ctx context.Context) error {
			calls.Add(1)
			return nil
		})
		r.SetNeeded(func() bool { return false })
		r.Start()
		defer r.Stop()

		r.Trigger()
		time.Sleep(60 * time.Millisecond)

		if calls.Load() != 0 {
			t.Error("reconnect ran although not needed")
		}
		if r.Backoff().Attempts() != 0 {
			t.Error("backoff advanced for a skipped round")
		}
	})

	t.Run("InterruptCancelsSleep", func(t *testing.T) {
		var calls atomic.Int32
		var canceled atomic.Bool
		r := NewReconnector(testBackoff(10*time.Second), func(ctx context.Context) error {
			calls.Add(1)
			return nil
		})
		r.OnCanceled(func() { canceled.Store(true) })

		scheduled := make(chan time.Duration, 1)
		r.OnScheduled(func(attempt int, delay time.Duration) { scheduled <- delay })
		r.Start()
		defer r.Stop()

		r.Trigger()
		select {
		case d := <-scheduled:
			if d != 10*time.Second {
				t.Errorf("scheduled delay = %v, want 10s", d)
			}
		case <-time.After(time.Second):
			t.Fatal("round was not scheduled")
		}

		r.Interrupt()
		time.Sleep(30 * time.Millisecond)

		if r.Pending() {
			t.Error("Pending() = true after Interrupt")
		}
		if !canceled.Load() {
			t.Error("OnCanceled callback was not called")
		}
		if calls.Load() != 0 {
			t.Error("interrupted round still reconnected")
		}
	})

	t.Run("StopEndsSleepingRound", func(t *testing.T) {
		r := NewReconnector(testBackoff(10*time.Second), func(ctx context.Context) error {
			return nil
		})
		r.Start()
		r.Trigger()
		time.Sleep(10 * time.Millisecond)

		done := make(chan struct{})
		go func() {
			r.Stop()
			r.Stop()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Stop() did not return")
		}
	})
}
