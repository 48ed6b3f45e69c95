package connection

import (
	"errors"
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	t.Run("FibonacciSequence", func(t *testing.T) {
		b := NewBackoff()

		expected := []time.Duration{
			1 * time.Second,
			2 * time.Second,
			3 * time.Second,
			5 * time.Second,
			8 * time.Second,
			13 * time.Second,
			21 * time.Second,
			34 * time.Second,
			55 * time.Second,
			55 * time.Second, // Should stay at the last value
			55 * time.Second,
		}

		for i, exp := range expected {
			base := b.Current()
			_ = b.Next()

			if base != exp {
				t.Errorf("Attempt %d: base = %v, want %v", i, base, exp)
			}
		}
	})

	t.Run("ExtendedSequence", func(t *testing.T) {
		if got := len(ExtendedFibonacciSequence); got != 20 {
			t.Fatalf("len(ExtendedFibonacciSequence) = %d, want 20", got)
		}
		for i, d := range FibonacciSequence {
			if ExtendedFibonacciSequence[i] != d {
				t.Errorf("ExtendedFibonacciSequence[%d] = %v, want %v", i, ExtendedFibonacciSequence[i], d)
			}
		}
		if last := ExtendedFibonacciSequence[19]; last != 10946*time.Second {
			t.Errorf("last = %v, want 10946s", last)
		}
	})

	t.Run("Jitter", func(t *testing.T) {
		b := NewBackoff()

		samples := make([]time.Duration, 20)
		for i := range samples {
			samples[i] = b.Peek()
		}

		for i, s := range samples {
			if s < 1*time.Second || s > 1*time.Second+DefaultJitter {
				t.Errorf("Sample %d: %v out of expected range [1s, 6s]", i, s)
			}
		}

		allSame := true
		for i := 1; i < len(samples); i++ {
			if samples[i] != samples[0] {
				allSame = false
				break
			}
		}
		if allSame {
			t.Error("All jittered samples are identical - jitter may not be working")
		}
	})

	t.Run("MonotoneUntilReset", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{Jitter: -1})

		prev := time.Duration(0)
		for i := 0; i < 15; i++ {
			d := b.Next()
			if d < prev {
				t.Fatalf("Attempt %d: %v < previous %v", i, d, prev)
			}
			prev = d
		}

		b.Reset()
		if got := b.Next(); got != 1*time.Second {
			t.Errorf("Next() after reset = %v, want 1s", got)
		}
	})

	t.Run("Reset", func(t *testing.T) {
		b := NewBackoff()

		for i := 0; i < 5; i++ {
			b.Next()
		}

		if b.Current() <= FibonacciSequence[0] {
			t.Error("Backoff should have increased")
		}

		b.Reset()

		if b.Current() != FibonacciSequence[0] {
			t.Errorf("Current() = %v after reset, want %v", b.Current(), FibonacciSequence[0])
		}
		if b.Attempts() != 0 {
			t.Errorf("Attempts() = %d after reset, want 0", b.Attempts())
		}
	})

	t.Run("ResetTo", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{Jitter: -1})
		b.ResetTo(ExtendedFibonacciSequence)

		for i := 0; i < 30; i++ {
			b.Next()
		}
		if got := b.Current(); got != 10946*time.Second {
			t.Errorf("Current() = %v, want 10946s", got)
		}

		b.ResetTo(FibonacciSequence)
		for i := 0; i < 30; i++ {
			b.Next()
		}
		if got := b.Current(); got != 55*time.Second {
			t.Errorf("Current() = %v, want 55s", got)
		}

		b.ResetTo(nil)
		if got := b.Current(); got != 1*time.Second {
			t.Errorf("Current() after ResetTo(nil) = %v, want 1s", got)
		}
	})

	t.Run("Attempts", func(t *testing.T) {
		b := NewBackoff()

		if b.Attempts() != 0 {
			t.Errorf("Initial Attempts() = %d, want 0", b.Attempts())
		}

		for i := 1; i <= 5; i++ {
			b.Next()
			if b.Attempts() != i {
				t.Errorf("After %d calls, Attempts() = %d", i, b.Attempts())
			}
		}
	})

	t.Run("CustomConfig", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{
			Sequence: []time.Duration{100 * time.Millisecond, 200 * time.Millisecond},
			Jitter:   0, // No jitter for deterministic test
		})

		expected := []time.Duration{
			100 * time.Millisecond,
			200 * time.Millisecond,
			200 * time.Millisecond,
		}

		for i, exp := range expected {
			got := b.NextBackOff()
			if got != exp {
				t.Errorf("Attempt %d: got %v, want %v", i, got, exp)
			}
		}
	})

	t.Run("SequenceIsCopied", func(t *testing.T) {
		seq := []time.Duration{time.Second}
		b := NewBackoffWithConfig(BackoffConfig{Sequence: seq})
		seq[0] = time.Hour

		if got := b.Current(); got != time.Second {
			t.Errorf("Current() = %v, want 1s", got)
		}
	})
}

func TestStateMachine(t *testing.T) {
	t.Run("InitialState", func(t *testing.T) {
		m := NewStateMachine()
		if m.State() != StateClosed {
			t.Errorf("Initial state = %v, want StateClosed", m.State())
		}
		if !m.Status().LastConnectedAt.IsZero() {
			t.Error("LastConnectedAt should be zero before first connect")
		}
	})

	t.Run("Lifecycle", func(t *testing.T) {
		m := NewStateMachine()
		fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		m.now = func() time.Time { return fixed }

		for _, to := range []State{StateConnecting, StateOpen, StateClosed, StateConnecting, StateClosed} {
			changed, err := m.Transition(to)
			if err != nil {
				t.Fatalf("Transition(%v) error = %v", to, err)
			}
			if !changed {
				t.Errorf("Transition(%v) changed = false, want true", to)
			}
		}

		if got := m.Status().LastConnectedAt; !got.Equal(fixed) {
			t.Errorf("LastConnectedAt = %v, want %v", got, fixed)
		}
	})

	t.Run("SameStateIsNoop", func(t *testing.T) {
		m := NewStateMachine()
		changed, err := m.Transition(StateClosed)
		if err != nil || changed {
			t.Errorf("Transition(StateClosed) = %v, %v; want false, nil", changed, err)
		}
	})

	t.Run("InvalidTransitions", func(t *testing.T) {
		tests := []struct {
			name string
			path []State
		}{
			{"ClosedToOpen", []State{StateOpen}},
			{"OpenToConnecting", []State{StateConnecting, StateOpen, StateConnecting}},
			{"UnknownTarget", []State{State(42)}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				m := NewStateMachine()
				var err error
				for _, s := range tt.path {
					_, err = m.Transition(s)
				}
				if !errors.Is(err, ErrInvalidTransition) {
					t.Errorf("error = %v, want ErrInvalidTransition", err)
				}
			})
		}
	})
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "CLOSED"},
		{StateConnecting, "CONNECTING"},
		{StateOpen, "OPEN"},
		{State(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
