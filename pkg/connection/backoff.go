package connection

import (
	"math/rand"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// DefaultJitter is the maximum random delay added to every backoff value.
const DefaultJitter = 5 * time.Second

// FibonacciSequence is the reconnect delay sequence used while the network is
// believed to be reachable.
var FibonacciSequence = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	3 * time.Second,
	5 * time.Second,
	8 * time.Second,
	13 * time.Second,
	21 * time.Second,
	34 * time.Second,
	55 * time.Second,
}

// ExtendedFibonacciSequence continues FibonacciSequence with much longer
// delays. It is used while the device is believed to be offline.
var ExtendedFibonacciSequence = append(append([]time.Duration{}, FibonacciSequence...),
	89*time.Second,
	144*time.Second,
	233*time.Second,
	377*time.Second,
	610*time.Second,
	987*time.Second,
	1597*time.Second,
	2584*time.Second,
	4181*time.Second,
	6765*time.Second,
	10946*time.Second,
)

// Backoff walks a fixed delay sequence with a cursor and adds jitter.
// Once the cursor reaches the end of the sequence the last value repeats.
type Backoff struct {
	mu sync.Mutex

	sequence []time.Duration
	cursor   int
	jitter   time.Duration

	// Attempt counter since the last reset
	attempts int

	// Random source for jitter
	rng *rand.Rand
}

// BackoffConfig allows customizing backoff parameters.
type BackoffConfig struct {
	// Sequence is the base delay sequence. Defaults to FibonacciSequence.
	Sequence []time.Duration

	// Jitter is the maximum random amount added to each delay. Zero and
	// negative values disable jitter.
	Jitter time.Duration
}

// NewBackoff creates a backoff over FibonacciSequence with DefaultJitter.
func NewBackoff() *Backoff {
	return NewBackoffWithConfig(BackoffConfig{Jitter: DefaultJitter})
}

// NewBackoffWithConfig creates a backoff calculator with custom settings.
func NewBackoffWithConfig(cfg BackoffConfig) *Backoff {
	if len(cfg.Sequence) == 0 {
		cfg.Sequence = FibonacciSequence
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}

	return &Backoff{
		sequence: cloneSequence(cfg.Sequence),
		jitter:   cfg.Jitter,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the delay at the cursor (with jitter) and advances the cursor.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := b.addJitter(b.sequence[b.cursor])

	b.attempts++
	if b.cursor < len(b.sequence)-1 {
		b.cursor++
	}

	return delay
}

// Peek returns the delay at the cursor (with jitter) without advancing.
func (b *Backoff) Peek() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addJitter(b.sequence[b.cursor])
}

// Reset rewinds the cursor to the start of the current sequence.
// Call this after a successful connection.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursor = 0
	b.attempts = 0
}

// ResetTo rewinds the cursor and switches to a different sequence.
// An empty sequence keeps the current one.
func (b *Backoff) ResetTo(sequence []time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(sequence) > 0 {
		b.sequence = cloneSequence(sequence)
	}
	b.cursor = 0
	b.attempts = 0
}

// Attempts returns the number of delays handed out since the last reset.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// Current returns the base delay at the cursor (without jitter).
func (b *Backoff) Current() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sequence[b.cursor]
}

// NextBackOff makes Backoff usable with backoff.Retry.
func (b *Backoff) NextBackOff() time.Duration {
	return b.Next()
}

// addJitter adds random jitter to a delay.
func (b *Backoff) addJitter(d time.Duration) time.Duration {
	if b.jitter <= 0 {
		return d
	}
	return d + time.Duration(b.rng.Int63n(int64(b.jitter)+1))
}

func cloneSequence(seq []time.Duration) []time.Duration {
	out := make([]time.Duration, len(seq))
	copy(out, seq)
	return out
}

// Compile-time interface satisfaction check.
var _ backoff.BackOff = (*Backoff)(nil)
