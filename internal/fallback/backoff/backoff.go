// Package backoff implements the retry policy applied to one source
// attempt: exponential delays with jitter, capped at a maximum. If the
// final attempt still fails the error propagates to the orchestrator,
// which treats the source as exhausted.
package backoff

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Defaults for one source attempt.
const (
	DefaultInitialDelay = 1 * time.Second
	DefaultMultiplier   = 2.0
	DefaultMaxDelay     = 60 * time.Second
	DefaultMaxRetries   = 3
)

// Policy calculates retry delays and runs retry loops. Jitter scales
// each delay by a uniform factor in [0.5, 1.0].
type Policy struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	MaxRetries   int
	Jitter       bool

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewPolicy returns a policy with the default parameters and a
// time-seeded RNG.
func NewPolicy() *Policy {
	return &Policy{
		InitialDelay: DefaultInitialDelay,
		Multiplier:   DefaultMultiplier,
		MaxDelay:     DefaultMaxDelay,
		MaxRetries:   DefaultMaxRetries,
		Jitter:       true,
		rng:          rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
}

// Delay returns the backoff delay before retrying after the given
// zero-based attempt.
func (p *Policy) Delay(attempt int) time.Duration {
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter {
		p.mu.Lock()
		factor := 0.5 + 0.5*p.rng.Float64()
		p.mu.Unlock()
		d *= factor
	}
	return time.Duration(d)
}

// Do runs fn up to MaxRetries times, sleeping between attempts. The
// context is honored during sleeps; cancellation returns ctx.Err().
func (p *Policy) Do(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	var lastErr error

	for attempt := 0; attempt < p.MaxRetries; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == p.MaxRetries-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.Delay(attempt)):
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", p.MaxRetries, lastErr)
}
