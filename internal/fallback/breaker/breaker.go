// Package breaker implements a simplified two-state circuit breaker:
// a source is either callable or skipped. There is no half-open probe;
// once the cooldown elapses calls flow again, but the failure count is
// kept, so a single further failure re-opens the circuit immediately.
// Only an explicit success resets the count.
package breaker

import (
	"sync"
	"time"
)

// Defaults match the orchestrator's expectations: three consecutive
// failures open the circuit for a five minute cooldown.
const (
	DefaultFailureThreshold = 3
	DefaultCooldown         = 5 * time.Minute
)

type sourceState struct {
	failureCount int
	lastFailure  time.Time
}

// CircuitBreaker tracks per-source failure state. State is in-memory
// only and guarded by a single mutex; it is never persisted.
type CircuitBreaker struct {
	threshold int
	cooldown  time.Duration

	mu     sync.Mutex
	states map[string]*sourceState
}

// New creates a breaker. Non-positive arguments select the defaults.
func New(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &CircuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		states:    make(map[string]*sourceState),
	}
}

// IsOpen reports whether calls to the source should be skipped: the
// failure count reached the threshold and the last failure is still
// within the cooldown window. An elapsed cooldown closes the gate
// without touching the count.
func (b *CircuitBreaker) IsOpen(source string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.states[source]
	if !ok || s.failureCount < b.threshold {
		return false
	}
	return time.Since(s.lastFailure) <= b.cooldown
}

// RecordFailure increments the source's failure count and stamps the
// failure time.
func (b *CircuitBreaker) RecordFailure(source string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.states[source]
	if !ok {
		s = &sourceState{}
		b.states[source] = s
	}
	s.failureCount++
	s.lastFailure = time.Now()
}

// Reset clears the source's failure history. Called on success only.
func (b *CircuitBreaker) Reset(source string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.states, source)
}

// FailureCount returns the current failure count for a source.
func (b *CircuitBreaker) FailureCount(source string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.states[source]; ok {
		return s.failureCount
	}
	return 0
}
