package domain

import "time"

// Freshness describes how a response payload was obtained.
type Freshness string

const (
	FreshnessFresh  Freshness = "fresh"  // fetched from the upstream source just now
	FreshnessCached Freshness = "cached" // served from cache within TTL
	FreshnessStale  Freshness = "stale"  // served from cache past TTL as a last resort
)

// CacheEntry holds a fetched payload together with its trust metadata.
type CacheEntry struct {
	Data       any
	Timestamp  time.Time
	Source     string
	TTL        time.Duration
	Confidence float64
}

// Age returns how long ago the entry was created.
func (e *CacheEntry) Age() time.Duration {
	return time.Since(e.Timestamp)
}

// IsExpired reports whether the entry has outlived its TTL.
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.Timestamp.Add(e.TTL))
}

// IsStale reports whether the entry is older than the given threshold,
// independent of its TTL.
func (e *CacheEntry) IsStale(threshold time.Duration) bool {
	return e.Age() > threshold
}

// ResponseMeta carries the provenance of a FallbackResponse.
type ResponseMeta struct {
	Source     string    `json:"source"`
	Cached     bool      `json:"cached"`
	Stale      bool      `json:"stale"`
	Confidence float64   `json:"confidence_score"`
	Timestamp  time.Time `json:"timestamp"`
	Freshness  Freshness `json:"freshness"`
	RequestID  string    `json:"request_id,omitempty"`
}

// FallbackResponse is the result of a fetch through the fallback chain.
// Callers always receive one of these or an ExhaustedError, never a raw
// per-source failure.
type FallbackResponse struct {
	Data any          `json:"data"`
	Meta ResponseMeta `json:"metadata"`
}
