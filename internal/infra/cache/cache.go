// Package cache implements the tiered (memory + disk) cache for fetched
// payloads. Each entry is keyed by (source, canonicalized params) and
// persisted as one JSON file per key in a directory owned exclusively by
// this process. Malformed disk records are logged, removed, and treated
// as misses.
package cache

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vietddude/fetcher/internal/core/domain"
	"github.com/vietddude/fetcher/internal/fallback/metrics"
)

// DefaultTTL is applied when Store is called without an explicit TTL.
const DefaultTTL = time.Hour

// TieredCache stores CacheEntry values in memory with a disk tier
// underneath. Memory access is guarded by a single mutex; critical
// sections are single-key reads and writes.
type TieredCache struct {
	dir        string
	defaultTTL time.Duration
	log        *slog.Logger

	mu      sync.RWMutex
	entries map[string]*domain.CacheEntry
}

// New creates a tiered cache rooted at dir, creating it if needed.
func New(dir string, defaultTTL time.Duration, log *slog.Logger) (*TieredCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &TieredCache{
		dir:        dir,
		defaultTTL: defaultTTL,
		log:        log,
		entries:    make(map[string]*domain.CacheEntry),
	}, nil
}

// Get returns the fresh entry for (source, params), or nil. A memory hit
// within TTL is returned directly; otherwise the disk tier is consulted
// and a fresh disk hit is promoted into memory.
func (c *TieredCache) Get(source string, params map[string]any) *domain.CacheEntry {
	key := Key(source, params)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && !entry.IsExpired() {
		metrics.CacheHitsTotal.WithLabelValues("memory").Inc()
		return entry
	}

	entry = c.readDisk(source, params, true)
	if entry == nil || entry.IsExpired() {
		return nil
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	metrics.CacheHitsTotal.WithLabelValues("disk").Inc()
	return entry
}

// GetStale returns the entry for (source, params) ignoring expiry, or
// nil when nothing was ever stored. Disk records that omit a confidence
// score are returned with confidence 0.5.
func (c *TieredCache) GetStale(source string, params map[string]any) *domain.CacheEntry {
	key := Key(source, params)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return entry
	}

	return c.readDisk(source, params, false)
}

// Store writes an entry to both tiers. A non-positive ttl selects the
// cache default. The disk write is last-write-wins per key.
func (c *TieredCache) Store(source string, params map[string]any, data any, ttl time.Duration, confidence float64) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	entry := &domain.CacheEntry{
		Data:       data,
		Timestamp:  time.Now(),
		Source:     source,
		TTL:        ttl,
		Confidence: confidence,
	}

	key := Key(source, params)
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	raw, err := encodeRecord(entry)
	if err != nil {
		return fmt.Errorf("encoding cache record: %w", err)
	}
	path := filepath.Join(c.dir, fileName(source, params))
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	return nil
}

// CleanupExpired sweeps expired entries from both tiers and corrupt
// records from disk, returning the number of removals.
func (c *TieredCache) CleanupExpired() int {
	removed := 0

	c.mu.Lock()
	for key, entry := range c.entries {
		if entry.IsExpired() {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	files, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		return removed
	}
	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		entry, err := decodeRecord(raw, false)
		if err != nil {
			c.log.Warn("Removing corrupt cache file", "file", path, "error", err)
		} else if !entry.IsExpired() {
			continue
		}
		if os.Remove(path) == nil {
			removed++
		}
	}
	return removed
}

// readDisk loads the record for (source, params) from the disk tier.
// Corrupt records are logged, deleted, and reported as a miss.
func (c *TieredCache) readDisk(source string, params map[string]any, strict bool) *domain.CacheEntry {
	path := filepath.Join(c.dir, fileName(source, params))
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn("Failed to read cache file", "file", path, "error", err)
		}
		return nil
	}

	entry, err := decodeRecord(raw, strict)
	if err != nil {
		c.log.Warn("Removing corrupt cache file", "file", path, "error", err)
		if rmErr := os.Remove(path); rmErr != nil {
			c.log.Warn("Failed to remove corrupt cache file", "file", path, "error", rmErr)
		}
		return nil
	}
	return entry
}
