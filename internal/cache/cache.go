// Package cache holds short-lived chart series. It is opt-in: with a
// positive TTL, flipping between stocks and periods does not re-query the
// backend.
package cache

import (
	"strconv"
	"sync"
	"time"

	"github.com/bobmcallan/stock-portal/internal/models"
)

// entry wraps a cached series with expiry and insertion order tracking.
type entry struct {
	series    models.ChartSeries
	expiry    time.Time
	insertIdx int64
}

// SeriesCache caches chart series keyed by "symbol:days".
// Thread-safe with sync.RWMutex.
type SeriesCache struct {
	mu         sync.RWMutex
	items      map[string]entry
	ttl        time.Duration
	maxEntries int
	nextIdx    int64
}

// New creates a new SeriesCache with the given TTL and max entry count.
func New(ttl time.Duration, maxEntries int) *SeriesCache {
	return &SeriesCache{
		items:      make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// TTL returns how long entries live. Zero means entries expire immediately.
func (c *SeriesCache) TTL() time.Duration {
	return c.ttl
}

// MakeKey builds a cache key from symbol and period.
func MakeKey(symbol string, days int) string {
	return symbol + ":" + strconv.Itoa(days)
}

// Get returns a cached series if found and not expired.
func (c *SeriesCache) Get(key string) (models.ChartSeries, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return models.ChartSeries{}, false
	}

	if time.Now().After(e.expiry) {
		// Expired: remove lazily
		c.mu.Lock()
		if e2, ok2 := c.items[key]; ok2 && time.Now().After(e2.expiry) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return models.ChartSeries{}, false
	}

	return e.series, true
}

// Set stores a series in the cache. Evicts the oldest entry if at capacity.
func (c *SeriesCache) Set(key string, series models.ChartSeries) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry{
		series:    series,
		expiry:    time.Now().Add(c.ttl),
		insertIdx: c.nextIdx,
	}
	c.nextIdx++

	if _, exists := c.items[key]; exists {
		c.items[key] = e
		return
	}

	if c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		c.evictOldest()
	}

	c.items[key] = e
}

// Clear drops every entry. Called after a backend data update.
func (c *SeriesCache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]entry)
	c.mu.Unlock()
}

// Len returns the number of entries, including expired ones not yet removed.
func (c *SeriesCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// evictOldest removes the entry with the lowest insertIdx. Must be called with mu held.
func (c *SeriesCache) evictOldest() {
	var oldestKey string
	var oldestIdx int64 = -1

	for key, e := range c.items {
		if oldestIdx == -1 || e.insertIdx < oldestIdx {
			oldestIdx = e.insertIdx
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
