// Package cache is the bounded query-result cache in front of the
// retrieval engine (C8): fingerprinted LRU+TTL, deliberately not
// single-flighted so two concurrent identical misses may both compute
// (spec §4.8, §9).
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ZacharyN/org-archivist-sub001/internal/retrieval"
	"github.com/ZacharyN/org-archivist-sub001/internal/vectorstore"
)

// DefaultCapacity is the default number of cache entries retained.
const DefaultCapacity = 1000

// DefaultTTL is the default per-entry time-to-live.
const DefaultTTL = time.Hour

// entry is the value stored behind a fingerprint.
type entry struct {
	Query      string
	Candidates []retrieval.Candidate
	InsertedAt time.Time
	Accesses   int64
}

// Metrics are the read-only counters spec §4.8 requires.
type Metrics struct {
	Hits          int64
	Misses        int64
	Evictions     int64
	Invalidations int64
	TotalQueries  int64
}

// Cache is a thread-safe, bounded, TTL-expiring query-result cache.
// All operations are safe for concurrent use; there is no single-flight
// guarantee on misses by design (spec §9 open question, resolved "no").
type Cache struct {
	mu       sync.Mutex
	lru      *lru.Cache[string, entry]
	capacity int
	ttl      time.Duration
	metrics  Metrics
}

// New creates a Cache with the given capacity and TTL. A non-positive
// capacity or ttl falls back to the package defaults.
func New(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c, _ := lru.New[string, entry](capacity)
	return &Cache{lru: c, capacity: capacity, ttl: ttl}
}

// Get returns the cached candidates for (query, topK, recencyWeight,
// filter), if present and unexpired. Expired entries are dropped on
// access and counted as a miss.
func (c *Cache) Get(query string, topK int, recencyWeight float64, filter *vectorstore.Filter) ([]retrieval.Candidate, bool) {
	key := Fingerprint(query, topK, recencyWeight, filter)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.TotalQueries++

	e, ok := c.lru.Get(key)
	if !ok {
		c.metrics.Misses++
		return nil, false
	}
	if time.Since(e.InsertedAt) > c.ttl {
		c.lru.Remove(key)
		c.metrics.Misses++
		return nil, false
	}

	e.Accesses++
	c.lru.Add(key, e)
	c.metrics.Hits++
	return e.Candidates, true
}

// Put stores candidates under the fingerprint for (query, topK,
// recencyWeight, filter). Last writer wins; no single-flight coordination.
func (c *Cache) Put(query string, topK int, recencyWeight float64, filter *vectorstore.Filter, candidates []retrieval.Candidate) {
	key := Fingerprint(query, topK, recencyWeight, filter)

	c.mu.Lock()
	defer c.mu.Unlock()

	_, existed := c.lru.Peek(key)
	if !existed && c.lru.Len() >= c.capacity {
		c.metrics.Evictions++
	}

	c.lru.Add(key, entry{
		Query:      query,
		Candidates: candidates,
		InsertedAt: time.Now(),
	})
}

// InvalidateAll clears the table. Called after every successful document
// insert or delete (spec §4.8).
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	c.metrics.Invalidations++
}

// Metrics returns a snapshot of the cache's read-only counters.
func (c *Cache) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

// Len returns the current number of entries (for tests/diagnostics).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
