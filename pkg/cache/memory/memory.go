// Package memory is a process-local, mutex-guarded response cache with a TTL
// and an oldest-first capacity bound.
package memory

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cvforge/cvforge/pkg/models"
)

type entry struct {
	models.CacheEntry
	seq uint64
}

// Cache is an in-memory implementation of cache.Cache.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]entry
	seq      uint64
	ttl      time.Duration
	capacity int
	now      func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a Cache. A capacity of zero or less means unbounded.
func New(ttl time.Duration, capacity int, opts ...Option) *Cache {
	c := &Cache{
		entries:  make(map[string]entry),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the entry for key. An expired entry is deleted and reported
// as a miss.
func (c *Cache) Get(key string) (models.CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return models.CacheEntry{}, false
	}
	if c.expired(e) {
		delete(c.entries, key)
		c.misses.Add(1)
		return models.CacheEntry{}, false
	}
	c.hits.Add(1)
	return e.CacheEntry, true
}

// Put stores response under key, replacing any previous entry, then evicts
// the oldest entries while the cache is over capacity.
func (c *Cache) Put(key, response, model string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.entries[key] = entry{
		CacheEntry: models.CacheEntry{
			Key:       key,
			Model:     model,
			Response:  response,
			CreatedAt: c.now(),
		},
		seq: c.seq,
	}
	c.evict()
	return nil
}

func (c *Cache) evict() {
	excess := len(c.entries) - c.capacity
	if c.capacity <= 0 || excess <= 0 {
		return
	}
	all := make([]entry, 0, len(c.entries))
	for _, e := range c.entries {
		all = append(all, e)
	}
	slices.SortFunc(all, func(a, b entry) int {
		if d := a.CreatedAt.Compare(b.CreatedAt); d != 0 {
			return d
		}
		return cmp.Compare(a.seq, b.seq)
	})
	for _, e := range all[:excess] {
		delete(c.entries, e.Key)
	}
}

func (c *Cache) expired(e entry) bool {
	return c.now().Sub(e.CreatedAt) >= c.ttl
}

// Len returns the number of stored entries, including expired ones not yet
// removed.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cache performance counters.
func (c *Cache) Stats() (models.CacheStats, error) {
	return models.CacheStats{
		Entries: int64(c.Len()),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}, nil
}

// Clear removes entries. If expiredOnly is true, only expired entries are
// removed.
func (c *Cache) Clear(expiredOnly bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !expiredOnly {
		clear(c.entries)
		return nil
	}
	for k, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, k)
		}
	}
	return nil
}

// Close is a no-op.
func (c *Cache) Close() error { return nil }
