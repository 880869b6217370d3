// Package sqlite is a response cache backed by SQLite, usable when several
// processes should share cached responses.
package sqlite

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cvforge/cvforge/pkg/models"
)

// Cache is a cache.Cache backed by SQLite.
type Cache struct {
	db       *sql.DB
	ttl      time.Duration
	capacity int
	now      func() time.Time
	hits     atomic.Int64
	misses   atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS response_cache (
	cache_key TEXT PRIMARY KEY,
	model TEXT NOT NULL,
	response TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_response_cache_created ON response_cache(created_at);
`

// New opens (or creates) the cache table in dbPath. A capacity of zero or
// less means unbounded.
func New(dbPath string, ttl time.Duration, capacity int, opts ...Option) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	c := &Cache{db: db, ttl: ttl, capacity: capacity, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Get retrieves a cached response. Expired rows are deleted and reported as
// a miss.
func (c *Cache) Get(key string) (models.CacheEntry, bool) {
	var e models.CacheEntry
	var createdAt int64

	err := c.db.QueryRow(
		`SELECT model, response, created_at FROM response_cache WHERE cache_key = ?`, key,
	).Scan(&e.Model, &e.Response, &createdAt)
	if err != nil {
		c.misses.Add(1)
		return models.CacheEntry{}, false
	}

	e.Key = key
	e.CreatedAt = time.Unix(0, createdAt)
	if c.now().Sub(e.CreatedAt) >= c.ttl {
		_, _ = c.db.Exec(`DELETE FROM response_cache WHERE cache_key = ?`, key)
		c.misses.Add(1)
		return models.CacheEntry{}, false
	}

	c.hits.Add(1)
	return e, true
}

// Put stores a response, replacing any previous row for key, then trims the
// oldest rows beyond capacity.
func (c *Cache) Put(key, response, model string) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO response_cache (cache_key, model, response, created_at) VALUES (?, ?, ?, ?)`,
		key, model, response, c.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	if c.capacity <= 0 {
		return nil
	}
	_, err = c.db.Exec(
		`DELETE FROM response_cache WHERE rowid IN (
			SELECT rowid FROM response_cache ORDER BY created_at, rowid
			LIMIT max(0, (SELECT COUNT(*) FROM response_cache) - ?)
		)`, c.capacity,
	)
	if err != nil {
		return fmt.Errorf("cache evict: %w", err)
	}
	return nil
}

// Len returns the number of stored rows, or 0 if the count fails.
func (c *Cache) Len() int {
	var n int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM response_cache`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Stats returns cache performance metrics.
func (c *Cache) Stats() (models.CacheStats, error) {
	var count int64
	err := c.db.QueryRow(`SELECT COUNT(*) FROM response_cache`).Scan(&count)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return models.CacheStats{
		Entries: count,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}, nil
}

// Clear removes cache entries. If expiredOnly is true, only expired entries are removed.
func (c *Cache) Clear(expiredOnly bool) error {
	var err error
	if expiredOnly {
		cutoff := c.now().Add(-c.ttl).UnixNano()
		_, err = c.db.Exec(`DELETE FROM response_cache WHERE created_at <= ?`, cutoff)
	} else {
		_, err = c.db.Exec(`DELETE FROM response_cache`)
	}
	if err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}
