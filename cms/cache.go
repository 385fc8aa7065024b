package cms

import (
	"sync"
	"time"
)

// DefaultTTL is how long cached responses stay fresh unless configured.
const DefaultTTL = 5 * time.Minute

// DefaultMaxEntries bounds a MemoryCache unless configured.
const DefaultMaxEntries = 1024

// Entry is a cached CDN response body and the Total header that came with it.
// Fetched is when the CDN produced it; caches stamp a zero Fetched with the
// time of Set and keep a non-zero one, so copying an entry between layers
// does not extend its life.
type Entry struct {
	Body    []byte
	Total   int
	Fetched time.Time
}

// Cache stores CDN responses keyed by request path and query. Implementations
// must be safe for concurrent use.
type Cache interface {
	Get(key string) (Entry, bool)
	Set(key string, e Entry)
	Invalidate()
}

// MemoryCache is an in-memory Cache with a fixed TTL per entry and a bound
// on the number of entries.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration
	max     int
	now     func() time.Time
}

// NewMemoryCache creates a MemoryCache whose entries expire after ttl and
// which holds at most DefaultMaxEntries entries.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]Entry),
		ttl:     ttl,
		max:     DefaultMaxEntries,
		now:     time.Now,
	}
}

// SetMaxEntries changes the entry bound; n < 1 means DefaultMaxEntries.
func (c *MemoryCache) SetMaxEntries(n int) {
	if n < 1 {
		n = DefaultMaxEntries
	}
	c.mu.Lock()
	c.max = n
	c.mu.Unlock()
}

func (c *MemoryCache) fresh(e Entry, now time.Time) bool {
	return now.Sub(e.Fetched) < c.ttl
}

// Get returns the entry for key if it is present and fresh. A stale entry
// is removed.
func (c *MemoryCache) Get(key string) (Entry, bool) {
	now := c.now()
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}
	if c.fresh(e, now) {
		return e, true
	}
	c.mu.Lock()
	if cur, ok := c.entries[key]; ok && !c.fresh(cur, now) {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	return Entry{}, false
}

// Set stores e under key, replacing any previous entry. When the cache is
// full, stale entries are dropped first, then the oldest ones.
func (c *MemoryCache) Set(key string, e Entry) {
	now := c.now()
	if e.Fetched.IsZero() {
		e.Fetched = now
	}
	if !c.fresh(e, now) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.max {
		c.prune(now)
		for len(c.entries) >= c.max {
			c.evictOldest()
		}
	}
	c.entries[key] = e
}

// Prune removes stale entries and returns how many were removed.
func (c *MemoryCache) Prune() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prune(now)
}

func (c *MemoryCache) prune(now time.Time) int {
	n := 0
	for k, e := range c.entries {
		if !c.fresh(e, now) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *MemoryCache) evictOldest() {
	var (
		oldest string
		at     time.Time
		found  bool
	)
	for k, e := range c.entries {
		if !found || e.Fetched.Before(at) {
			oldest, at, found = k, e.Fetched, true
		}
	}
	if found {
		delete(c.entries, oldest)
	}
}

// Invalidate clears the cache so the next read goes to the CDN.
func (c *MemoryCache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]Entry)
	c.mu.Unlock()
}

// Len reports the number of stored entries, fresh or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Layered chains caches from fastest to slowest. A hit in a later layer is
// copied into the earlier ones with its original fetch time.
func Layered(layers ...Cache) Cache {
	return layeredCache(layers)
}

type layeredCache []Cache

func (l layeredCache) Get(key string) (Entry, bool) {
	for i, c := range l {
		e, ok := c.Get(key)
		if !ok {
			continue
		}
		for _, earlier := range l[:i] {
			earlier.Set(key, e)
		}
		return e, true
	}
	return Entry{}, false
}

func (l layeredCache) Set(key string, e Entry) {
	for _, c := range l {
		c.Set(key, e)
	}
}

func (l layeredCache) Invalidate() {
	for _, c := range l {
		c.Invalidate()
	}
}
