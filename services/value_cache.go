package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Clock returns the current time. Tests inject a fake one.
type Clock func() time.Time

// CacheStats is a point-in-time snapshot of a cache's counters.
type CacheStats struct {
	Name      string `json:"name"`
	Entries   int    `json:"entries"`
	Capacity  int    `json:"capacity"`
	Hits      int64  `json:"hits"`
	Misses    int64  `json:"misses"`
	Loads     int64  `json:"loads"`
	Evictions int64  `json:"evictions"`
}

type valueEntry struct {
	value    any
	loadedAt time.Time
}

// ValueCache memoizes loaded datasets by logical name. Entries older than
// the TTL count as absent and are reloaded; when a load would push the
// cache past maxEntries, the least recently loaded entry is evicted.
// Concurrent loads of one key share a single loader call.
//
// Lookups use Peek so a hit never refreshes an entry's position: the LRU
// order is load order.
type ValueCache struct {
	name       string
	ttl        time.Duration
	maxEntries int
	now        Clock

	mu       sync.Mutex
	lru      *simplelru.LRU[string, valueEntry]
	dropping bool // set while entries are removed on purpose
	stats    CacheStats

	group singleflight.Group
}

type ValueCacheOption func(*ValueCache)

func WithClock(clock Clock) ValueCacheOption {
	return func(c *ValueCache) { c.now = clock }
}

func NewValueCache(name string, ttl time.Duration, maxEntries int, opts ...ValueCacheOption) *ValueCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	c := &ValueCache{
		name:       name,
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
	// size is positive, so NewLRU cannot fail
	c.lru, _ = simplelru.NewLRU[string, valueEntry](maxEntries, c.onEvict)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// onEvict runs with c.mu held.
func (c *ValueCache) onEvict(key string, _ valueEntry) {
	if c.dropping {
		return
	}
	c.stats.Evictions++
	cacheEvictions.WithLabelValues(c.name).Inc()
	log.WithFields(log.Fields{"cache": c.name, "key": key}).Debug("cache entry evicted")
}

// GetOrLoad returns the live entry for key, or runs loader and stores its
// result. Loader errors are returned and never cached.
func (c *ValueCache) GetOrLoad(key string, loader func() (any, error)) (any, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// a flight that finished just before this one already stored it
		if v, ok := c.peek(key); ok {
			return v, nil
		}
		v, err := loader()
		if err != nil {
			cacheLoadFailures.WithLabelValues(c.name).Inc()
			return nil, err
		}
		c.store(key, v)
		return v, nil
	})
	return v, err
}

// LoadValue is the typed form of GetOrLoad.
func LoadValue[T any](c *ValueCache, key string, loader func() (T, error)) (T, error) {
	var zero T
	v, err := c.GetOrLoad(key, func() (any, error) {
		t, err := loader()
		if err != nil {
			return nil, err
		}
		return t, nil
	})
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache %s: entry %q holds %T, want %T", c.name, key, v, zero)
	}
	return t, nil
}

func (c *ValueCache) expired(e valueEntry) bool {
	return c.now().Sub(e.loadedAt) > c.ttl
}

func (c *ValueCache) lookup(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.lru.Peek(key); ok {
		if !c.expired(e) {
			c.stats.Hits++
			cacheHits.WithLabelValues(c.name).Inc()
			return e.value, true
		}
		c.removeLocked(key)
	}
	c.stats.Misses++
	cacheMisses.WithLabelValues(c.name).Inc()
	return nil, false
}

func (c *ValueCache) peek(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lru.Peek(key)
	if !ok || c.expired(e) {
		return nil, false
	}
	return e.value, true
}

func (c *ValueCache) store(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// a reload counts as a fresh load, so it goes to the back of the queue
	c.removeLocked(key)
	c.lru.Add(key, valueEntry{value: value, loadedAt: c.now()})
	c.stats.Loads++
}

func (c *ValueCache) removeLocked(key string) {
	c.dropping = true
	c.lru.Remove(key)
	c.dropping = false
}

// Contains reports whether key has a live entry, without touching stats.
func (c *ValueCache) Contains(key string) bool {
	_, ok := c.peek(key)
	return ok
}

func (c *ValueCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

func (c *ValueCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropping = true
	c.lru.Purge()
	c.dropping = false
}

func (c *ValueCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Keys lists resident keys from oldest to newest load.
func (c *ValueCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Keys()
}

func (c *ValueCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Name = c.name
	s.Entries = c.lru.Len()
	s.Capacity = c.maxEntries
	return s
}
