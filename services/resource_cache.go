package services

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ResourceCache holds heavyweight handles such as loaded models. Handles
// never expire; a handle stays resident until the LRU needs its slot.
type ResourceCache[V any] struct {
	name  string
	size  int
	lru   *lru.Cache[string, V]
	group singleflight.Group

	hits      atomic.Int64
	misses    atomic.Int64
	loads     atomic.Int64
	evictions atomic.Int64
}

func NewResourceCache[V any](name string, size int) (*ResourceCache[V], error) {
	c := &ResourceCache[V]{name: name, size: size}
	l, err := lru.NewWithEvict[string, V](size, func(key string, _ V) {
		c.evictions.Add(1)
		cacheEvictions.WithLabelValues(name).Inc()
		log.WithFields(log.Fields{"cache": name, "key": key}).Info("resource evicted")
	})
	if err != nil {
		return nil, err
	}
	c.lru = l
	return c, nil
}

func (c *ResourceCache[V]) GetOrLoad(key string, loader func() (V, error)) (V, error) {
	if v, ok := c.lru.Get(key); ok {
		c.hits.Add(1)
		cacheHits.WithLabelValues(c.name).Inc()
		return v, nil
	}
	c.misses.Add(1)
	cacheMisses.WithLabelValues(c.name).Inc()

	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.lru.Peek(key); ok {
			return v, nil
		}
		v, err := loader()
		if err != nil {
			cacheLoadFailures.WithLabelValues(c.name).Inc()
			return nil, err
		}
		c.lru.Add(key, v)
		c.loads.Add(1)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

func (c *ResourceCache[V]) Contains(key string) bool {
	return c.lru.Contains(key)
}

func (c *ResourceCache[V]) Purge() {
	c.lru.Purge()
}

func (c *ResourceCache[V]) Len() int {
	return c.lru.Len()
}

func (c *ResourceCache[V]) Stats() CacheStats {
	return CacheStats{
		Name:      c.name,
		Entries:   c.lru.Len(),
		Capacity:  c.size,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Loads:     c.loads.Load(),
		Evictions: c.evictions.Load(),
	}
}
