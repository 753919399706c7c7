// Package cache provides a size-bounded LRU of weakly-referenced
// payloads. The cache speeds lookups up but never keeps a payload alive:
// entries hold Weak observers, a hit is a successful upgrade and entries
// whose payload is gone fall out on access or eviction. It suits indexes
// over objects whose lifetime is decided elsewhere.
package cache

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/atomic"

	"github.com/nspcc-dev/refs/pkg/rc"
)

// Cache maps keys to weak observers of payloads, evicting the least
// recently used entry beyond the size limit. Safe for concurrent use.
type Cache[K comparable, V any] struct {
	// Lock for compound lookup-then-modify sequences; inner releases of
	// evicted observers run under it.
	lock   sync.Mutex
	cache  *lru.Cache
	hits   *atomic.Int64
	misses *atomic.Int64
}

// Stats is a point-in-time hit/miss accounting of a Cache.
type Stats struct {
	Hits   int64
	Misses int64
}

// New creates a cache keeping at most size entries.
func New[K comparable, V any](size int) (*Cache[K, V], error) {
	inner, err := lru.NewWithEvict(size, func(_, v any) {
		v.(*rc.Weak[V]).Release()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU: %w", err)
	}
	return &Cache[K, V]{
		cache:  inner,
		hits:   atomic.NewInt64(0),
		misses: atomic.NewInt64(0),
	}, nil
}

// Put indexes the payload of s under key. The cache takes a weak observer
// of its own, so the payload's lifetime stays with the owners. An empty
// handle is not stored; an entry already present under key is dropped
// first.
func (c *Cache[K, V]) Put(key K, s *rc.Shared[V]) {
	if s == nil || !s.Valid() {
		return
	}
	w := s.Weak()
	c.lock.Lock()
	defer c.lock.Unlock()
	// Same-key adds replace the value without the eviction callback, so
	// the old observer has to be let go of explicitly.
	c.cache.Remove(key)
	c.cache.Add(key, w)
}

// Get returns an owning handle to the payload under key. A present entry
// whose payload is already gone counts as a miss and is dropped.
func (c *Cache[K, V]) Get(key K) (*rc.Shared[V], bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	v, ok := c.cache.Get(key)
	if !ok {
		c.misses.Inc()
		return &rc.Shared[V]{}, false
	}
	s, ok := v.(*rc.Weak[V]).Lock()
	if !ok {
		c.cache.Remove(key)
		c.misses.Inc()
		return &rc.Shared[V]{}, false
	}
	c.hits.Inc()
	return s, true
}

// Remove drops the entry under key, if any.
func (c *Cache[K, V]) Remove(key K) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.cache.Remove(key)
}

// Len returns the number of entries, expired ones included until their
// next access.
func (c *Cache[K, V]) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.cache.Len()
}

// Purge drops every entry.
func (c *Cache[K, V]) Purge() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.cache.Purge()
}

// Stats returns hit/miss counts accumulated so far.
func (c *Cache[K, V]) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}
