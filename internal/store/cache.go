package store

import (
	"container/list"
	"sync"
	"time"
)

// Cache is a small TTL-bound LRU for reference data (team and player directories).
type Cache[V any] struct {
	mu    sync.Mutex
	cap   int
	ttl   time.Duration
	now   func() time.Time
	ll    *list.List               // most-recent at front
	items map[string]*list.Element // key -> element
}

type entry[V any] struct {
	key string
	val V
	exp time.Time
}

func NewCache[V any](maxKeys int, ttl time.Duration) *Cache[V] {
	if maxKeys <= 0 {
		maxKeys = 64
	}
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &Cache[V]{cap: maxKeys, ttl: ttl, now: time.Now, ll: list.New(), items: make(map[string]*list.Element, maxKeys)}
}

// Get returns the live value for key.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		en := el.Value.(entry[V])
		if c.now().Before(en.exp) {
			// touch LRU
			c.ll.MoveToFront(el)
			return en.val, true
		}
		// expired
		c.ll.Remove(el)
		delete(c.items, key)
	}
	var zero V
	return zero, false
}

// Set stores val under key and refreshes its expiry.
func (c *Cache[V]) Set(key string, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp := c.now().Add(c.ttl)
	if el, ok := c.items[key]; ok {
		el.Value = entry[V]{key: key, val: val, exp: exp}
		c.ll.MoveToFront(el)
		return
	}
	el := c.ll.PushFront(entry[V]{key: key, val: val, exp: exp})
	c.items[key] = el
	for c.ll.Len() > c.cap {
		t := c.ll.Back()
		if t == nil {
			break
		}
		c.ll.Remove(t)
		delete(c.items, t.Value.(entry[V]).key)
	}
	// soft cleanup of expired at tail
	for {
		t := c.ll.Back()
		if t == nil || c.now().Before(t.Value.(entry[V]).exp) {
			break
		}
		c.ll.Remove(t)
		delete(c.items, t.Value.(entry[V]).key)
	}
}

// GetOrLoad returns the cached value or calls load and caches a successful result.
// Concurrent misses may both call load; the last one wins.
func (c *Cache[V]) GetOrLoad(key string, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
