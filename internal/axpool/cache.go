package axpool

import (
	"container/list"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// boundedCache wraps go-cache's TTL expiry with a hard capacity bound:
// go-cache alone only expires entries lazily/on a janitor tick and has no
// notion of a maximum entry count, but spec.md §4.2 requires the AX pool's
// cache to be both TTL-bound (~3s) AND size-bound (<=2048, oldest evicted
// first). The recency list here is the size-bound half of that contract.
type boundedCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  *gocache.Cache
	order    *list.List
	elems    map[string]*list.Element
}

func newBoundedCache(capacity int, ttl time.Duration) *boundedCache {
	return &boundedCache{
		ttl:      ttl,
		capacity: capacity,
		entries:  gocache.New(ttl, ttl*2),
		order:    list.New(),
		elems:    make(map[string]*list.Element),
	}
}

func (c *boundedCache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries.Get(key)
	if !ok {
		if el, tracked := c.elems[key]; tracked {
			c.order.Remove(el)
			delete(c.elems, key)
		}
		return nil, false
	}
	if el, tracked := c.elems[key]; tracked {
		c.order.MoveToFront(el)
	}
	return v, true
}

func (c *boundedCache) set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.SetDefault(key, value)
	if el, tracked := c.elems[key]; tracked {
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(key)
	c.elems[key] = el
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		oldestKey := oldest.Value.(string)
		c.order.Remove(oldest)
		delete(c.elems, oldestKey)
		c.entries.Delete(oldestKey)
	}
}

func (c *boundedCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *boundedCache) delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Delete(key)
	if el, tracked := c.elems[key]; tracked {
		c.order.Remove(el)
		delete(c.elems, key)
	}
}
