package identity

import (
	"sync"
	"time"
)

// Cache is a process-wide read-through cache of resolved actors. Entries are
// evicted by max age; a ban invalidates the entry immediately so the resolver
// never serves a stale non-banned actor for longer than the max age.
type Cache struct {
	mu     sync.RWMutex
	maxAge time.Duration
	items  map[string]cacheItem
}

type cacheItem struct {
	actor    Actor
	cachedAt time.Time
}

// NewCache creates an actor cache with the given max entry age.
func NewCache(maxAge time.Duration) *Cache {
	return &Cache{
		maxAge: maxAge,
		items:  make(map[string]cacheItem),
	}
}

// Get returns the cached actor if present and within max age.
func (c *Cache) Get(ref Ref) (Actor, bool) {
	c.mu.RLock()
	item, ok := c.items[ref.Key()]
	c.mu.RUnlock()

	if !ok || time.Since(item.cachedAt) > c.maxAge {
		return Actor{}, false
	}
	return item.actor, true
}

// Put stores a resolved actor. Expired entries are pruned opportunistically
// so the map does not grow without bound between restarts.
func (c *Cache) Put(actor Actor) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) > 0 && len(c.items)%1024 == 0 {
		now := time.Now()
		for key, item := range c.items {
			if now.Sub(item.cachedAt) > c.maxAge {
				delete(c.items, key)
			}
		}
	}

	c.items[actor.Key()] = cacheItem{actor: actor, cachedAt: time.Now()}
}

// Invalidate drops the entry for a ref, forcing the next resolve to hit the
// store. Called when an actor is banned.
func (c *Cache) Invalidate(ref Ref) {
	c.mu.Lock()
	delete(c.items, ref.Key())
	c.mu.Unlock()
}
