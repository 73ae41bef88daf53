package entitystore

import (
	"sync"
	"time"
)

// cacheEntry is one cached collection together with the time it was
// stored. An entry is live while now - storedAt <= ttl.
type cacheEntry struct {
	data     Collection
	storedAt time.Time
}

// ttlCache is the store's single cache abstraction. All expiry logic
// lives here: get applies TTL eviction itself, so read sites never
// duplicate the staleness check.
type ttlCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

func newTTLCache(ttl time.Duration, now func() time.Time) *ttlCache {
	return &ttlCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     now,
	}
}

// get returns the live entry for key, or ok=false on a miss. An expired
// entry counts as a miss and is evicted on the spot.
func (c *ttlCache) get(key string) (Collection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.data, true
}

// put stores or replaces the entry for key, stamped at the current time.
func (c *ttlCache) put(key string, data Collection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{data: data, storedAt: c.now()}
}

// evict drops the entry for key if present.
func (c *ttlCache) evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// flush drops every entry.
func (c *ttlCache) flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// size returns the number of entries currently held, including any that
// have expired but not yet been read.
func (c *ttlCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// snapshot returns a copy of the current entries for observation.
func (c *ttlCache) snapshot() map[string]cacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]cacheEntry, len(c.entries))
	for k, e := range c.entries {
		out[k] = e
	}
	return out
}
