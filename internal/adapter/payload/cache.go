package payload

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
)

// adapted is one cached adaptation output.
type adapted struct {
	candidate map[string]any
	offers    []map[string]any
	config    map[string]any
}

// fingerprintCache is a bounded LRU keyed by request fingerprint. It is
// non-authoritative: correctness never depends on a hit. Safe for
// concurrent use.
type fingerprintCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List
}

type cacheEntry struct {
	key   string
	value adapted
}

func newFingerprintCache(capacity int) *fingerprintCache {
	if capacity <= 0 {
		return nil
	}
	return &fingerprintCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

func (c *fingerprintCache) get(key string) (adapted, bool) {
	if c == nil {
		return adapted{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return adapted{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).value, true
}

func (c *fingerprintCache) put(key string, value adapted) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).value = value
		c.order.MoveToFront(el)
		return
	}
	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, value: value})
}

func (c *fingerprintCache) len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// fingerprint derives a stable hash for (payload, scope). Serialization
// failures fall back to an empty key, which simply bypasses the cache.
func fingerprint(payload any, scope string) string {
	b, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	h := sha256.New()
	h.Write(b)
	h.Write([]byte{0})
	h.Write([]byte(scope))
	return hex.EncodeToString(h.Sum(nil))
}
