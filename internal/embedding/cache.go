package embedding

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// QueryCache is an LRU of query vectors keyed by intent, model and text hash.
// Document vectors are not cached here; the vector store's text hash covers them.
type QueryCache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	value []float32
}

// NewQueryCache creates a cache holding up to capacity vectors. It returns
// nil when capacity is not positive; a nil cache misses every lookup.
func NewQueryCache(capacity int) *QueryCache {
	if capacity <= 0 {
		return nil
	}
	return &QueryCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

func cacheKey(intent Intent, model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return string(intent) + "|" + model + "|" + hex.EncodeToString(sum[:])
}

// Get returns the cached vector for key if present.
func (c *QueryCache) Get(key string) ([]float32, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).value, true
	}
	return nil, false
}

// Set stores the vector for key, evicting the least recently used entry if at capacity.
func (c *QueryCache) Set(key string, value []float32) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}

	entry := &cacheEntry{key: key, value: value}
	elem := c.lru.PushFront(entry)
	c.cache[key] = elem

	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the number of cached vectors.
func (c *QueryCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
