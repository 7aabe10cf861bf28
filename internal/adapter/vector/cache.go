package vector

import (
	"fmt"
	"os"
	"sync"

	"github.com/couchcryptid/hazard-exposure-service/internal/domain"
)

// Loader reads the features stored at path.
type Loader interface {
	Load(path string) ([]domain.Feature, error)
}

// CachedLoader wraps a Loader with an in-memory LRU cache. Entries are keyed
// by path, size and modification time, so a rewritten file is read again.
type CachedLoader struct {
	inner Loader
	cache *lruCache
}

// NewCachedLoader creates a cache decorator around a loader.
func NewCachedLoader(inner Loader, maxEntries int) *CachedLoader {
	return &CachedLoader{
		inner: inner,
		cache: newLRUCache(maxEntries),
	}
}

// Load returns the cached features for path when the file is unchanged. The
// returned slice is a copy and may be modified by the caller.
func (c *CachedLoader) Load(path string) ([]domain.Feature, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	if features, ok := c.cache.get(key); ok {
		return append([]domain.Feature(nil), features...), nil
	}

	features, err := c.inner.Load(path)
	if err != nil {
		return nil, err
	}
	c.cache.put(key, features)
	return append([]domain.Feature(nil), features...), nil
}

// Len returns the number of cached networks.
func (c *CachedLoader) Len() int {
	c.cache.mu.Lock()
	defer c.cache.mu.Unlock()
	return len(c.cache.entries)
}

// lruCache is a simple thread-safe LRU cache of parsed networks.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []domain.Feature
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]domain.Feature, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []domain.Feature) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
