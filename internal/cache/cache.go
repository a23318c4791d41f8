// Package cache provides an in-memory file content cache with LRU eviction
// and TTL support for the static file handler.
package cache

import (
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// FileCache caches file contents keyed by absolute path. It is safe for
// concurrent use by every worker.
type FileCache struct {
	entries     map[string]*entry
	mutex       sync.Mutex
	maxSize     int64
	currentSize int64
	ttl         time.Duration
	now         func() time.Time
	// LRU doubly-linked list with sentinel head and tail
	head *entry
	tail *entry
	// Statistics tracking
	hits          atomic.Int64
	misses        atomic.Int64
	sets          atomic.Int64
	evictions     atomic.Int64
	invalidations atomic.Int64
}

type entry struct {
	key       string
	value     []byte
	createdAt time.Time
	size      int64
	prev      *entry
	next      *entry
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries       int   `json:"entries"`
	Size          int64 `json:"size"`
	MaxSize       int64 `json:"max_size"`
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Sets          int64 `json:"sets"`
	Evictions     int64 `json:"evictions"`
	Invalidations int64 `json:"invalidations"`
}

// HitRate returns hits / (hits + misses) in the range 0.0 to 1.0.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// New creates a cache holding at most maxSize bytes of content. Entries
// older than ttl are treated as missing.
func New(maxSize int64, ttl time.Duration) *FileCache {
	c := &FileCache{
		entries: make(map[string]*entry),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}

	c.head = &entry{}
	c.tail = &entry{}
	c.head.next = c.tail
	c.tail.prev = c.head

	return c
}

// Get returns the cached content for key.
func (c *FileCache) Get(key string) ([]byte, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	if c.now().Sub(e.createdAt) > c.ttl {
		c.remove(e)
		c.misses.Add(1)
		return nil, false
	}

	c.moveToFront(e)
	c.hits.Add(1)
	return e.value, true
}

// Set stores value under key. Values larger than the whole cache are not
// stored.
func (c *FileCache) Set(key string, value []byte) {
	size := int64(len(value))
	if size > c.maxSize {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if existing, ok := c.entries[key]; ok {
		c.remove(existing)
	}

	c.evictIfNeeded(size)

	e := &entry{
		key:       key,
		value:     value,
		createdAt: c.now(),
		size:      size,
	}
	c.entries[key] = e
	c.currentSize += size
	c.addToFront(e)
	c.sets.Add(1)
}

// Invalidate drops key and, when key names a directory, every entry below
// it. It returns the number of entries removed.
func (c *FileCache) Invalidate(key string) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	prefix := key
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}

	removed := 0
	for k, e := range c.entries {
		if k == key || strings.HasPrefix(k, prefix) {
			c.remove(e)
			removed++
		}
	}

	c.invalidations.Add(int64(removed))
	return removed
}

// Clear removes every entry. Counters are kept.
func (c *FileCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]*entry)
	c.currentSize = 0
	c.head.next = c.tail
	c.tail.prev = c.head
}

// Stats returns a snapshot of cache counters.
func (c *FileCache) Stats() Stats {
	c.mutex.Lock()
	entries, size := len(c.entries), c.currentSize
	c.mutex.Unlock()

	return Stats{
		Entries:       entries,
		Size:          size,
		MaxSize:       c.maxSize,
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Sets:          c.sets.Load(),
		Evictions:     c.evictions.Load(),
		Invalidations: c.invalidations.Load(),
	}
}

// evictIfNeeded evicts least recently used entries until newSize fits.
func (c *FileCache) evictIfNeeded(newSize int64) {
	for c.currentSize+newSize > c.maxSize && c.tail.prev != c.head {
		c.remove(c.tail.prev)
		c.evictions.Add(1)
	}
}

func (c *FileCache) remove(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(c.entries, e.key)
	c.currentSize -= e.size
}

func (c *FileCache) addToFront(e *entry) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *FileCache) moveToFront(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	c.addToFront(e)
}
