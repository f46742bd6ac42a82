package binlog

import (
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Decoded-value cache defaults.
const (
	defaultValueCacheSize = 10000
	defaultValueCacheTTL  = 300 * time.Second

	// entries cheaper than this to decode are not worth caching
	defaultMinWorthCaching = 100 * time.Microsecond

	// share of entries dropped when the cache fills
	valueCacheEvictShare = 0.2
)

// valueCacheKey identifies a decode: the value depends only on the
// column type, its metadata and the raw bytes, so the key is sound.
// Collisions on the byte hash are tolerated; two payloads hashing
// together would serve the first one's value.
type valueCacheKey struct {
	columnType ColumnType
	meta       uint16
	dataHash   uint64
}

type valueCacheEntry struct {
	value        interface{}
	createdAt    time.Time
	lastAccessed time.Time
	accessCount  uint64
	parseTime    time.Duration
}

// ValueCacheStats is a snapshot of cache effectiveness.
type ValueCacheStats struct {
	Entries   int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Expired   uint64
}

// HitRate is hits over lookups, 0..1.
func (s ValueCacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// ValueCache short-circuits repeated decodes of identical column
// images. Readers may race with the single writer behind one mutex;
// get-or-insert is not linearizable and duplicate decodes are fine.
type ValueCache struct {
	mu      sync.Mutex
	entries map[valueCacheKey]*valueCacheEntry

	capacity        int
	ttl             time.Duration
	minWorthCaching time.Duration

	hits      uint64
	misses    uint64
	evictions uint64
	expired   uint64
}

func NewValueCache(capacity int, ttl time.Duration) *ValueCache {
	if capacity <= 0 {
		capacity = defaultValueCacheSize
	}
	if ttl <= 0 {
		ttl = defaultValueCacheTTL
	}
	return &ValueCache{
		entries:         make(map[valueCacheKey]*valueCacheEntry),
		capacity:        capacity,
		ttl:             ttl,
		minWorthCaching: defaultMinWorthCaching,
	}
}

// Get returns the cached value for (type, meta, data). Expired entries
// are removed lazily here.
func (c *ValueCache) Get(typ ColumnType, meta uint16, data []byte) (interface{}, bool) {
	key := valueCacheKey{columnType: typ, meta: meta, dataHash: xxhash.Sum64(data)}
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if now.Sub(e.createdAt) > c.ttl {
		delete(c.entries, key)
		c.expired++
		c.misses++
		return nil, false
	}
	e.lastAccessed = now
	e.accessCount++
	c.hits++
	return e.value, true
}

// Put caches a decode result, provided the decode was expensive enough
// to be worth remembering. Inserting into a full cache drops the
// least-recently-used fifth of the entries.
func (c *ValueCache) Put(typ ColumnType, meta uint16, data []byte, value interface{}, parseTime time.Duration) {
	if parseTime < c.minWorthCaching {
		return
	}
	key := valueCacheKey{columnType: typ, meta: meta, dataHash: xxhash.Sum64(data)}
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.capacity {
		c.evictLocked()
	}
	c.entries[key] = &valueCacheEntry{
		value:        value,
		createdAt:    now,
		lastAccessed: now,
		accessCount:  1,
		parseTime:    parseTime,
	}
}

// evictLocked removes the oldest-accessed entries down to 80% of
// capacity.
func (c *ValueCache) evictLocked() {
	target := int(float64(c.capacity) * (1 - valueCacheEvictShare))
	type aged struct {
		key  valueCacheKey
		last time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{key: k, last: e.lastAccessed})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].last.Before(all[j].last) })
	for _, a := range all {
		if len(c.entries) <= target {
			break
		}
		delete(c.entries, a.key)
		c.evictions++
	}
}

// Stats returns a snapshot of cache counters.
func (c *ValueCache) Stats() ValueCacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ValueCacheStats{
		Entries:   len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Expired:   c.expired,
	}
}

// Purge drops all entries and counters.
func (c *ValueCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[valueCacheKey]*valueCacheEntry)
	c.hits, c.misses, c.evictions, c.expired = 0, 0, 0, 0
}
