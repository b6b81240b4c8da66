package ttlcache

import (
	"sync"
	"time"

	"github.com/pbnjay/memory"
	"github.com/pkg/errors"
)

var ErrIllegalCapacity = errors.New("illegal ttl cache capacity")

// assume a few KB per cached entry when deriving a cap from system memory
const assumedEntryBytes = 4 * 1024

type ComputeFn func() (interface{}, error)

type item struct {
	value    interface{}
	storedAt time.Time
}

// Cache is a keyed, TTL-based lookup cache. One mutex guards the store;
// the critical section covers "check freshness, and if stale or missing,
// compute and store" as a single unit per call. Concurrent callers for
// the same key may therefore each recompute around an expiry boundary:
// at-least-once semantics, which is the accepted tradeoff. Entries
// expire a TTL after write time; an expired entry counts as missing.
type Cache struct {
	mu         sync.Mutex
	items      map[string]item
	maxEntries int
	clock      func() time.Time

	hits     uint64
	misses   uint64
	computes uint64
}

type Stats struct {
	Hits     uint64
	Misses   uint64
	Computes uint64
}

// New creates a cache holding at most maxEntries items. Zero derives a
// cap from total system memory; negative is rejected.
func New(maxEntries int) (*Cache, error) {
	if maxEntries < 0 {
		return nil, ErrIllegalCapacity
	}

	if maxEntries == 0 {
		maxEntries = int(memory.TotalMemory() / assumedEntryBytes / 64)
		if maxEntries < 1024 {
			maxEntries = 1024
		}
	}

	return &Cache{
		items:      make(map[string]item),
		maxEntries: maxEntries,
		clock:      time.Now,
	}, nil
}

// WithClock replaces the time source, for tests.
func (c *Cache) WithClock(clock func() time.Time) *Cache {
	c.clock = clock
	return c
}

// GetOrCompute returns the fresh value stored under key, or runs fn and
// stores its result for ttl. fn errors are returned as-is and nothing is
// stored, so a later call retries the computation.
func (c *Cache) GetOrCompute(key string, ttl time.Duration, fn ComputeFn) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	if it, ok := c.items[key]; ok && ttl > 0 && now.Sub(it.storedAt) < ttl {
		c.hits++
		return it.value, nil
	}

	c.misses++
	c.computes++

	v, err := fn()
	if err != nil {
		return nil, err
	}

	if len(c.items) >= c.maxEntries {
		c.evictUnderLock(now, ttl)
	}

	c.items[key] = item{value: v, storedAt: now}
	return v, nil
}

// Get returns the fresh value under key, if any.
func (c *Cache) Get(key string, ttl time.Duration) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok || ttl <= 0 || c.clock().Sub(it.storedAt) >= ttl {
		return nil, false
	}

	return it.value, true
}

func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

func (c *Cache) Purge() {
	c.mu.Lock()
	c.items = make(map[string]item)
	c.mu.Unlock()
}

func (c *Cache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{Hits: c.hits, Misses: c.misses, Computes: c.computes}
}

// evictUnderLock drops expired entries first, then the oldest remaining
// one until there is room for a new entry.
func (c *Cache) evictUnderLock(now time.Time, ttl time.Duration) {
	for k, it := range c.items {
		if ttl <= 0 || now.Sub(it.storedAt) >= ttl {
			delete(c.items, k)
		}
	}

	for len(c.items) >= c.maxEntries {
		var oldestKey string
		var oldestAt time.Time
		first := true
		for k, it := range c.items {
			if first || it.storedAt.Before(oldestAt) {
				oldestKey, oldestAt = k, it.storedAt
				first = false
			}
		}

		delete(c.items, oldestKey)
	}
}
