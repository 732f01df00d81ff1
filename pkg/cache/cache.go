// Package cache provides caching mechanisms for upstream responses and
// finished analyses to reduce repeat calls to the public mapping services.
package cache

import (
	"math"
	"sort"
	"sync"
	"time"
)

type item[V any] struct {
	value      V
	expiration int64
}

func (i item[V]) expired(now int64) bool {
	return i.expiration > 0 && now > i.expiration
}

// TTLCache is a thread-safe cache with time-based expiration
type TTLCache[K comparable, V any] struct {
	items           map[K]item[V]
	mu              sync.RWMutex
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	maxItems        int
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// NewTTLCache creates a new cache with the specified TTL and cleanup interval.
// maxItems specifies the maximum number of items before the soonest-expiring
// ones are evicted; 0 means unbounded.
func NewTTLCache[K comparable, V any](defaultTTL, cleanupInterval time.Duration, maxItems int) *TTLCache[K, V] {
	c := &TTLCache[K, V]{
		items:           make(map[K]item[V]),
		defaultTTL:      defaultTTL,
		cleanupInterval: cleanupInterval,
		maxItems:        maxItems,
		stopCleanup:     make(chan struct{}),
	}

	c.startCleanupTimer()

	return c
}

// Set adds an item to the cache with the default TTL
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL adds an item to the cache with a specific TTL; ttl <= 0 never expires.
func (c *TTLCache[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	var expiration int64
	if ttl > 0 {
		expiration = time.Now().Add(ttl).UnixNano()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = item[V]{value: value, expiration: expiration}

	if c.maxItems > 0 && len(c.items) > c.maxItems {
		c.evictOldest()
	}
}

// Get retrieves an item from the cache
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	it, found := c.items[key]
	c.mu.RUnlock()

	if !found {
		var zero V
		return zero, false
	}

	if now := time.Now().UnixNano(); it.expired(now) {
		c.deleteIfExpired(key, now)
		var zero V
		return zero, false
	}

	return it.value, true
}

// deleteIfExpired removes key only if the entry still stored under it has
// expired, so a value Set after the caller's read survives.
func (c *TTLCache[K, V]) deleteIfExpired(key K, now int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if it, found := c.items[key]; found && it.expired(now) {
		delete(c.items, key)
	}
}

// Delete removes an item from the cache
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Count returns the number of items in the cache
func (c *TTLCache[K, V]) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Clear removes all items from the cache
func (c *TTLCache[K, V]) Clear() {
	c.mu.Lock()
	c.items = make(map[K]item[V])
	c.mu.Unlock()
}

// evictOldest removes the soonest-expiring items when the cache exceeds maxItems.
// The lock must be held.
func (c *TTLCache[K, V]) evictOldest() {
	itemsToRemove := len(c.items) - c.maxItems
	if itemsToRemove <= 0 {
		return
	}

	type keyExpiration struct {
		key        K
		expiration int64
	}

	keyExpirations := make([]keyExpiration, 0, len(c.items))
	for k, v := range c.items {
		exp := v.expiration
		if exp == 0 {
			exp = math.MaxInt64
		}
		keyExpirations = append(keyExpirations, keyExpiration{k, exp})
	}

	sort.Slice(keyExpirations, func(i, j int) bool {
		return keyExpirations[i].expiration < keyExpirations[j].expiration
	})

	for i := 0; i < itemsToRemove; i++ {
		delete(c.items, keyExpirations[i].key)
	}
}

func (c *TTLCache[K, V]) startCleanupTimer() {
	if c.cleanupInterval <= 0 {
		return
	}

	ticker := time.NewTicker(c.cleanupInterval)
	go func() {
		for {
			select {
			case <-ticker.C:
				c.deleteExpired()
			case <-c.stopCleanup:
				ticker.Stop()
				return
			}
		}
	}()
}

func (c *TTLCache[K, V]) deleteExpired() {
	now := time.Now().UnixNano()

	c.mu.Lock()
	for k, v := range c.items {
		if v.expired(now) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}

// Stop stops the cleanup timer. It is safe to call more than once.
func (c *TTLCache[K, V]) Stop() {
	c.stopOnce.Do(func() { close(c.stopCleanup) })
}
