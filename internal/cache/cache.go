// Package cache is a small per-user read cache in front of expensive
// aggregate queries. Entries are grouped by user so that any write for a
// user can drop everything cached for them at once.
package cache

import (
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

const defaultTTL = 5 * time.Minute

// Cache wraps a ristretto cache and remembers which keys belong to which
// user. A nil *Cache is valid and caches nothing.
type Cache struct {
	store *ristretto.Cache[string, any]
	ttl   time.Duration

	mu       sync.Mutex
	userKeys map[string]map[string]struct{}
}

// New creates a cache bounded by maxCost entries.
func New(maxCost int64) (*Cache, error) {
	store, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: maxCost * 10, // number of keys to track frequency of
		MaxCost:     maxCost,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		return nil, err
	}
	return &Cache{
		store:    store,
		ttl:      defaultTTL,
		userKeys: make(map[string]map[string]struct{}),
	}, nil
}

// Key builds the cache key for a user-scoped resource.
func Key(userID, resource string) string {
	return userID + ":" + resource
}

// Get returns the cached value for a user-scoped resource.
func (c *Cache) Get(userID, resource string) (any, bool) {
	if c == nil {
		return nil, false
	}
	return c.store.Get(Key(userID, resource))
}

// Set stores value for a user-scoped resource. Writes are applied
// asynchronously by ristretto; call Wait to observe them immediately.
func (c *Cache) Set(userID, resource string, value any) {
	if c == nil {
		return
	}
	key := Key(userID, resource)

	c.mu.Lock()
	keys, ok := c.userKeys[userID]
	if !ok {
		keys = make(map[string]struct{})
		c.userKeys[userID] = keys
	}
	keys[key] = struct{}{}
	c.mu.Unlock()

	c.store.SetWithTTL(key, value, 1, c.ttl)
}

// Delete drops one user-scoped resource.
func (c *Cache) Delete(userID, resource string) {
	if c == nil {
		return
	}
	key := Key(userID, resource)

	c.mu.Lock()
	delete(c.userKeys[userID], key)
	c.mu.Unlock()

	c.store.Del(key)
}

// InvalidateUser drops every entry cached for userID.
func (c *Cache) InvalidateUser(userID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	for key := range c.userKeys[userID] {
		c.store.Del(key)
	}
	delete(c.userKeys, userID)
	c.mu.Unlock()
}

// Wait blocks until buffered writes have been applied.
func (c *Cache) Wait() {
	if c == nil {
		return
	}
	c.store.Wait()
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() {
	if c == nil {
		return
	}
	c.store.Close()
}
