package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"hygge/pkg/models"
)

// entry is a cached item with an expiration deadline
type entry struct {
	value      interface{}
	expiration time.Time
}

func (e *entry) expired() bool {
	return time.Now().After(e.expiration)
}

// MemoryCache implements a simple in-memory cache with TTL expiry
type MemoryCache struct {
	items map[string]*entry
	mutex sync.RWMutex
	ttl   time.Duration
	done  chan struct{}
}

// NewMemoryCache creates a new memory cache
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	cache := &MemoryCache{
		items: make(map[string]*entry),
		ttl:   ttl,
		done:  make(chan struct{}),
	}

	go cache.cleanupExpired()

	return cache
}

// Set stores a value in the cache
func (c *MemoryCache) Set(key string, value interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = &entry{
		value:      value,
		expiration: time.Now().Add(c.ttl),
	}
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	e, exists := c.items[key]
	if !exists || e.expired() {
		return nil, false
	}

	return e.value, true
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, key)
}

// DeletePrefix removes all values whose key starts with prefix
func (c *MemoryCache) DeletePrefix(prefix string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items = make(map[string]*entry)
}

// Size returns the number of items in the cache
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.items)
}

// Stop terminates the background cleanup goroutine
func (c *MemoryCache) Stop() {
	close(c.done)
}

// cleanupExpired removes expired entries periodically
func (c *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(time.Minute * 5)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mutex.Lock()
			for key, e := range c.items {
				if e.expired() {
					delete(c.items, key)
				}
			}
			c.mutex.Unlock()
		}
	}
}

// TrackCache caches catalog query results keyed by category lookup. Entries
// are invalidated wholesale whenever the library changes on disk.
type TrackCache struct {
	*MemoryCache
}

// NewTrackCache creates a new track cache
func NewTrackCache() *TrackCache {
	return &TrackCache{
		MemoryCache: NewMemoryCache(15 * time.Minute),
	}
}

// CategoryKey builds the cache key for a category/subcategory lookup
func CategoryKey(category, subcategory string) string {
	return fmt.Sprintf("tracks:%s:%s", category, subcategory)
}

// SetTracks caches a slice of tracks
func (tc *TrackCache) SetTracks(key string, tracks []models.Track) {
	tc.Set(key, tracks)
}

// GetTracks retrieves cached tracks
func (tc *TrackCache) GetTracks(key string) ([]models.Track, bool) {
	value, exists := tc.Get(key)
	if !exists {
		return nil, false
	}

	tracks, ok := value.([]models.Track)
	return tracks, ok
}

// InvalidateTracks drops all cached track listings
func (tc *TrackCache) InvalidateTracks() {
	tc.DeletePrefix("tracks:")
}
