package cache

import (
	"sync"
	"time"

	"montage/pkg/models"
)

// CacheEntry represents a cached item with expiration
type CacheEntry struct {
	Value      interface{}
	Expiration time.Time
}

// IsExpired checks if the cache entry has expired
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.Expiration)
}

// MemoryCache implements a simple in-memory cache
type MemoryCache struct {
	items map[string]*CacheEntry
	mutex sync.RWMutex
	ttl   time.Duration
}

// NewMemoryCache creates a new memory cache
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	cache := &MemoryCache{
		items: make(map[string]*CacheEntry),
		mutex: sync.RWMutex{},
		ttl:   ttl,
	}

	// Start cleanup goroutine
	go cache.cleanupExpired()

	return cache
}

// Set stores a value in the cache
func (c *MemoryCache) Set(key string, value interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = &CacheEntry{
		Value:      value,
		Expiration: time.Now().Add(c.ttl),
	}
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.items[key]
	if !exists || entry.IsExpired() {
		return nil, false
	}

	return entry.Value, true
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items = make(map[string]*CacheEntry)
}

// Size returns the number of items in the cache
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.items)
}

// cleanupExpired removes expired entries periodically
func (c *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(time.Minute * 5) // Cleanup every 5 minutes
	defer ticker.Stop()

	for range ticker.C {
		c.mutex.Lock()
		for key, entry := range c.items {
			if entry.IsExpired() {
				delete(c.items, key)
			}
		}
		c.mutex.Unlock()
	}
}

// VideoCache caches query results keyed by the query parameters. Any write
// to the library invalidates the whole cache, so a short TTL is enough.
type VideoCache struct {
	*MemoryCache
}

// NewVideoCache creates a new video query cache
func NewVideoCache() *VideoCache {
	return &VideoCache{
		MemoryCache: NewMemoryCache(30 * time.Second),
	}
}

// SetVideos caches a slice of videos for one query
func (vc *VideoCache) SetVideos(key string, videos []models.Video) {
	vc.Set(key, videos)
}

// GetVideos retrieves cached videos for one query
func (vc *VideoCache) GetVideos(key string) ([]models.Video, bool) {
	value, exists := vc.Get(key)
	if !exists {
		return nil, false
	}

	videos, ok := value.([]models.Video)
	return videos, ok
}

// SetVideo caches a single video
func (vc *VideoCache) SetVideo(key string, video *models.Video) {
	vc.Set(key, video)
}

// GetVideo retrieves a cached video
func (vc *VideoCache) GetVideo(key string) (*models.Video, bool) {
	value, exists := vc.Get(key)
	if !exists {
		return nil, false
	}

	video, ok := value.(*models.Video)
	return video, ok
}
