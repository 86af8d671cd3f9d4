package cache

import (
	"sync"
	"time"

	"github.com/sulu/sulu-sub013/models"
)

// MemoryCache implements CacheProvider using in-memory storage
type MemoryCache struct {
	mu       sync.RWMutex
	data     map[string]*models.Resolution
	ttl      time.Duration
	expiries map[string]time.Time
}

// NewMemoryCache creates a new in-memory cache provider
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		ttl:      DefaultTTL,
		data:     make(map[string]*models.Resolution),
		expiries: make(map[string]time.Time),
	}
}

// Initialize performs any necessary setup for the cache provider
func (c *MemoryCache) Initialize() error {
	return nil
}

// GetResolution retrieves a resolution from cache if available
func (c *MemoryCache) GetResolution(scope, path string) (*models.Resolution, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	key := getCacheKey(scope, path)
	expiry, exists := c.expiries[key]
	if !exists || time.Now().After(expiry) {
		return nil, false
	}

	if resolution, ok := c.data[key]; ok {
		copied := *resolution
		return &copied, true
	}

	return nil, false
}

// SetResolution stores a resolution in cache
func (c *MemoryCache) SetResolution(scope, path string, resolution *models.Resolution) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := getCacheKey(scope, path)
	copied := *resolution
	c.data[key] = &copied
	c.expiries[key] = time.Now().Add(c.ttl)
}

// InvalidateCache removes all cached data
func (c *MemoryCache) InvalidateCache() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[string]*models.Resolution)
	c.expiries = make(map[string]time.Time)
}

// SetCacheTTL sets the cache time-to-live duration
func (c *MemoryCache) SetCacheTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ttl = ttl
	// Update all existing expiries
	now := time.Now()
	for key := range c.data {
		c.expiries[key] = now.Add(ttl)
	}
}
