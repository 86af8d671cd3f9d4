package cache

import (
	"errors"
	"sync"
	"time"

	"github.com/sulu/sulu-sub013/models"
)

// MockCache is a cache provider that can be used for testing
type MockCache struct {
	mu              sync.RWMutex
	data            map[string]*models.Resolution
	ttl             time.Duration
	expiry          time.Time
	GetCalls        int
	SetCalls        int
	InvalidateCalls int
	SetTTLCalls     int
	InitCalls       int
	ShouldFail      bool
}

// NewMockCache creates a new mock cache provider
func NewMockCache() *MockCache {
	return &MockCache{
		ttl:  DefaultTTL,
		data: make(map[string]*models.Resolution),
	}
}

// Initialize performs any necessary setup for the cache provider
func (c *MockCache) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.InitCalls++
	if c.ShouldFail {
		return ErrCacheInitialization
	}
	return nil
}

// GetResolution retrieves a resolution from cache if available
func (c *MockCache) GetResolution(scope, path string) (*models.Resolution, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.GetCalls++

	if c.ShouldFail || time.Now().After(c.expiry) {
		return nil, false
	}

	resolution, ok := c.data[getCacheKey(scope, path)]
	return resolution, ok
}

// SetResolution stores a resolution in cache
func (c *MockCache) SetResolution(scope, path string, resolution *models.Resolution) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetCalls++

	if !c.ShouldFail {
		c.data[getCacheKey(scope, path)] = resolution
		c.expiry = time.Now().Add(c.ttl)
	}
}

// InvalidateCache removes all resolutions from cache
func (c *MockCache) InvalidateCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.InvalidateCalls++

	if !c.ShouldFail {
		c.data = make(map[string]*models.Resolution)
		c.expiry = time.Time{}
	}
}

// SetCacheTTL sets the cache time-to-live duration
func (c *MockCache) SetCacheTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetTTLCalls++

	if !c.ShouldFail {
		c.ttl = ttl
		if len(c.data) > 0 {
			c.expiry = time.Now().Add(ttl)
		}
	}
}

// Reset resets all counters and state
func (c *MockCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.GetCalls = 0
	c.SetCalls = 0
	c.InvalidateCalls = 0
	c.SetTTLCalls = 0
	c.InitCalls = 0
	c.ShouldFail = false
	c.data = make(map[string]*models.Resolution)
	c.expiry = time.Time{}
}

// GetCallCounts returns the number of times each method was called
func (c *MockCache) GetCallCounts() (get, set, invalidate, setTTL, init int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.GetCalls, c.SetCalls, c.InvalidateCalls, c.SetTTLCalls, c.InitCalls
}

// SetShouldFail makes the mock cache fail all operations
func (c *MockCache) SetShouldFail(shouldFail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ShouldFail = shouldFail
}

// ErrCacheInitialization is returned when the mock cache is configured to fail
var ErrCacheInitialization = errors.New("mock cache initialization failed")
