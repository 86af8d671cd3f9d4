package cache

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/sulu/sulu-sub013/models"
)

// Backend names accepted by NewProvider
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendDynamoDB = "dynamodb"
)

// DefaultTTL is used until SetCacheTTL is called
const DefaultTTL = 5 * time.Minute

// CacheProvider defines the interface for cache implementations.
// It caches the resolution of resource locators to nodes.
type CacheProvider interface {
	// GetResolution retrieves a cached resolution if available.
	// Parameters:
	//   - scope: The path namespace the path was resolved in
	//   - path: The requested resource locator
	// Returns:
	//   - The cached resolution
	//   - A boolean indicating whether the resolution was found in cache
	GetResolution(scope, path string) (*models.Resolution, bool)

	// SetResolution stores a resolution in cache.
	// Parameters:
	//   - scope: The path namespace the path was resolved in
	//   - path: The requested resource locator
	//   - resolution: The resolution to cache
	SetResolution(scope, path string, resolution *models.Resolution)

	// InvalidateCache removes all cached data.
	// This is called whenever a path is assigned, archived or deleted.
	InvalidateCache()

	// SetCacheTTL sets the cache time-to-live duration.
	// Parameters:
	//   - ttl: The duration after which cached data should expire
	SetCacheTTL(ttl time.Duration)

	// Initialize performs any necessary setup for the cache provider.
	// This may include establishing connections, creating cache instances,
	// or any other initialization required for the cache to function.
	// Returns an error if initialization fails.
	Initialize() error
}

// NewProvider creates and initializes the cache provider for backend.
// An empty backend selects Redis when REDIS_HOST is set and memory otherwise.
func NewProvider(backend string, ttl time.Duration, logger *zap.Logger) (CacheProvider, error) {
	if backend == "" {
		// Use Redis in local development, MemoryCache otherwise
		if os.Getenv("REDIS_HOST") != "" {
			backend = BackendRedis
		} else {
			backend = BackendMemory
		}
	}

	var provider CacheProvider
	switch backend {
	case BackendMemory:
		provider = NewMemoryCache()
	case BackendRedis:
		provider = NewRedisCache(logger)
	case BackendDynamoDB:
		dynamo, err := NewDynamoDBCache(logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create dynamodb cache: %w", err)
		}
		provider = dynamo
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}

	if ttl > 0 {
		provider.SetCacheTTL(ttl)
	}
	if err := provider.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize %s cache: %w", backend, err)
	}
	return provider, nil
}

// getCacheKey generates a cache key for the given scope and path
func getCacheKey(scope, path string) string {
	return fmt.Sprintf("resolve:%s:%s", scope, path)
}
