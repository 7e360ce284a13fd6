package cache

import "time"

// Cache is the interface for caching feed lookups between refresh windows.
// The feed adapter uses it to serve the current market instance from memory
// while prices poll on a faster cadence than the catalog refresh.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns (value, true) if found, (nil, false) if not found.
	Get(key string) (interface{}, bool)

	// Set stores a value in the cache with a TTL. The value is visible to
	// readers as soon as Set returns.
	Set(key string, value interface{}, ttl time.Duration) bool

	// Delete removes a value from the cache.
	Delete(key string)

	// Clear removes all values from the cache.
	Clear()

	// Close closes the cache and releases resources.
	Close()
}
