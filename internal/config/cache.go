package config

import "time"

// Search cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// SearchCacheConfig selects where search results are cached.  The memory
// backend is per process; redis shares entries across instances.
type SearchCacheConfig struct {
	Backend string
	TTL     time.Duration
	Prefix  string
}

// LoadSearchCacheConfig reads SEARCH_CACHE_* with defaults memory, 5m and
// "flights".
func LoadSearchCacheConfig() SearchCacheConfig {
	c := SearchCacheConfig{
		Backend: envStr("SEARCH_CACHE_BACKEND", CacheMemory),
		TTL:     envDur("SEARCH_CACHE_TTL", 5*time.Minute),
		Prefix:  envStr("SEARCH_CACHE_PREFIX", "flights"),
	}
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
	return c
}
