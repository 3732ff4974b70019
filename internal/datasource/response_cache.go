package datasource

import (
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/paddock/internal/metrics"
)

// ResponseCache keeps decoded upstream pages for data that no longer changes:
// rounds that have been published and seasons that are over.
type ResponseCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	maxSize   int
	mu        sync.Mutex
	hitCount  uint64
	missCount uint64
}

// NewResponseCache creates a new response cache
func NewResponseCache(ttl time.Duration, maxSize int) *ResponseCache {
	return &ResponseCache{
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves a cached page
func (rc *ResponseCache) Get(key string) (*MRData, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if v, found := rc.cache.Get(key); found {
		if data, ok := v.(*MRData); ok {
			rc.hitCount++
			rc.updateMetrics()
			return data, true
		}
	}

	rc.missCount++
	rc.updateMetrics()
	return nil, false
}

// Set stores a page in cache
func (rc *ResponseCache) Set(key string, data *MRData) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.maxSize > 0 && rc.cache.ItemCount() >= rc.maxSize {
		rc.cache.DeleteExpired()
		if rc.cache.ItemCount() >= rc.maxSize {
			return
		}
	}

	rc.cache.Set(key, data, rc.ttl)
}

// Clear flushes the entire cache
func (rc *ResponseCache) Clear() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.cache.Flush()
	rc.hitCount = 0
	rc.missCount = 0
}

// Stats returns cache statistics
func (rc *ResponseCache) Stats() (hits, misses uint64, ratio float64) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.stats()
}

func (rc *ResponseCache) stats() (hits, misses uint64, ratio float64) {
	hits = rc.hitCount
	misses = rc.missCount
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// updateMetrics updates Prometheus metrics; callers hold mu
func (rc *ResponseCache) updateMetrics() {
	_, _, ratio := rc.stats()
	metrics.UpdateResponseCacheHitRatio(ratio)
}

// ItemCount returns the number of items in cache
func (rc *ResponseCache) ItemCount() int {
	return rc.cache.ItemCount()
}
