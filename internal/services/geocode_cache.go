package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// CachingGeocoder remembers addresses for nearby coordinates so repeated
// reports from the same spot do not hit the geocoding API again.
// Coordinates are quantized to 4 decimals (about 11m).
type CachingGeocoder struct {
	next       Geocoder
	cache      map[string]*geocodeEntry
	mutex      sync.Mutex
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	stats      GeocodeCacheStats
}

type geocodeEntry struct {
	address      string
	createdAt    time.Time
	lastAccessed time.Time
}

// GeocodeCacheStats tracks cache performance
type GeocodeCacheStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
}

func NewCachingGeocoder(next Geocoder, maxEntries int, ttl time.Duration) *CachingGeocoder {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachingGeocoder{
		next:       next,
		cache:      make(map[string]*geocodeEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

func geocodeKey(lat, lng float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lng)
}

// ReverseGeocode serves from cache when possible. Failures are not cached.
func (c *CachingGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	key := geocodeKey(lat, lng)
	if address, ok := c.get(key); ok {
		return address, nil
	}

	address, err := c.next.ReverseGeocode(ctx, lat, lng)
	if err != nil {
		return "", err
	}
	c.set(key, address)
	return address, nil
}

func (c *CachingGeocoder) get(key string) (string, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, found := c.cache[key]
	if !found {
		c.stats.Misses++
		return "", false
	}

	now := c.now()
	if now.Sub(entry.createdAt) > c.ttl {
		delete(c.cache, key)
		c.stats.Evictions++
		c.stats.Misses++
		return "", false
	}

	entry.lastAccessed = now
	c.stats.Hits++
	return entry.address, true
}

func (c *CachingGeocoder) set(key, address string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.cache[key]; !exists && len(c.cache) >= c.maxEntries {
		c.evictOldest()
	}

	now := c.now()
	c.cache[key] = &geocodeEntry{address: address, createdAt: now, lastAccessed: now}
}

// evictOldest removes the least recently used entry. Caller holds the lock.
func (c *CachingGeocoder) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.cache {
		if oldestKey == "" || entry.lastAccessed.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.lastAccessed
		}
	}

	if oldestKey != "" {
		delete(c.cache, oldestKey)
		c.stats.Evictions++
		log.Printf("🗑️  Evicted geocode cache entry: %s", oldestKey)
	}
}

// Stats returns a snapshot of cache statistics
func (c *CachingGeocoder) Stats() GeocodeCacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	stats := c.stats
	stats.Size = len(c.cache)
	return stats
}
