// internal/cache/cache.go
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"banking-assistant/internal/common/metrics"
)

// Clock returns the current time. Injected so expiry can be tested without sleeping.
type Clock func() time.Time

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Stats is a point-in-time view of one cache.
type Stats struct {
	Name        string  `json:"name"`
	Size        int     `json:"size"`
	Capacity    int     `json:"capacity"`
	TTLSeconds  float64 `json:"ttlSeconds"`
	Utilization float64 `json:"utilization"`
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	Evictions   uint64  `json:"evictions"`
}

// Cache is a bounded in-memory TTL map. Expired entries read as absent.
type Cache struct {
	name     string
	ttl      time.Duration
	capacity int
	now      Clock

	mu        sync.RWMutex
	entries   map[string]entry
	evictions uint64

	hits   atomic.Uint64
	misses atomic.Uint64
}

type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(c *Cache) {
		if clock != nil {
			c.now = clock
		}
	}
}

// New creates a cache. capacity <= 0 means unbounded.
func New(name string, ttl time.Duration, capacity int, opts ...Option) *Cache {
	c := &Cache{
		name:     name,
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
		entries:  make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) Name() string { return c.name }

// Get returns the value stored under key if it has not expired.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	live := ok && c.now().Before(e.expiresAt)
	c.mu.RUnlock()

	if live {
		c.hits.Add(1)
		metrics.CacheRequests.WithLabelValues(c.name, "hit").Inc()
		return e.value, true
	}
	c.misses.Add(1)
	metrics.CacheRequests.WithLabelValues(c.name, "miss").Inc()
	return nil, false
}

// Set stores value under key, replacing any previous value. ttl <= 0 uses the
// cache TTL.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && c.capacity > 0 && len(c.entries) >= c.capacity {
		c.makeRoomLocked(now)
	}
	c.entries[key] = entry{value: value, expiresAt: now.Add(ttl)}
}

// makeRoomLocked drops expired entries and, if still full, the entry closest to expiry.
func (c *Cache) makeRoomLocked(now time.Time) {
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.capacity {
		return
	}

	var victim string
	var earliest time.Time
	first := true
	for k, e := range c.entries {
		if first || e.expiresAt.Before(earliest) || (e.expiresAt.Equal(earliest) && k < victim) {
			victim, earliest, first = k, e.expiresAt, false
		}
	}
	delete(c.entries, victim)
	c.evictions++
	metrics.CacheEvictions.WithLabelValues(c.name).Inc()
}

// Delete removes key if present.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes every entry and returns how many were stored.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]entry)
	return n
}

// Sweep removes expired entries and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{
		Name:       c.name,
		Size:       len(c.entries),
		Capacity:   c.capacity,
		TTLSeconds: c.ttl.Seconds(),
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Evictions:  c.evictions,
	}
	if c.capacity > 0 {
		s.Utilization = float64(s.Size) / float64(c.capacity)
	}
	return s
}
