// internal/cache/manager.go
package cache

import (
	"context"
	"sort"
	"time"

	"banking-assistant/internal/common/config"
)

// Names of the caches the pipeline uses.
const (
	Locations = "locations"
	Currency  = "currency"
	Context   = "context"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})
}

// Manager owns the named caches. It is built once and injected into its users.
type Manager struct {
	caches        map[string]*Cache
	sweepInterval time.Duration
}

// NewManager builds the locations, currency and context caches from config.
func NewManager(cfg config.CacheConfig, opts ...Option) *Manager {
	m := &Manager{
		caches:        make(map[string]*Cache, 3),
		sweepInterval: config.GetSeconds(cfg.SweepInterval),
	}
	m.caches[Locations] = New(Locations, config.GetSeconds(cfg.Locations.TTL), cfg.Locations.Capacity, opts...)
	m.caches[Currency] = New(Currency, config.GetSeconds(cfg.Currency.TTL), cfg.Currency.Capacity, opts...)
	m.caches[Context] = New(Context, config.GetSeconds(cfg.Context.TTL), cfg.Context.Capacity, opts...)
	return m
}

// Get returns the named cache or nil.
func (m *Manager) Get(name string) *Cache {
	return m.caches[name]
}

func (m *Manager) Locations() *Cache { return m.caches[Locations] }
func (m *Manager) Currency() *Cache  { return m.caches[Currency] }
func (m *Manager) Context() *Cache   { return m.caches[Context] }

// Names returns the cache names in sorted order.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.caches))
	for n := range m.caches {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Stats returns stats for every cache, ordered by name.
func (m *Manager) Stats() []Stats {
	out := make([]Stats, 0, len(m.caches))
	for _, n := range m.Names() {
		out = append(out, m.caches[n].Stats())
	}
	return out
}

// Sweep removes expired entries from every cache.
func (m *Manager) Sweep() int {
	total := 0
	for _, c := range m.caches {
		total += c.Sweep()
	}
	return total
}

// StartSweeper runs Sweep periodically until ctx is done. It is a no-op when
// the sweep interval is zero.
func (m *Manager) StartSweeper(ctx context.Context, log Logger) {
	if m.sweepInterval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(m.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.Sweep(); n > 0 && log != nil {
					log.Debug("Swept expired cache entries", map[string]interface{}{"removed": n})
				}
			}
		}
	}()
	if log != nil {
		log.Info("Cache sweeper started", map[string]interface{}{"interval": m.sweepInterval.String()})
	}
}
