// Package cache keeps address lookups in memory and persists them through a Store.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/UnknownOlympus/realty-atlas/internal/metrics"
	"github.com/UnknownOlympus/realty-atlas/internal/models"
)

// DefaultAutosaveEvery is the number of new entries after which the cache is flushed.
const DefaultAutosaveEvery = 50

// Store persists cache entries.
type Store interface {
	// Load returns every stored entry. A store that does not exist yet returns an empty map.
	Load(ctx context.Context) (map[string]models.Point, error)
	// Save persists the cache. all holds every entry, changed only those added or updated
	// since the previous save.
	Save(ctx context.Context, all, changed map[string]models.Point) error
}

// Cache maps raw address strings to lookup outcomes, including failed lookups.
type Cache struct {
	mu            sync.Mutex
	store         Store
	entries       map[string]models.Point
	changed       map[string]models.Point
	sinceSave     int
	autosaveEvery int
	log           *slog.Logger
	metrics       *metrics.Metrics
}

// New creates an empty cache backed by store. autosaveEvery <= 0 selects DefaultAutosaveEvery.
func New(store Store, autosaveEvery int, log *slog.Logger, appMetrics *metrics.Metrics) *Cache {
	if autosaveEvery <= 0 {
		autosaveEvery = DefaultAutosaveEvery
	}

	return &Cache{
		store:         store,
		entries:       map[string]models.Point{},
		changed:       map[string]models.Point{},
		autosaveEvery: autosaveEvery,
		log:           log,
		metrics:       appMetrics,
	}
}

// Load replaces the in-memory entries with the stored ones. A store that cannot be read
// is logged and leaves the cache empty.
func (c *Cache) Load(ctx context.Context) int {
	stored, err := c.store.Load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.changed = map[string]models.Point{}
	c.sinceSave = 0
	if err != nil {
		c.log.WarnContext(ctx, "Failed to load address cache, starting empty", "error", err)
		c.entries = map[string]models.Point{}
		return 0
	}

	if stored == nil {
		stored = map[string]models.Point{}
	}
	c.entries = stored
	c.log.InfoContext(ctx, "Address cache loaded", "entries", len(stored))

	return len(stored)
}

// Get returns the entry for addr and whether it exists.
func (c *Cache) Get(addr string) (models.Point, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	point, ok := c.entries[addr]
	return point, ok
}

// Put stores point under addr. Every autosaveEvery new entries the cache is flushed.
func (c *Cache) Put(ctx context.Context, addr string, point models.Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[addr]; !exists {
		c.sinceSave++
	}
	c.entries[addr] = point
	c.changed[addr] = point

	if c.sinceSave >= c.autosaveEvery {
		return c.flushLocked(ctx)
	}

	return nil
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Flush persists the cache.
func (c *Cache) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.flushLocked(ctx)
}

func (c *Cache) flushLocked(ctx context.Context) error {
	if err := c.store.Save(ctx, c.entries, c.changed); err != nil {
		return fmt.Errorf("failed to save address cache: %w", err)
	}

	c.log.DebugContext(ctx, "Address cache saved", "entries", len(c.entries), "changed", len(c.changed))
	c.changed = map[string]models.Point{}
	c.sinceSave = 0
	if c.metrics != nil {
		c.metrics.CacheFlushes.Inc()
	}

	return nil
}
