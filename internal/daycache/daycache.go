package daycache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rbright/weekview/internal/agenda"
	"github.com/rbright/weekview/internal/datewindow"
)

// Cache holds one agenda.Day per calendar day, filled lazily from a Source.
// Entries are keyed by the normalized day, so any instant within a day hits
// the same entry.
type Cache struct {
	source agenda.Source
	now    func() time.Time

	mu         sync.RWMutex
	days       map[string]agenda.Day
	generation uint64

	group singleflight.Group
}

func New(source agenda.Source) *Cache {
	return &Cache{
		source: source,
		now:    time.Now,
		days:   make(map[string]agenda.Day),
	}
}

// Get returns the cached day without fetching.
func (c *Cache) Get(day time.Time) (agenda.Day, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.days[datewindow.Key(day)]
	if !ok {
		return agenda.Day{}, false
	}
	return entry.Clone(), true
}

// Ensure returns the cached day, fetching it first when absent or when force
// is set. Concurrent calls for the same day share one fetch. A failed fetch
// stores nothing.
func (c *Cache) Ensure(ctx context.Context, day time.Time, filter agenda.Filter, force bool) (agenda.Day, error) {
	key := datewindow.Key(day)
	if !force {
		if cached, ok := c.Get(day); ok {
			return cached, nil
		}
	}

	c.mu.RLock()
	generation := c.generation
	c.mu.RUnlock()

	// The flight key carries the generation so a fetch started after
	// InvalidateAll never joins one started before it.
	flightKey := fmt.Sprintf("%d/%s", generation, key)
	if force {
		c.group.Forget(flightKey)
	}

	value, err, _ := c.group.Do(flightKey, func() (any, error) {
		fetched, err := c.source.FetchDay(ctx, datewindow.StartOfDay(day), filter.Clone())
		if err != nil {
			return agenda.Day{}, fmt.Errorf("fetch %s: %w", key, err)
		}
		fetched.Day = datewindow.StartOfDay(day)
		if fetched.FetchedAt.IsZero() {
			fetched.FetchedAt = c.now()
		}

		c.mu.Lock()
		if c.generation == generation {
			c.days[key] = fetched
		}
		c.mu.Unlock()
		return fetched, nil
	})
	if err != nil {
		return agenda.Day{}, err
	}
	return value.(agenda.Day).Clone(), nil
}

// InvalidateAll drops every entry. In-flight fetches that started earlier
// still complete but their results are not stored.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.days = make(map[string]agenda.Day)
	c.generation++
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.days)
}
