package holiday

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/warp/oncall-ledger/generic"
)

// =============================================================================
// CACHE - Holiday sets per (year, jurisdiction)
// =============================================================================

// Cache holds holiday sets for the lifetime of the Cache value.
//
// INVARIANTS:
//   - At most one fetch is in flight per key; concurrent callers for the
//     same key wait for and share its result.
//   - A successful fetch is stored and never refetched (until Purge).
//   - A fetch that started before a Purge is never stored after it.
//   - A failed fetch is NOT stored, so the next call tries again.
//   - The cache never retries on its own.
type Cache struct {
	source Source
	log    logrus.FieldLogger

	mu         sync.RWMutex
	sets       map[cacheKey]*Set
	generation uint64 // bumped by Purge
	group      singleflight.Group
}

type cacheKey struct {
	year         int
	jurisdiction string
}

func (k cacheKey) String() string { return fmt.Sprintf("%d/%s", k.year, k.jurisdiction) }

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Cache) { c.log = log }
}

// NewCache creates an empty cache over source.
func NewCache(source Source, opts ...Option) *Cache {
	c := &Cache{
		source: source,
		log:    logrus.StandardLogger(),
		sets:   make(map[cacheKey]*Set),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Holidays returns the holiday set of (year, jurisdiction), fetching it on
// first use. Failures come back as *generic.HolidayLookupError.
func (c *Cache) Holidays(ctx context.Context, year int, jurisdiction string) (*Set, error) {
	k := cacheKey{year: year, jurisdiction: jurisdiction}
	c.mu.RLock()
	set, ok := c.sets[k]
	gen := c.generation
	c.mu.RUnlock()
	if ok {
		return set, nil
	}

	// Keyed by generation so callers after a Purge never join an older fetch.
	v, err, _ := c.group.Do(fmt.Sprintf("%s#%d", k, gen), func() (any, error) {
		// A caller that lost the race to a just-finished fetch finds the value here.
		if set, ok := c.lookup(k); ok {
			return set, nil
		}
		return c.fetch(ctx, k, gen)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Set), nil
}

func (c *Cache) fetch(ctx context.Context, k cacheKey, gen uint64) (*Set, error) {
	log := c.log.WithFields(logrus.Fields{"year": k.year, "jurisdiction": k.jurisdiction})
	log.Debug("fetching holidays")

	// Waiters share this fetch; one caller's cancellation must not fail the others.
	holidays, err := c.source.Fetch(context.WithoutCancel(ctx), k.year, k.jurisdiction)
	if err != nil {
		log.WithError(err).Warn("holiday lookup failed")
		return nil, &generic.HolidayLookupError{Year: k.year, Jurisdiction: k.jurisdiction, Err: err}
	}

	set := NewSet(k.year, k.jurisdiction, holidays)

	c.mu.Lock()
	stale := c.generation != gen
	if !stale {
		c.sets[k] = set
	}
	c.mu.Unlock()

	if stale {
		log.Debug("cache purged during fetch, result not stored")
		return set, nil
	}
	log.WithField("holidays", set.Len()).Info("holidays cached")
	return set, nil
}

func (c *Cache) lookup(k cacheKey) (*Set, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	set, ok := c.sets[k]
	return set, ok
}

// Prefetch loads every year and returns them as a Calendar. It stops at
// the first failure; years fetched before it stay cached.
func (c *Cache) Prefetch(ctx context.Context, jurisdiction string, years ...int) (*Calendar, error) {
	cal := &Calendar{jurisdiction: jurisdiction, sets: make(map[int]*Set, len(years))}
	for _, y := range years {
		set, err := c.Holidays(ctx, y, jurisdiction)
		if err != nil {
			return nil, err
		}
		cal.sets[y] = set
	}
	return cal, nil
}

// Len returns the number of cached sets.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sets)
}

// Purge drops every cached set. Fetches already in flight still answer
// their waiting callers but do not store their result, and later callers
// start a fresh fetch instead of joining them.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets = make(map[cacheKey]*Set)
	c.generation++
}
