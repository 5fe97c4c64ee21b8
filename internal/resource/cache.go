package resource

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"rbacview/internal/metrics"
)

type Result struct {
	Items Collection
	Err   error
}

type entry struct {
	items   Collection
	gen     uint64
	stale   bool
	fetched time.Time
}

// Cache keeps the last fetched collection per tag. Concurrent fetches of the
// same tag and generation share one backend call. Invalidation marks the entry
// stale and bumps the generation, so a fetch that started earlier can no
// longer repopulate it.
type Cache struct {
	mu    sync.Mutex
	items *gocache.Cache
	gens  map[Kind]uint64
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group
}

// NewCache returns a cache whose entries are fresh until invalidated, or for
// ttl when ttl is positive. Expired entries are kept as stale data rather than
// evicted, so Snapshot can still serve them when a refetch fails.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		items: gocache.New(gocache.NoExpiration, 0),
		gens:  map[Kind]uint64{},
		ttl:   ttl,
		now:   time.Now,
	}
}

func (c *Cache) load(kind Kind) (entry, bool) {
	v, ok := c.items.Get(string(kind))
	if !ok {
		return entry{}, false
	}
	e, ok := v.(entry)
	if !ok {
		panic(fmt.Sprintf("value of wrong type found in cache - expected: %T, actual: %T", e, v))
	}
	if c.ttl > 0 && c.now().Sub(e.fetched) >= c.ttl {
		e.stale = true
	}
	return e, true
}

// Snapshot returns the last collection for kind, fresh or stale.
func (c *Cache) Snapshot(kind Kind) (items Collection, stale bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.load(kind)
	return e.items, e.stale, ok
}

func (c *Cache) Generation(kind Kind) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[kind]
}

// Invalidate marks the entry stale so the next read fetches again.
func (c *Cache) Invalidate(kind Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[kind]++
	if e, ok := c.load(kind); ok {
		e.stale = true
		c.items.Set(string(kind), e, gocache.NoExpiration)
	}
	metrics.CacheInvalidations.WithLabelValues(string(kind)).Inc()
}

func (c *Cache) store(kind Kind, gen uint64, items Collection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[kind] != gen {
		return
	}
	c.items.Set(string(kind), entry{items: items, gen: gen, fetched: c.now()}, gocache.NoExpiration)
}

// Fetch returns the fresh cached collection or joins/starts a fetch. The
// shared fetch runs detached from ctx cancellation so that one caller going
// away does not fail the others.
func (c *Cache) Fetch(ctx context.Context, kind Kind, fetch func(context.Context) (Collection, error)) <-chan Result {
	out := make(chan Result, 1)

	c.mu.Lock()
	e, ok := c.load(kind)
	gen := c.gens[kind]
	c.mu.Unlock()

	if ok && !e.stale {
		metrics.CacheHits.WithLabelValues(string(kind)).Inc()
		out <- Result{Items: e.items}
		return out
	}
	metrics.CacheMisses.WithLabelValues(string(kind)).Inc()

	detached := context.WithoutCancel(ctx)
	src := c.group.DoChan(fmt.Sprintf("%s#%d", kind, gen), func() (any, error) {
		items, err := fetch(detached)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = Collection{}
		}
		c.store(kind, gen, items)
		return items, nil
	})

	go func() {
		r := <-src
		items, _ := r.Val.(Collection)
		out <- Result{Items: items, Err: r.Err}
	}()
	return out
}
