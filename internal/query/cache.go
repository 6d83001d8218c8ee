// Package query implements a keyed read-through cache with freshness
// windows, bounded retries, invalidation and synchronous patching. It is the
// shared result store behind the task list, single-task and stats queries.
package query

import (
	"context"
	"strings"
	"sync"
	"time"
)

// State is the lifecycle of one cache entry.
// Entries move idle -> loading -> success|failed, and re-enter loading only on
// freshness expiry plus a new read, an explicit refetch, or invalidation by a
// mutation.
type State int

const (
	Idle State = iota
	Loading
	Success
	Failed
)

// Policy controls how a read treats cached data and failures.
type Policy struct {
	// Freshness is how long a fetched result is served without a new
	// network call. Zero means every read refetches.
	Freshness time.Duration

	// Retries is the number of extra attempts after the first failure.
	Retries int

	// RetryOn decides whether a given failure is retried.
	// Nil retries every failure kind.
	RetryOn func(error) bool
}

// FetchFunc loads the value for a key.
type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	state     State
	prev      State
	data      any
	err       error
	fetchedAt time.Time
	gen       uint64
}

// Cache is a mutex-guarded map of keyed results. Multiple keys may be in
// flight concurrently; a superseding fetch for the same key wins over a
// slower one (last-write-wins per key), and a fetch whose context was
// cancelled never stores anything.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

// New creates an empty cache.
func New() *Cache {
	return NewWithClock(time.Now)
}

// NewWithClock creates a cache with an injected clock.
func NewWithClock(now func() time.Time) *Cache {
	return &Cache{entries: make(map[string]*entry), now: now}
}

// Get returns the cached value for key when it is fresh, otherwise fetches
// it (with the policy's retries) and stores the outcome.
func (c *Cache) Get(ctx context.Context, key string, p Policy, fetch FetchFunc) (any, error) {
	return c.get(ctx, key, p, fetch, false)
}

// Refetch bypasses the freshness window and always issues a new fetch.
func (c *Cache) Refetch(ctx context.Context, key string, p Policy, fetch FetchFunc) (any, error) {
	return c.get(ctx, key, p, fetch, true)
}

func (c *Cache) get(ctx context.Context, key string, p Policy, fetch FetchFunc, force bool) (any, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	if !force && e.state == Success && !e.fetchedAt.IsZero() &&
		c.now().Sub(e.fetchedAt) < p.Freshness {
		data := e.data
		c.mu.Unlock()
		return data, nil
	}
	if e.state != Loading {
		e.prev = e.state
	}
	e.state = Loading
	e.gen++
	gen := e.gen
	c.mu.Unlock()

	data, err := fetchRetrying(ctx, p, fetch)

	c.mu.Lock()
	defer c.mu.Unlock()

	// A newer fetch for this key took over; hand our result to the caller
	// without touching the entry.
	if e.gen != gen {
		return data, err
	}

	// A cancelled request must not apply any cache mutation.
	if ctx.Err() != nil {
		e.state = e.prev
		return data, ctx.Err()
	}

	if err != nil {
		e.state = Failed
		e.err = err
		e.fetchedAt = time.Time{}
		return nil, err
	}
	e.state = Success
	e.data = data
	e.err = nil
	e.fetchedAt = c.now()
	return data, nil
}

func fetchRetrying(ctx context.Context, p Policy, fetch FetchFunc) (any, error) {
	var lastErr error
	for attempt := 0; attempt <= p.Retries; attempt++ {
		data, err := fetch(ctx)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if p.RetryOn != nil && !p.RetryOn(err) {
			break
		}
	}
	return nil, lastErr
}

// Invalidate marks every entry whose key has the given prefix as stale.
// Data is kept so patched results stay visible until the next refetch lands.
func (c *Cache) Invalidate(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if strings.HasPrefix(key, prefix) {
			e.fetchedAt = time.Time{}
		}
	}
}

// Patch synchronously rewrites the data of every successful entry whose key
// has the given prefix. fn returns the replacement value and whether to apply
// it. All replacements happen under a single lock acquisition, so two
// mutations' patches never interleave.
func (c *Cache) Patch(prefix string, fn func(key string, data any) (any, bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if e.state != Success || !strings.HasPrefix(key, prefix) {
			continue
		}
		if next, ok := fn(key, e.data); ok {
			e.data = next
		}
	}
}

// Peek returns the held value and state for a key without fetching.
func (c *Cache) Peek(key string) (any, State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, Idle, false
	}
	return e.data, e.state, true
}

// Keys returns every cached key with the given prefix.
func (c *Cache) Keys(prefix string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var keys []string
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys
}
