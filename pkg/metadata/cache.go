package metadata

import (
	"context"
	"sync"
	"time"

	"github.com/glorpus-work/iafetch/pkg/model"
)

// Store persists metadata beyond the lifetime of a CachedFetcher.
type Store interface {
	Load(identifier string, maxAge time.Duration) (*model.Metadata, bool)
	Save(meta *model.Metadata) error
	Remove(identifier string) error
}

type cacheEntry struct {
	meta    *model.Metadata
	fetched time.Time
}

// CachedFetcher keeps recently fetched items in memory, keyed by identifier.
// A zero TTL keeps entries until they are invalidated.
type CachedFetcher struct {
	source Source
	base   string
	ttl    time.Duration
	store  Store
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// CacheOption configures a CachedFetcher.
type CacheOption func(*CachedFetcher)

// WithStore adds a persistent second level.
func WithStore(s Store) CacheOption {
	return func(c *CachedFetcher) { c.store = s }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(c *CachedFetcher) { c.now = now }
}

// WithCacheBaseURL sets the root used to resolve inputs to cache keys.
func WithCacheBaseURL(u string) CacheOption {
	return func(c *CachedFetcher) { c.base = u }
}

// NewCachedFetcher wraps source.
func NewCachedFetcher(source Source, ttl time.Duration, opts ...CacheOption) *CachedFetcher {
	c := &CachedFetcher{
		source:  source,
		base:    DefaultBaseURL,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
	if f, ok := source.(*Fetcher); ok {
		c.base = f.BaseURL()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchMetadata returns a cached item when it is fresh and fetches it otherwise.
func (c *CachedFetcher) FetchMetadata(ctx context.Context, identifierOrURL string) (*model.Metadata, error) {
	resolved, err := ResolveURL(c.base, identifierOrURL)
	if err != nil {
		return nil, err
	}
	id := resolved.Identifier

	if meta, ok := c.lookup(id); ok {
		return meta, nil
	}
	if c.store != nil {
		if meta, ok := c.store.Load(id, c.ttl); ok {
			c.put(id, meta)
			return meta, nil
		}
	}

	meta, err := c.source.FetchMetadata(ctx, identifierOrURL)
	if err != nil {
		return nil, err
	}
	c.put(id, meta)
	if c.store != nil {
		// A failing second level only costs a refetch next time.
		_ = c.store.Save(meta)
	}
	return meta, nil
}

// Invalidate drops a single identifier.
func (c *CachedFetcher) Invalidate(identifier string) {
	c.mu.Lock()
	delete(c.entries, identifier)
	c.mu.Unlock()
	if c.store != nil {
		_ = c.store.Remove(identifier)
	}
}

// Clear drops every in-memory entry.
func (c *CachedFetcher) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Len returns the number of in-memory entries, fresh or not.
func (c *CachedFetcher) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *CachedFetcher) lookup(id string) (*model.Metadata, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(e.fetched) > c.ttl {
		delete(c.entries, id)
		return nil, false
	}
	return e.meta, true
}

func (c *CachedFetcher) put(id string, meta *model.Metadata) {
	c.mu.Lock()
	c.entries[id] = cacheEntry{meta: meta, fetched: c.now()}
	c.mu.Unlock()
}

var _ Source = (*CachedFetcher)(nil)
