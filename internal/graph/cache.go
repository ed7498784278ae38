package graph

import (
	"sync"
	"time"
)

// DefaultTTL is the reader fallback expiry (spec.md §4.7 "reader
// coordinators expire after a TTL (default 15 seconds)").
const DefaultTTL = 15 * time.Second

type entry struct {
	graph        *Graph
	indexVersion int64
	builtAt      time.Time
}

// Cache owns at most one Graph per project scope plus one cross-project
// scope, keyed by a caller-chosen scope string (spec.md §4.7 "Cache
// policy"). Owner coordinators call InvalidateOnIndex after every
// commit; reader coordinators call Valid to decide whether to rebuild,
// using the index-version counter as primary signal and the TTL as a
// fallback ceiling (SPEC_FULL.md §4.7, resolving spec.md §9 Open
// Question (b)).
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
}

// NewCache returns a Cache using DefaultTTL.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*entry), ttl: DefaultTTL, now: time.Now}
}

// Get returns the cached graph for scope if present.
func (c *Cache) Get(scope string) (*Graph, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[scope]
	if !ok {
		return nil, false
	}
	return e.graph, true
}

// Valid reports whether the cached entry for scope is still usable for
// a reader observing indexVersion. Either condition independently
// forces expiry (spec.md §4.7): a version mismatch means the index has
// moved on since this graph was built, so it invalidates regardless of
// age; a matching version is still subject to the TTL as a ceiling on
// how long a reader may trust it.
func (c *Cache) Valid(scope string, indexVersion int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[scope]
	if !ok {
		return false
	}
	if e.indexVersion != indexVersion {
		return false
	}
	return c.now().Sub(e.builtAt) < c.ttl
}

// Store records g as the current graph for scope at indexVersion.
func (c *Cache) Store(scope string, g *Graph, indexVersion int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[scope] = &entry{graph: g, indexVersion: indexVersion, builtAt: c.now()}
}

// InvalidateOnIndex evicts scope's cached graph, forcing the next Get
// to rebuild; called by owner coordinators on every `indexed` event.
func (c *Cache) InvalidateOnIndex(scope string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, scope)
}
