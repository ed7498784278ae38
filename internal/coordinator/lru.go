// Package coordinator implements the index coordinator (spec.md §4.6):
// project discovery, the two-pass full/incremental indexing pipeline,
// and the event stream the dependency-graph cache and watcher loop
// subscribe to.
package coordinator

import (
	"container/list"
	"sync"

	"github.com/standardbeagle/gildash/internal/extract"
)

// astCacheEntry is the value stored at each LRU node.
type astCacheEntry struct {
	key string
	ast extract.AST
}

// ASTCache is a small hand-rolled doubly-linked-list + map LRU caching
// parsed ASTs across Pass 1 and Pass 2 of one indexing run (spec.md
// §4.6 "stash the parsed AST in an LRU cache, capacity configurable,
// default 500"). No generic off-the-shelf LRU dependency appears
// anywhere in the example pack, so this is hand-rolled in the
// teacher's own internal/cache idiom (fixed-capacity map + eviction)
// rather than imported.
type ASTCache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	index    map[string]*list.Element
}

// NewASTCache returns an ASTCache with the given capacity. capacity<=0
// defaults to 500 (spec.md §4.6).
func NewASTCache(capacity int) *ASTCache {
	if capacity <= 0 {
		capacity = 500
	}
	return &ASTCache{
		capacity: capacity,
		ll:       list.New(),
		index:    make(map[string]*list.Element, capacity),
	}
}

// Put stores ast under key "<project>::<path>", evicting the least
// recently used entry if the cache is at capacity.
func (c *ASTCache) Put(key string, ast extract.AST) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		el.Value.(*astCacheEntry).ast = ast
		c.ll.MoveToFront(el)
		return
	}

	el := c.ll.PushFront(&astCacheEntry{key: key, ast: ast})
	c.index[key] = el

	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.index, oldest.Value.(*astCacheEntry).key)
		}
	}
}

// Get returns the cached AST for key, if present, marking it most
// recently used.
func (c *ASTCache) Get(key string) (extract.AST, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*astCacheEntry).ast, true
}

// Delete evicts key, if present.
func (c *ASTCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.ll.Remove(el)
		delete(c.index, key)
	}
}

// Len reports the number of entries currently cached.
func (c *ASTCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
