// Package graph implements the dependency graph engine (spec.md §4.7):
// forward/reverse adjacency over a dense integer file-ID space, cycle
// detection and enumeration, and a per-scope cache facade.
//
// Grounded on the teacher's internal/core/dense_object_id.go dense-ID
// idiom, generalized from its bespoke base-63 symbol codec to plain
// dense uint32 IDs backing github.com/RoaringBitmap/roaring bitsets
// (a dependency agentic-research-mache's internal/graph/sqlite_graph.go
// pulls in for the same compact-adjacency purpose).
package graph

import (
	"sync"

	"github.com/standardbeagle/gildash/internal/types"
)

// Interner assigns a dense, stable uint32 ID to every FileKey it sees,
// so adjacency can be stored as roaring.Bitmap sets instead of
// map[FileKey]struct{} sets.
type Interner struct {
	mu    sync.RWMutex
	byKey map[types.FileKey]uint32
	byID  []types.FileKey
}

// NewInterner returns an empty Interner.
func NewInterner() *Interner {
	return &Interner{byKey: make(map[types.FileKey]uint32)}
}

// Intern returns key's ID, assigning the next free one if key is new.
func (in *Interner) Intern(key types.FileKey) uint32 {
	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.byKey[key]; ok {
		return id
	}
	id := uint32(len(in.byID))
	in.byKey[key] = id
	in.byID = append(in.byID, key)
	return id
}

// ID returns key's ID without assigning one.
func (in *Interner) ID(key types.FileKey) (uint32, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	id, ok := in.byKey[key]
	return id, ok
}

// Lookup returns the FileKey assigned to id.
func (in *Interner) Lookup(id uint32) (types.FileKey, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if int(id) >= len(in.byID) {
		return types.FileKey{}, false
	}
	return in.byID[id], true
}

// Len reports how many keys have been interned.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.byID)
}
