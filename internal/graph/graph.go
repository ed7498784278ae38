package graph

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/standardbeagle/gildash/internal/types"
)

// FanMetrics reports direct and transitive fan-in/out for one file
// (spec.md §4.7 fanMetrics).
type FanMetrics struct {
	FanIn          int
	FanOut         int
	TransitiveIn   int
	TransitiveOut  int
}

// Graph holds forward and reverse adjacency over a dense file-ID space.
// Self-loops are preserved (spec.md §4.7 build(): "Self-loops are
// preserved (they are cycles)").
type Graph struct {
	interner *Interner
	forward  map[uint32]*roaring.Bitmap
	reverse  map[uint32]*roaring.Bitmap
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		interner: NewInterner(),
		forward:  make(map[uint32]*roaring.Bitmap),
		reverse:  make(map[uint32]*roaring.Bitmap),
	}
}

// Build assembles forward/reverse adjacency from relation rows. Callers
// pass only rows whose Type is in types.GraphRelationTypes (spec.md
// §4.7 build(): imports, type-references, re-exports).
func Build(rows []types.RelationRecord) *Graph {
	g := New()
	for _, rel := range rows {
		g.addEdge(srcKey(rel), dstKey(rel))
	}
	return g
}

func srcKey(rel types.RelationRecord) types.FileKey {
	return types.FileKey{Project: rel.Project, Path: rel.SrcFilePath}
}

func dstKey(rel types.RelationRecord) types.FileKey {
	return types.FileKey{Project: rel.DstProject, Path: rel.DstFilePath}
}

func (g *Graph) addEdge(from, to types.FileKey) {
	fromID := g.interner.Intern(from)
	toID := g.interner.Intern(to)
	g.ensureNode(fromID)
	g.ensureNode(toID)
	g.forward[fromID].Add(toID)
	g.reverse[toID].Add(fromID)
}

func (g *Graph) ensureNode(id uint32) {
	if _, ok := g.forward[id]; !ok {
		g.forward[id] = roaring.New()
	}
	if _, ok := g.reverse[id]; !ok {
		g.reverse[id] = roaring.New()
	}
}

// Dependencies returns f's direct out-neighbors, optionally capped at limit (0 = unlimited).
func (g *Graph) Dependencies(f types.FileKey, limit int) []types.FileKey {
	return g.neighbors(f, g.forward, limit)
}

// Dependents returns f's direct in-neighbors, optionally capped at limit (0 = unlimited).
func (g *Graph) Dependents(f types.FileKey, limit int) []types.FileKey {
	return g.neighbors(f, g.reverse, limit)
}

func (g *Graph) neighbors(f types.FileKey, adjacency map[uint32]*roaring.Bitmap, limit int) []types.FileKey {
	id, ok := g.interner.ID(f)
	if !ok {
		return nil
	}
	bm, ok := adjacency[id]
	if !ok {
		return nil
	}
	out := make([]types.FileKey, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		nid := it.Next()
		if key, ok := g.interner.Lookup(nid); ok {
			out = append(out, key)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// TransitiveDependencies returns every file reachable forward from f, excluding f itself.
func (g *Graph) TransitiveDependencies(f types.FileKey) []types.FileKey {
	return g.transitiveClosure(f, g.forward)
}

// TransitiveDependents returns every file reachable in reverse from f, excluding f itself.
func (g *Graph) TransitiveDependents(f types.FileKey) []types.FileKey {
	return g.transitiveClosure(f, g.reverse)
}

func (g *Graph) transitiveClosure(f types.FileKey, adjacency map[uint32]*roaring.Bitmap) []types.FileKey {
	startID, ok := g.interner.ID(f)
	if !ok {
		return nil
	}
	visited := roaring.New()
	visited.Add(startID)
	stack := []uint32{startID}
	var out []types.FileKey
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		bm, ok := adjacency[cur]
		if !ok {
			continue
		}
		it := bm.Iterator()
		for it.HasNext() {
			next := it.Next()
			if visited.Contains(next) {
				continue
			}
			visited.Add(next)
			if key, ok := g.interner.Lookup(next); ok {
				out = append(out, key)
			}
			stack = append(stack, next)
		}
	}
	return out
}

// Affected returns the union of TransitiveDependents(x) for each x in
// changed, plus changed itself (spec.md §4.7 affected()).
func (g *Graph) Affected(changed []types.FileKey) []types.FileKey {
	seen := make(map[types.FileKey]struct{}, len(changed))
	var out []types.FileKey
	add := func(k types.FileKey) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	for _, c := range changed {
		add(c)
	}
	for _, c := range changed {
		for _, dep := range g.TransitiveDependents(c) {
			add(dep)
		}
	}
	return out
}

// FanMetrics reports direct and transitive fan-in/out for f.
func (g *Graph) FanMetrics(f types.FileKey) FanMetrics {
	return FanMetrics{
		FanIn:         len(g.Dependents(f, 0)),
		FanOut:        len(g.Dependencies(f, 0)),
		TransitiveIn:  len(g.TransitiveDependents(f)),
		TransitiveOut: len(g.TransitiveDependencies(f)),
	}
}

// GetAdjacencyList returns a read-only view of forward adjacency keyed by FileKey.
func (g *Graph) GetAdjacencyList() map[types.FileKey][]types.FileKey {
	out := make(map[types.FileKey][]types.FileKey, len(g.forward))
	for id, bm := range g.forward {
		key, ok := g.interner.Lookup(id)
		if !ok {
			continue
		}
		var deps []types.FileKey
		it := bm.Iterator()
		for it.HasNext() {
			if dk, ok := g.interner.Lookup(it.Next()); ok {
				deps = append(deps, dk)
			}
		}
		out[key] = deps
	}
	return out
}

// PatchFiles removes every outgoing edge (and reverse membership) for
// files in changed ∪ deleted, then reinserts edges for files in changed
// from relationsFor(file). The result must be bit-identical to a fresh
// Build() over the same full relation set (spec.md §4.7 patchFiles).
func (g *Graph) PatchFiles(changed, deleted []types.FileKey, relationsFor func(types.FileKey) []types.RelationRecord) {
	for _, f := range changed {
		g.removeOutgoing(f)
	}
	for _, f := range deleted {
		g.removeOutgoing(f)
		g.removeNode(f)
	}
	for _, f := range changed {
		for _, rel := range relationsFor(f) {
			g.addEdge(srcKey(rel), dstKey(rel))
		}
	}
}

func (g *Graph) removeOutgoing(f types.FileKey) {
	id, ok := g.interner.ID(f)
	if !ok {
		return
	}
	bm, ok := g.forward[id]
	if !ok {
		return
	}
	it := bm.Iterator()
	for it.HasNext() {
		target := it.Next()
		if rev, ok := g.reverse[target]; ok {
			rev.Remove(id)
		}
	}
	g.forward[id] = roaring.New()
}

func (g *Graph) removeNode(f types.FileKey) {
	id, ok := g.interner.ID(f)
	if !ok {
		return
	}
	delete(g.forward, id)
	delete(g.reverse, id)
	for _, bm := range g.forward {
		bm.Remove(id)
	}
	for _, bm := range g.reverse {
		bm.Remove(id)
	}
}
