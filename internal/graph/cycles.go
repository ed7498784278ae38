package graph

import (
	"github.com/standardbeagle/gildash/internal/types"
)

// tarjan computes strongly connected components of the forward
// adjacency graph, returned as slices of dense IDs. Grounded on the
// teacher's internal/analysis/dependency_tracker.go traversal idiom
// (visited/stack maps, depth-limited recursion helpers), generalized
// here into a genuine iterative Tarjan pass rather than the teacher's
// plain depth-limited DFS, since spec.md requires the invariant
// hasCycle() ⇔ cyclePaths().length > 0, which plain DFS cycle
// detection alone cannot guarantee to satisfy exactly.
type tarjanState struct {
	index    map[uint32]int
	lowlink  map[uint32]int
	onStack  map[uint32]bool
	stack    []uint32
	counter  int
	sccs     [][]uint32
}

func (g *Graph) tarjanSCCs() [][]uint32 {
	st := &tarjanState{
		index:   make(map[uint32]int),
		lowlink: make(map[uint32]int),
		onStack: make(map[uint32]bool),
	}
	for id := range g.forward {
		if _, visited := st.index[id]; !visited {
			g.strongConnect(id, st)
		}
	}
	return st.sccs
}

// strongConnect is iterative to avoid recursion-depth limits on large graphs.
func (g *Graph) strongConnect(root uint32, st *tarjanState) {
	type frame struct {
		node     uint32
		iter     []uint32
		iterPos  int
	}

	push := func(id uint32) {
		st.index[id] = st.counter
		st.lowlink[id] = st.counter
		st.counter++
		st.stack = append(st.stack, id)
		st.onStack[id] = true
	}

	neighborsOf := func(id uint32) []uint32 {
		bm, ok := g.forward[id]
		if !ok {
			return nil
		}
		out := make([]uint32, 0, bm.GetCardinality())
		it := bm.Iterator()
		for it.HasNext() {
			out = append(out, it.Next())
		}
		return out
	}

	var frames []*frame
	push(root)
	frames = append(frames, &frame{node: root, iter: neighborsOf(root)})

	for len(frames) > 0 {
		top := frames[len(frames)-1]
		if top.iterPos < len(top.iter) {
			w := top.iter[top.iterPos]
			top.iterPos++
			if _, visited := st.index[w]; !visited {
				push(w)
				frames = append(frames, &frame{node: w, iter: neighborsOf(w)})
				continue
			} else if st.onStack[w] {
				if st.index[w] < st.lowlink[top.node] {
					st.lowlink[top.node] = st.index[w]
				}
			}
			continue
		}

		// Done with top.node's neighbors; pop and propagate lowlink.
		frames = frames[:len(frames)-1]
		if len(frames) > 0 {
			parent := frames[len(frames)-1]
			if st.lowlink[top.node] < st.lowlink[parent.node] {
				st.lowlink[parent.node] = st.lowlink[top.node]
			}
		}
		if st.lowlink[top.node] == st.index[top.node] {
			var scc []uint32
			for {
				n := len(st.stack) - 1
				w := st.stack[n]
				st.stack = st.stack[:n]
				st.onStack[w] = false
				scc = append(scc, w)
				if w == top.node {
					break
				}
			}
			st.sccs = append(st.sccs, scc)
		}
	}
}

// HasCycle reports whether any non-trivial SCC (size > 1) exists, or
// any node has a self-loop. Must satisfy hasCycle() ⇔
// cyclePaths().length > 0 (spec.md §4.7).
func (g *Graph) HasCycle() bool {
	for _, scc := range g.tarjanSCCs() {
		if len(scc) > 1 {
			return true
		}
		if len(scc) == 1 && g.selfLoop(scc[0]) {
			return true
		}
	}
	return false
}

func (g *Graph) selfLoop(id uint32) bool {
	bm, ok := g.forward[id]
	return ok && bm.Contains(id)
}

// CycleOptions bounds cyclePaths output (spec.md §4.7 "optionally
// limited by count or length").
type CycleOptions struct {
	MaxCount  int
	MaxLength int
}

// CyclePaths enumerates simple cycles using Johnson's algorithm,
// restricted to each non-trivial SCC (including single-node SCCs with
// a self-loop), per spec.md §4.7.
func (g *Graph) CyclePaths(opts CycleOptions) [][]types.FileKey {
	var out [][]types.FileKey
	for _, scc := range g.tarjanSCCs() {
		if len(scc) == 1 {
			if g.selfLoop(scc[0]) {
				if key, ok := g.interner.Lookup(scc[0]); ok {
					out = append(out, []types.FileKey{key, key})
				}
			}
		} else {
			cycles := dedupeCycles(g.johnsonInSCC(scc, opts))
			out = append(out, cycles...)
		}
		if opts.MaxCount > 0 && len(out) >= opts.MaxCount {
			return out[:opts.MaxCount]
		}
	}
	return out
}

// dedupeCycles collapses rotations of the same simple cycle (Johnson's
// algorithm run from every node in turn reports each cycle once per
// node it passes through) into a single canonical entry, rotated to
// start at its lexicographically smallest FileKey.
func dedupeCycles(cycles [][]types.FileKey) [][]types.FileKey {
	seen := make(map[string]bool, len(cycles))
	var out [][]types.FileKey
	for _, cycle := range cycles {
		if len(cycle) < 2 {
			continue
		}
		body := cycle[:len(cycle)-1] // drop the repeated closing node
		canon := canonicalRotation(body)

		key := ""
		for _, k := range canon {
			key += k.String() + "|"
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, append(append([]types.FileKey{}, canon...), canon[0]))
	}
	return out
}

func canonicalRotation(body []types.FileKey) []types.FileKey {
	minIdx := 0
	for i, k := range body {
		if k.String() < body[minIdx].String() {
			minIdx = i
		}
	}
	out := make([]types.FileKey, 0, len(body))
	out = append(out, body[minIdx:]...)
	out = append(out, body[:minIdx]...)
	return out
}

// johnsonInSCC enumerates simple cycles within one SCC's node set using
// Johnson's blocked-set algorithm.
func (g *Graph) johnsonInSCC(scc []uint32, opts CycleOptions) [][]types.FileKey {
	inSCC := make(map[uint32]bool, len(scc))
	for _, n := range scc {
		inSCC[n] = true
	}

	var result [][]types.FileKey
	blocked := make(map[uint32]bool)
	blockMap := make(map[uint32]map[uint32]bool)
	var stack []uint32

	unblock := func(u uint32) {
		var rec func(uint32)
		rec = func(u uint32) {
			blocked[u] = false
			for w := range blockMap[u] {
				delete(blockMap[u], w)
				if blocked[w] {
					rec(w)
				}
			}
		}
		rec(u)
	}

	neighborsOf := func(id uint32) []uint32 {
		bm, ok := g.forward[id]
		if !ok {
			return nil
		}
		out := make([]uint32, 0, bm.GetCardinality())
		it := bm.Iterator()
		for it.HasNext() {
			n := it.Next()
			if inSCC[n] {
				out = append(out, n)
			}
		}
		return out
	}

	var circuit func(v, start uint32) bool
	circuit = func(v, start uint32) bool {
		found := false
		stack = append(stack, v)
		blocked[v] = true

		if opts.MaxLength > 0 && len(stack) > opts.MaxLength {
			stack = stack[:len(stack)-1]
			blocked[v] = false
			return false
		}

		for _, w := range neighborsOf(v) {
			if w == start {
				path := make([]types.FileKey, 0, len(stack)+1)
				for _, id := range stack {
					if key, ok := g.interner.Lookup(id); ok {
						path = append(path, key)
					}
				}
				if key, ok := g.interner.Lookup(start); ok {
					path = append(path, key)
				}
				result = append(result, path)
				found = true
				if opts.MaxCount > 0 && len(result) >= opts.MaxCount {
					stack = stack[:len(stack)-1]
					return true
				}
			} else if !blocked[w] {
				if circuit(w, start) {
					found = true
					if opts.MaxCount > 0 && len(result) >= opts.MaxCount {
						stack = stack[:len(stack)-1]
						return true
					}
				}
			}
		}

		if found {
			unblock(v)
		} else {
			for _, w := range neighborsOf(v) {
				if blockMap[w] == nil {
					blockMap[w] = make(map[uint32]bool)
				}
				blockMap[w][v] = true
			}
		}
		stack = stack[:len(stack)-1]
		return found
	}

	// Johnson processes nodes in a fixed order, restarting least-node
	// subgraphs; within a single SCC (already strongly connected) this
	// reduces to iterating every node as a start point once, clearing
	// blocked state between starts.
	for _, s := range scc {
		for _, n := range scc {
			blocked[n] = false
			blockMap[n] = make(map[uint32]bool)
		}
		stack = nil
		circuit(s, s)
		if opts.MaxCount > 0 && len(result) >= opts.MaxCount {
			break
		}
	}

	if opts.MaxCount > 0 && len(result) > opts.MaxCount {
		result = result[:opts.MaxCount]
	}
	return result
}
