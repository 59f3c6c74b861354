// Package order computes evaluation order for mutually dependent
// declarations. Dependencies are grouped into strongly connected
// components and the components are emitted dependencies-first, with ties
// broken by source position so output is deterministic.
package order

import "sort"

// Graph is a dependency graph over nodes numbered 0..n-1. Node numbers
// follow source order, which is what the tie-breaking rule keys on.
type Graph struct {
	n    int
	adj  [][]int
	seen []map[int]bool
}

// NewGraph creates a graph with n nodes and no edges.
func NewGraph(n int) *Graph {
	return &Graph{
		n:    n,
		adj:  make([][]int, n),
		seen: make([]map[int]bool, n),
	}
}

// Len returns the node count.
func (g *Graph) Len() int { return g.n }

// AddEdge records that from depends on to. Duplicate and out-of-range
// edges are ignored; self-edges are kept, marking a self-recursive node.
func (g *Graph) AddEdge(from, to int) {
	if from < 0 || from >= g.n || to < 0 || to >= g.n {
		return
	}
	if g.seen[from] == nil {
		g.seen[from] = make(map[int]bool)
	}
	if g.seen[from][to] {
		return
	}
	g.seen[from][to] = true
	g.adj[from] = append(g.adj[from], to)
}

// SCCs returns the strongly connected components, each sorted by node
// number. Component order is unspecified; use Sort for a usable schedule.
func (g *Graph) SCCs() [][]int {
	t := &tarjan{
		g:       g,
		index:   make([]int, g.n),
		lowlink: make([]int, g.n),
		onStack: make([]bool, g.n),
	}
	for i := range t.index {
		t.index[i] = -1
	}
	for v := 0; v < g.n; v++ {
		if t.index[v] < 0 {
			t.strongConnect(v)
		}
	}
	for _, c := range t.out {
		sort.Ints(c)
	}
	return t.out
}

// Sort returns the components in dependencies-first order. Components
// with no ordering constraint between them appear by their smallest
// member's source position.
func (g *Graph) Sort() [][]int {
	comps := g.SCCs()

	compOf := make([]int, g.n)
	for ci, c := range comps {
		for _, v := range c {
			compOf[v] = ci
		}
	}

	// Condensation in-degrees: an edge v->w means v depends on w, so in
	// the schedule w's component must come first and v's component keeps
	// a pending count.
	pending := make([]int, len(comps))
	dependents := make([][]int, len(comps))
	edgeSeen := make(map[[2]int]bool)
	for v := 0; v < g.n; v++ {
		for _, w := range g.adj[v] {
			cv, cw := compOf[v], compOf[w]
			if cv == cw {
				continue
			}
			key := [2]int{cv, cw}
			if edgeSeen[key] {
				continue
			}
			edgeSeen[key] = true
			pending[cv]++
			dependents[cw] = append(dependents[cw], cv)
		}
	}

	// Kahn's algorithm with a ready set ordered by smallest member.
	ready := make([]int, 0, len(comps))
	for ci, p := range pending {
		if p == 0 {
			ready = append(ready, ci)
		}
	}
	byFirst := func(a, b int) bool { return comps[a][0] < comps[b][0] }
	sort.Slice(ready, func(i, j int) bool { return byFirst(ready[i], ready[j]) })

	out := make([][]int, 0, len(comps))
	for len(ready) > 0 {
		ci := ready[0]
		ready = ready[1:]
		out = append(out, comps[ci])
		for _, dep := range dependents[ci] {
			pending[dep]--
			if pending[dep] == 0 {
				pos := sort.Search(len(ready), func(i int) bool { return comps[ready[i]][0] > comps[dep][0] })
				ready = append(ready, 0)
				copy(ready[pos+1:], ready[pos:])
				ready[pos] = dep
			}
		}
	}
	return out
}

// Cyclic reports whether node v sits in a component with more than one
// member or depends on itself.
func (g *Graph) Cyclic(v int, comps [][]int) bool {
	for _, c := range comps {
		for _, m := range c {
			if m != v {
				continue
			}
			if len(c) > 1 {
				return true
			}
			return g.seen[v] != nil && g.seen[v][v]
		}
	}
	return false
}

type tarjan struct {
	g       *Graph
	index   []int
	lowlink []int
	onStack []bool
	stack   []int
	next    int
	out     [][]int
}

func (t *tarjan) strongConnect(v int) {
	t.index[v] = t.next
	t.lowlink[v] = t.next
	t.next++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.g.adj[v] {
		if t.index[w] < 0 {
			t.strongConnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] && t.index[w] < t.lowlink[v] {
			t.lowlink[v] = t.index[w]
		}
	}

	if t.lowlink[v] == t.index[v] {
		var comp []int
		for {
			w := t.stack[len(t.stack)-1]
			t.stack = t.stack[:len(t.stack)-1]
			t.onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		t.out = append(t.out, comp)
	}
}
