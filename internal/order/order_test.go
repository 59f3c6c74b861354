package order

import (
	"reflect"
	"testing"
)

func TestSort_Linear(t *testing.T) {
	// 0 depends on 1, 1 depends on 2: schedule is 2, 1, 0.
	g := NewGraph(3)
	g.AddEdge(0, 1)
	g.AddEdge(1, 2)

	got := g.Sort()
	want := [][]int{{2}, {1}, {0}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Sort() = %v, want %v", got, want)
	}
}

func TestSort_IndependentNodesKeepSourceOrder(t *testing.T) {
	g := NewGraph(4)
	g.AddEdge(3, 1)

	got := g.Sort()
	want := [][]int{{0}, {1}, {2}, {3}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Sort() = %v, want %v", got, want)
	}
}

func TestSort_CycleFormsOneComponent(t *testing.T) {
	// 1 and 2 are mutually recursive; 0 depends on the pair, 3 stands
	// alone before it in source order.
	g := NewGraph(4)
	g.AddEdge(1, 2)
	g.AddEdge(2, 1)
	g.AddEdge(0, 1)

	got := g.Sort()
	want := [][]int{{1, 2}, {0}, {3}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Sort() = %v, want %v", got, want)
	}
}

func TestSort_DeterministicUnderEdgeInsertionOrder(t *testing.T) {
	build := func(edges [][2]int) [][]int {
		g := NewGraph(5)
		for _, e := range edges {
			g.AddEdge(e[0], e[1])
		}
		return g.Sort()
	}

	edges := [][2]int{{0, 4}, {1, 4}, {2, 4}, {3, 4}}
	first := build(edges)
	reversed := [][2]int{{3, 4}, {2, 4}, {1, 4}, {0, 4}}
	second := build(reversed)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("schedule depends on edge insertion order: %v vs %v", first, second)
	}
	want := [][]int{{4}, {0}, {1}, {2}, {3}}
	if !reflect.DeepEqual(first, want) {
		t.Fatalf("Sort() = %v, want %v", first, want)
	}
}

func TestCyclic(t *testing.T) {
	g := NewGraph(3)
	g.AddEdge(0, 0)
	g.AddEdge(1, 2)
	g.AddEdge(2, 1)

	comps := g.SCCs()
	if !g.Cyclic(0, comps) {
		t.Error("self-edge should report cyclic")
	}
	if !g.Cyclic(1, comps) || !g.Cyclic(2, comps) {
		t.Error("two-node cycle should report cyclic")
	}

	h := NewGraph(2)
	h.AddEdge(0, 1)
	hc := h.SCCs()
	if h.Cyclic(0, hc) || h.Cyclic(1, hc) {
		t.Error("acyclic nodes reported cyclic")
	}
}

func TestSort_DuplicateAndOutOfRangeEdgesIgnored(t *testing.T) {
	g := NewGraph(2)
	g.AddEdge(0, 1)
	g.AddEdge(0, 1)
	g.AddEdge(0, 5)
	g.AddEdge(-1, 0)

	got := g.Sort()
	want := [][]int{{1}, {0}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Sort() = %v, want %v", got, want)
	}
}
