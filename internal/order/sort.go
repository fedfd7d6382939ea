// Package order turns dependency graphs into canonical declaration orders.
//
// Within a category every dependent precedes the declarations it depends on.
// Cycles are collapsed first and laid out by the configured fallback. The
// placement walk is a Kahn traversal of the condensed graph in which a
// component becomes ready once its last dependent has been placed, keyed by
// the output position of that dependent and the reference order it used.
// A component with several dependents is placed as soon as the last of them
// is, ahead of everything else waiting. Declarations nothing depends on keep
// their source order.
package order

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/phobologic/declorder/internal/graph"
)

// Sort returns the canonical order of g's nodes as node indices.
func Sort(g *graph.Graph, opts Options) ([]int, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	c, err := graph.Condense(g)
	if err != nil {
		return nil, err
	}

	n := len(c.Components)
	remaining := make([]int, n)
	q := &readyQueue{}
	// shared holds components with several dependents whose last dependent
	// was just placed. They go before anything in q.
	shared := &readyQueue{}
	for ci := range c.Components {
		remaining[ci] = len(c.Dependents[ci])
		if remaining[ci] == 0 {
			heap.Push(q, readyItem{comp: ci, release: -1, tie: tieKey(g, c, ci, opts.TieBreak)})
		}
	}

	pos := make([]int, g.Len())
	for i := range pos {
		pos[i] = -1
	}
	out := make([]int, 0, g.Len())

	for q.Len() > 0 || shared.Len() > 0 {
		var it readyItem
		if shared.Len() > 0 {
			it = heap.Pop(shared).(readyItem)
		} else {
			it = heap.Pop(q).(readyItem)
		}
		for _, m := range expand(g, c.Components[it.comp], opts.CycleFallback) {
			if pos[m] >= 0 {
				return nil, fmt.Errorf("%w: %q placed twice", graph.ErrInvariant, g.Decl(m).Name)
			}
			pos[m] = len(out)
			out = append(out, m)
		}

		// The earliest placed member edge into each dependency decides
		// where that dependency is anchored.
		anchors := make(map[int]readyItem)
		for _, m := range c.Components[it.comp].Members {
			for _, e := range g.Dependencies(m) {
				cj := c.Of[e.To]
				if cj == it.comp {
					continue
				}
				cand := readyItem{comp: cj, release: pos[m], order: e.Order}
				if prev, ok := anchors[cj]; !ok || cand.before(prev) {
					anchors[cj] = cand
				}
			}
		}
		for _, cj := range c.Edges[it.comp] {
			remaining[cj]--
			if remaining[cj] < 0 {
				return nil, fmt.Errorf("%w: component of %q released twice", graph.ErrInvariant, g.Decl(c.Earliest(cj)).Name)
			}
			if remaining[cj] == 0 {
				a := anchors[cj]
				a.tie = tieKey(g, c, cj, opts.TieBreak)
				if len(c.Dependents[cj]) > 1 {
					heap.Push(shared, a)
				} else {
					heap.Push(q, a)
				}
			}
		}
	}

	if len(out) != g.Len() {
		return nil, fmt.Errorf("%w: condensation is not acyclic (%d of %d placed)", graph.ErrInvariant, len(out), g.Len())
	}
	return out, nil
}

// expand lays out the members of one component.
func expand(g *graph.Graph, comp graph.Component, fallback CycleFallback) []int {
	members := append([]int(nil), comp.Members...)
	if !comp.Cyclic() || fallback == CycleOriginal {
		return members
	}
	sort.SliceStable(members, func(i, j int) bool {
		return g.Decl(members[i]).Name < g.Decl(members[j]).Name
	})
	return members
}

func tieKey(g *graph.Graph, c *graph.Condensation, comp int, tb TieBreak) tie {
	t := tie{index: c.Earliest(comp)}
	if tb == TieAlphabetical {
		t.name = g.Decl(t.index).Name
		for _, m := range c.Components[comp].Members {
			if name := g.Decl(m).Name; name < t.name {
				t.name = name
			}
		}
	}
	return t
}

type tie struct {
	name  string // empty unless ordering alphabetically
	index int
}

// readyItem is a component whose dependents have all been placed.
type readyItem struct {
	comp    int
	release int // output position of the releasing member, -1 for roots
	order   int // that member's first-reference index for this component
	tie     tie
}

func (a readyItem) before(b readyItem) bool {
	if a.release != b.release {
		return a.release < b.release
	}
	if a.order != b.order {
		return a.order < b.order
	}
	if a.tie.name != b.tie.name {
		return a.tie.name < b.tie.name
	}
	return a.tie.index < b.tie.index
}

type readyQueue []readyItem

func (q readyQueue) Len() int           { return len(q) }
func (q readyQueue) Less(i, j int) bool { return q[i].before(q[j]) }
func (q readyQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *readyQueue) Push(x any)        { *q = append(*q, x.(readyItem)) }
func (q *readyQueue) Pop() any {
	old := *q
	it := old[len(old)-1]
	*q = old[:len(old)-1]
	return it
}
