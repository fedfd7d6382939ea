package graph

import (
	"fmt"
	"sort"
)

// Component is a strongly connected component. Members are node indices in
// ascending (source) order; a node outside any cycle is a singleton.
type Component struct {
	Members []int
}

// Cyclic reports whether the component is a true cycle.
func (c Component) Cyclic() bool { return len(c.Members) > 1 }

// Components computes the strongly connected components of g with Tarjan's
// algorithm. Roots are visited in source order and edges in reference order,
// so the result is deterministic. Components come out in reverse topological
// order: a component is emitted after every component it depends on.
func (g *Graph) Components() []Component {
	n := len(g.decls)
	index := make([]int, n)
	lowLink := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}
	next := 0
	var stack []int
	var comps []Component

	// frame replaces a recursive call so deep chains cannot overflow the
	// goroutine stack.
	type frame struct {
		node int
		edge int
	}

	for root := 0; root < n; root++ {
		if index[root] >= 0 {
			continue
		}
		calls := []frame{{node: root}}
		index[root], lowLink[root] = next, next
		next++
		stack = append(stack, root)
		onStack[root] = true

		for len(calls) > 0 {
			top := &calls[len(calls)-1]
			v := top.node
			edges := g.deps[v]

			if top.edge < len(edges) {
				w := edges[top.edge].To
				top.edge++
				switch {
				case index[w] < 0:
					index[w], lowLink[w] = next, next
					next++
					stack = append(stack, w)
					onStack[w] = true
					calls = append(calls, frame{node: w})
				case onStack[w]:
					lowLink[v] = min(lowLink[v], index[w])
				}
				continue
			}

			// All edges of v done.
			if lowLink[v] == index[v] {
				var members []int
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					members = append(members, w)
					if w == v {
						break
					}
				}
				sort.Ints(members)
				comps = append(comps, Component{Members: members})
			}
			calls = calls[:len(calls)-1]
			if len(calls) > 0 {
				parent := calls[len(calls)-1].node
				lowLink[parent] = min(lowLink[parent], lowLink[v])
			}
		}
	}
	return comps
}

// Condensation is the DAG obtained by collapsing every component of a graph
// into a single node.
type Condensation struct {
	Components []Component
	// Of maps a graph node to its component index.
	Of []int
	// Edges lists, per component, the distinct components it depends on.
	// Self loops are dropped.
	Edges [][]int
	// Dependents is the inverse of Edges.
	Dependents [][]int
}

// Earliest returns the lowest member index of component c.
func (c *Condensation) Earliest(comp int) int {
	return c.Components[comp].Members[0]
}

// Condense validates g and builds its condensation.
func Condense(g *Graph) (*Condensation, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	comps := g.Components()
	c := &Condensation{
		Components: comps,
		Of:         make([]int, g.Len()),
		Edges:      make([][]int, len(comps)),
		Dependents: make([][]int, len(comps)),
	}
	for i := range c.Of {
		c.Of[i] = -1
	}
	for ci, comp := range comps {
		for _, m := range comp.Members {
			if c.Of[m] >= 0 {
				return nil, fmt.Errorf("%w: node %q in two components", ErrInvariant, g.decls[m].Name)
			}
			c.Of[m] = ci
		}
	}
	for i, ci := range c.Of {
		if ci < 0 {
			return nil, fmt.Errorf("%w: node %q in no component", ErrInvariant, g.decls[i].Name)
		}
	}

	for ci, comp := range comps {
		seen := make(map[int]struct{})
		for _, m := range comp.Members {
			for _, e := range g.deps[m] {
				cj := c.Of[e.To]
				if cj == ci {
					continue
				}
				if _, dup := seen[cj]; dup {
					continue
				}
				seen[cj] = struct{}{}
				c.Edges[ci] = append(c.Edges[ci], cj)
				c.Dependents[cj] = append(c.Dependents[cj], ci)
			}
		}
	}
	return c, nil
}
