// Package graph builds the per-category dependency graph of a file's
// declarations and computes its strongly connected components.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/phobologic/declorder/internal/model"
)

// ErrInvariant marks a malformed graph or an algorithm bug. It is never an
// expected outcome and callers should abort the file.
var ErrInvariant = errors.New("dependency graph invariant violated")

// Edge points from a dependent to one of its dependencies.
// Order is the dependent's first-reference index for To.
type Edge struct {
	To    int
	Order int
}

// Graph is an immutable dependency graph over one category's declarations.
// Node identity is the index into the declaration list passed to Analyze.
type Graph struct {
	decls      []model.Declaration
	deps       [][]Edge
	dependents [][]int
}

// Extract returns the references made by d to declarations in names, in
// source order. Shadowed identifiers, unknown names and self references are
// dropped, and only the first occurrence of each target is kept.
func Extract(d *model.Declaration, names map[string]int) []model.Reference {
	if d.Body == nil {
		return nil
	}

	own := make(map[string]struct{}, 1+len(d.Aliases))
	for _, n := range d.Names() {
		own[n] = struct{}{}
	}

	seen := make(map[int]struct{})
	var refs []model.Reference
	for _, id := range d.Body.Identifiers() {
		if id.Shadowed {
			continue
		}
		if _, self := own[id.Name]; self {
			continue
		}
		target, ok := names[id.Name]
		if !ok {
			continue
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		refs = append(refs, model.Reference{From: d.Name, To: id.Name, Order: len(refs)})
	}
	return refs
}

// NameTable maps every name bound by decls to its declaration index.
// When a name is bound more than once, the first declaration wins.
func NameTable(decls []model.Declaration) map[string]int {
	names := make(map[string]int, len(decls))
	for i := range decls {
		for _, n := range decls[i].Names() {
			if _, ok := names[n]; !ok {
				names[n] = i
			}
		}
	}
	return names
}

// Analyze builds the dependency graph for decls, which are expected to share
// a category. Every declaration becomes a node, even without edges.
func Analyze(decls []model.Declaration) *Graph {
	names := NameTable(decls)

	g := &Graph{
		decls:      decls,
		deps:       make([][]Edge, len(decls)),
		dependents: make([][]int, len(decls)),
	}

	for i := range decls {
		for _, ref := range Extract(&decls[i], names) {
			to := names[ref.To]
			g.deps[i] = append(g.deps[i], Edge{To: to, Order: ref.Order})
			g.dependents[to] = append(g.dependents[to], i)
		}
	}
	// dependents were appended in ascending dependent index already.
	return g
}

// New builds a graph directly from an adjacency list. Edges for each node
// must be listed in reference order. It is mostly useful in tests.
func New(decls []model.Declaration, deps [][]int) (*Graph, error) {
	if len(deps) > len(decls) {
		return nil, fmt.Errorf("%w: %d adjacency rows for %d declarations", ErrInvariant, len(deps), len(decls))
	}
	g := &Graph{
		decls:      decls,
		deps:       make([][]Edge, len(decls)),
		dependents: make([][]int, len(decls)),
	}
	for from, row := range deps {
		for order, to := range row {
			if to < 0 || to >= len(decls) {
				return nil, fmt.Errorf("%w: %q depends on missing node %d", ErrInvariant, decls[from].Name, to)
			}
			g.deps[from] = append(g.deps[from], Edge{To: to, Order: order})
			g.dependents[to] = append(g.dependents[to], from)
		}
	}
	for i := range g.dependents {
		sort.Ints(g.dependents[i])
	}
	return g, nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.decls) }

// Decl returns the declaration for node i.
func (g *Graph) Decl(i int) *model.Declaration { return &g.decls[i] }

// Dependencies returns the edges out of node i, ordered by first reference.
func (g *Graph) Dependencies(i int) []Edge { return g.deps[i] }

// Dependents returns the nodes referencing node i, in source order.
func (g *Graph) Dependents(i int) []int { return g.dependents[i] }

// References returns every edge of the graph as named references, grouped by
// dependent in source order.
func (g *Graph) References() []model.Reference {
	var refs []model.Reference
	for i, edges := range g.deps {
		for _, e := range edges {
			refs = append(refs, model.Reference{From: g.decls[i].Name, To: g.decls[e.To].Name, Order: e.Order})
		}
	}
	return refs
}

// Validate checks that every edge points at an existing node and that the
// dependents lists are the exact inverse of the dependency lists.
func (g *Graph) Validate() error {
	n := len(g.decls)
	if len(g.deps) != n || len(g.dependents) != n {
		return fmt.Errorf("%w: %d nodes but %d/%d adjacency rows", ErrInvariant, n, len(g.deps), len(g.dependents))
	}

	type pair struct{ from, to int }
	forward := make(map[pair]int)
	for from, edges := range g.deps {
		for _, e := range edges {
			if e.To < 0 || e.To >= n {
				return fmt.Errorf("%w: %q references missing node %d", ErrInvariant, g.decls[from].Name, e.To)
			}
			forward[pair{from, e.To}]++
		}
	}
	for to, froms := range g.dependents {
		for _, from := range froms {
			if from < 0 || from >= n {
				return fmt.Errorf("%w: %q has missing dependent %d", ErrInvariant, g.decls[to].Name, from)
			}
			p := pair{from, to}
			if forward[p] == 0 {
				return fmt.Errorf("%w: dependent %q of %q has no matching edge", ErrInvariant, g.decls[from].Name, g.decls[to].Name)
			}
			forward[p]--
		}
	}
	for p, left := range forward {
		if left != 0 {
			return fmt.Errorf("%w: edge %q -> %q missing from dependents", ErrInvariant, g.decls[p.from].Name, g.decls[p.to].Name)
		}
	}
	return nil
}
