package order

import (
	"fmt"

	"github.com/phobologic/declorder/internal/graph"
	"github.com/phobologic/declorder/internal/model"
)

// Canonical is the canonical layout of one file.
type Canonical struct {
	// ByCategory holds each category's canonical order.
	ByCategory [model.NumCategories][]model.Declaration
	// Order is the whole-file order: ByCategory concatenated by rank.
	Order []model.Declaration
}

// Names returns the declaration names of the whole-file order.
func (c *Canonical) Names() []string {
	names := make([]string, len(c.Order))
	for i := range c.Order {
		names[i] = c.Order[i].Name
	}
	return names
}

// CategoryNames returns the canonical order of one category by name.
func (c *Canonical) CategoryNames(cat model.Category) []string {
	decls := c.ByCategory[cat]
	names := make([]string, len(decls))
	for i := range decls {
		names[i] = decls[i].Name
	}
	return names
}

// Assemble computes the canonical order of a file's declarations, given in
// source order. Each category is analyzed and sorted on its own; categories
// that are not dependency sorted keep their source order.
func Assemble(decls []model.Declaration, opts Options) (*Canonical, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var groups [model.NumCategories][]model.Declaration
	for i := range decls {
		cat := decls[i].Category
		if !cat.Valid() {
			return nil, fmt.Errorf("%w: declaration %q has category %d", graph.ErrInvariant, decls[i].Name, int(cat))
		}
		groups[cat] = append(groups[cat], decls[i])
	}

	c := &Canonical{Order: make([]model.Declaration, 0, len(decls))}
	for cat := model.Category(0); cat < model.NumCategories; cat++ {
		group := groups[cat]
		if len(group) == 0 {
			continue
		}
		if !opts.sorted(cat) {
			c.ByCategory[cat] = group
			c.Order = append(c.Order, group...)
			continue
		}

		idx, err := Sort(graph.Analyze(group), opts)
		if err != nil {
			return nil, fmt.Errorf("sorting %s: %w", cat, err)
		}
		sorted := make([]model.Declaration, len(idx))
		for i, j := range idx {
			sorted[i] = group[j]
		}
		c.ByCategory[cat] = sorted
		c.Order = append(c.Order, sorted...)
	}
	return c, nil
}
