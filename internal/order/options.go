package order

import (
	"fmt"

	"github.com/phobologic/declorder/internal/model"
)

// CycleFallback decides how the members of a dependency cycle are laid out.
type CycleFallback string

const (
	// CycleAlphabetical sorts cycle members by name.
	CycleAlphabetical CycleFallback = "alphabetical"
	// CycleOriginal keeps cycle members in source order.
	CycleOriginal CycleFallback = "original"
)

// TieBreak decides the order of declarations with no constraint between
// them and no reference-order hint, i.e. declarations nothing depends on.
type TieBreak string

const (
	// TieSource keeps unconstrained declarations in source order.
	TieSource TieBreak = "source"
	// TieAlphabetical orders unconstrained declarations by name.
	TieAlphabetical TieBreak = "alphabetical"
)

// Options tunes the sorter. The zero value is the default behaviour.
type Options struct {
	CycleFallback CycleFallback
	TieBreak      TieBreak
	// Unsorted lists categories kept in source order instead of being
	// dependency sorted. Imports and re-exports are never sorted.
	Unsorted map[model.Category]bool
}

// DefaultOptions returns the default sorter options.
func DefaultOptions() Options {
	return Options{CycleFallback: CycleAlphabetical, TieBreak: TieSource}
}

// Validate reports unknown option values.
func (o Options) Validate() error {
	switch o.CycleFallback {
	case "", CycleAlphabetical, CycleOriginal:
	default:
		return fmt.Errorf("unknown cycle fallback %q (want %q or %q)", o.CycleFallback, CycleAlphabetical, CycleOriginal)
	}
	switch o.TieBreak {
	case "", TieSource, TieAlphabetical:
	default:
		return fmt.Errorf("unknown tie-break %q (want %q or %q)", o.TieBreak, TieSource, TieAlphabetical)
	}
	for c := range o.Unsorted {
		if !c.Valid() {
			return fmt.Errorf("unknown category %d in unsorted set", int(c))
		}
	}
	return nil
}

// sorted reports whether category c is dependency sorted under o.
func (o Options) sorted(c model.Category) bool {
	if c == model.Imports || c == model.ReExports {
		return false
	}
	return !o.Unsorted[c]
}
