// Package model defines core data structures for declorder.
package model

import (
	"fmt"
	"strings"
)

// Category is the fixed rank of a top-level declaration. Lower ranks come
// first in a canonical file.
type Category int

const (
	Imports Category = iota
	ReExports
	ExportedTypes
	PrivateTypes
	ExportedBindings
	PrivateBindings
	ExportedFunctions
	PrivateFunctions
)

// NumCategories is the number of fixed categories.
const NumCategories = 8

var categoryNames = [NumCategories]string{
	"imports",
	"re-exports",
	"exported-types",
	"private-types",
	"exported-bindings",
	"private-bindings",
	"exported-functions",
	"private-functions",
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// Valid reports whether c is one of the eight fixed categories.
func (c Category) Valid() bool {
	return c >= 0 && c < NumCategories
}

// ParseCategory maps a category name (as printed by String) to its rank.
// Underscores and case are ignored.
func ParseCategory(s string) (Category, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", "-"))
	for i, name := range categoryNames {
		if name == norm {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

// Ident is one identifier occurrence inside a declaration body.
// Shadowed is set when a local binding of the same name is in scope.
type Ident struct {
	Name     string
	Shadowed bool
}

// Body enumerates, in source order, the identifiers a declaration references.
type Body interface {
	Identifiers() []Ident
}

// IdentList is a Body backed by an already-collected identifier slice.
type IdentList []Ident

// Identifiers implements Body.
func (l IdentList) Identifiers() []Ident { return l }

// Declaration is one top-level construct in a file.
type Declaration struct {
	Name     string
	Aliases  []string // further names bound by the same construct
	Category Category
	Exported bool
	Line     int // 1-based
	Column   int // 1-based
	Start    int // byte offset of the span, attached comments included
	End      int
	Body     Body
}

// Names returns Name followed by Aliases.
func (d *Declaration) Names() []string {
	if len(d.Aliases) == 0 {
		return []string{d.Name}
	}
	names := make([]string, 0, 1+len(d.Aliases))
	names = append(names, d.Name)
	return append(names, d.Aliases...)
}

// Reference is the first occurrence of To inside the body of From.
// Order is its 0-based index among the references retained for From.
type Reference struct {
	From  string
	To    string
	Order int
}

// Reason explains why a declaration is out of place.
type Reason string

const (
	ReasonCategory   Reason = "category"
	ReasonDependency Reason = "dependency"
)

// Violation reports a declaration found at a position other than its
// canonical one.
type Violation struct {
	File     string
	Line     int
	Name     string
	Category Category
	Reason   Reason
	Expected int    // canonical position, 0-based
	Actual   int    // position in the file, 0-based
	Before   string // declaration currently occupying Expected
}

// Message renders the violation for humans.
func (v *Violation) Message() string {
	switch v.Reason {
	case ReasonCategory:
		return fmt.Sprintf("%s %q should come before %q", strings.ReplaceAll(v.Category.String(), "-", " "), v.Name, v.Before)
	default:
		return fmt.Sprintf("%q should come before %q (dependency order)", v.Name, v.Before)
	}
}

// FileReport holds the result of checking one file.
type FileReport struct {
	Path         string
	Language     string
	Declarations int
	Violations   []Violation
}

// Report is the complete result of a run, ready for serialization.
type Report struct {
	Root  string
	Files []FileReport
}

// ViolationCount returns the total number of violations across all files.
func (r *Report) ViolationCount() int {
	n := 0
	for i := range r.Files {
		n += len(r.Files[i].Violations)
	}
	return n
}
