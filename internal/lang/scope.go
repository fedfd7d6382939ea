package lang

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/declorder/internal/model"
)

// scopeRules describe how a grammar binds and references names.
type scopeRules struct {
	// opensScope reports whether n introduces a local scope.
	opensScope func(n *sitter.Node) bool
	// params returns the names bound inside the scope n opens by n itself:
	// parameters, type parameters and the name of a named function
	// expression.
	params func(n *sitter.Node, source []byte) []string
	// declares returns the names n binds in the nearest enclosing scope.
	declares func(n *sitter.Node, source []byte) []string
	// hoists returns the names n binds in the nearest enclosing function
	// scope, skipping any block scopes in between (var in JavaScript).
	hoists func(n *sitter.Node, source []byte) []string
	// function reports whether the scope n opens receives hoisted names.
	function func(n *sitter.Node) bool
	// outer reports whether child of the scope-opening node n is evaluated
	// in the enclosing scope (Python parameter defaults and annotations).
	outer func(n, child *sitter.Node) bool
	// unbinds returns names n explicitly marks as non-local.
	unbinds func(n *sitter.Node, source []byte) []string
	// reference returns the referenced name if n is a reference leaf.
	reference func(n *sitter.Node, source []byte) (string, bool)
	// skip reports whether child of parent can never hold a reference.
	skip func(parent, child *sitter.Node) bool
}

// refWalker collects identifier references in source order, depth first,
// marking those shadowed by a local binding.
type refWalker struct {
	rules  *scopeRules
	source []byte
	scopes []map[string]struct{}
	out    model.IdentList
}

// collectRefs walks the declaration node n.
func collectRefs(rules *scopeRules, n *sitter.Node, source []byte) model.IdentList {
	w := &refWalker{rules: rules, source: source}
	w.walk(n)
	return w.out
}

func (w *refWalker) walk(n *sitter.Node) {
	if name, ok := w.rules.reference(n, w.source); ok {
		w.out = append(w.out, model.Ident{Name: name, Shadowed: w.shadowed(name)})
		return
	}

	var inner map[string]struct{}
	opens := w.rules.opensScope(n)
	if opens {
		inner = w.scopeNames(n)
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil || w.rules.skip(n, child) {
			continue
		}
		if !opens || (w.rules.outer != nil && w.rules.outer(n, child)) {
			w.walk(child)
			continue
		}
		w.scopes = append(w.scopes, inner)
		w.walk(child)
		w.scopes = w.scopes[:len(w.scopes)-1]
	}
}

func (w *refWalker) shadowed(name string) bool {
	for i := len(w.scopes) - 1; i >= 0; i-- {
		if _, ok := w.scopes[i][name]; ok {
			return true
		}
	}
	return false
}

// scopeNames returns every name bound in the scope opened by n. Bindings
// are collected across the whole scope without crossing nested scopes, so a
// local declared anywhere in a block shadows the whole block. A function
// scope also collects hoisted names from the blocks nested inside it.
func (w *refWalker) scopeNames(n *sitter.Node) map[string]struct{} {
	names := make(map[string]struct{})
	for _, p := range w.rules.params(n, w.source) {
		names[p] = struct{}{}
	}
	hoisting := w.rules.hoists != nil && w.rules.function(n)

	var unbound []string
	var collect func(parent *sitter.Node, lexical bool)
	collect = func(parent *sitter.Node, lexical bool) {
		for i := 0; i < int(parent.NamedChildCount()); i++ {
			child := parent.NamedChild(i)
			if child == nil {
				continue
			}
			if lexical {
				for _, name := range w.rules.declares(child, w.source) {
					names[name] = struct{}{}
				}
				if w.rules.unbinds != nil {
					unbound = append(unbound, w.rules.unbinds(child, w.source)...)
				}
			}
			if hoisting {
				for _, name := range w.rules.hoists(child, w.source) {
					names[name] = struct{}{}
				}
			}
			if w.rules.opensScope(child) {
				if hoisting && !w.rules.function(child) {
					collect(child, false)
				}
				continue
			}
			collect(child, lexical)
		}
	}
	collect(n, true)

	for _, name := range unbound {
		delete(names, name)
	}
	return names
}
