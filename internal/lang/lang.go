// Package lang provides a language registry mapping file extensions to
// tree-sitter grammars and their declaration classifiers.
package lang

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/declorder/internal/model"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// FunctionBindings decides where a top-level binding whose value is a
// function expression (const f = () => {}) is categorized.
type FunctionBindings string

const (
	// AsBinding keeps such declarations with the other bindings.
	AsBinding FunctionBindings = "binding"
	// AsFunction moves them to the function categories.
	AsFunction FunctionBindings = "function"
)

// ClassifyOptions tunes how declarations are classified and how their
// references are collected.
type ClassifyOptions struct {
	FunctionBindings FunctionBindings
	// TypeReferences makes type-only identifiers count as references.
	TypeReferences bool
}

// DefaultClassifyOptions returns the default classifier behaviour.
func DefaultClassifyOptions() ClassifyOptions {
	return ClassifyOptions{FunctionBindings: AsBinding, TypeReferences: true}
}

// Language holds tree-sitter configuration for a supported language.
type Language struct {
	Name       string
	Extensions []string
	lang       *sitter.Language

	// Classify returns the top-level declarations of a parsed file in
	// source order.
	Classify func(root *sitter.Node, source []byte, opts ClassifyOptions) []model.Declaration
}

// GetLanguage returns the tree-sitter Language pointer.
func (l *Language) GetLanguage() *sitter.Language {
	return l.lang
}

// NewParser creates a fresh tree-sitter parser for this language.
// Each goroutine must use its own parser (not thread-safe).
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// Languages maps language names to their configuration.
// Populated by init() functions in per-language files.
var Languages = map[string]*Language{}

// extensionMap is built lazily after all init() functions have run.
var extensionMap map[string]string
var extensionOnce sync.Once

func getExtensionMap() map[string]string {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]string)
		for _, l := range Languages {
			for _, ext := range l.Extensions {
				extensionMap[ext] = l.Name
			}
		}
	})
	return extensionMap
}

// ForExtension returns the language name for a file extension, or "" if unsupported.
func ForExtension(ext string) string {
	return getExtensionMap()[strings.ToLower(ext)]
}

// Names returns the registered language names, sorted.
func Names() []string {
	names := make([]string, 0, len(Languages))
	for name := range Languages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// sameNode reports whether a and b denote the same syntax node.
func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// isField reports whether child is the node stored under field in parent.
func isField(parent, child *sitter.Node, field string) bool {
	return sameNode(parent.ChildByFieldName(field), child)
}

func categoryFor(k kind, exported bool) model.Category {
	switch k {
	case kindImport:
		return model.Imports
	case kindReExport:
		return model.ReExports
	case kindType:
		if exported {
			return model.ExportedTypes
		}
		return model.PrivateTypes
	case kindBinding:
		if exported {
			return model.ExportedBindings
		}
		return model.PrivateBindings
	default:
		if exported {
			return model.ExportedFunctions
		}
		return model.PrivateFunctions
	}
}

type kind int

const (
	kindImport kind = iota
	kindReExport
	kindType
	kindBinding
	kindFunction
)

// spanBuilder attaches runs of comments to the declaration that follows
// them without a blank line in between.
type spanBuilder struct {
	comments []*sitter.Node
}

func (s *spanBuilder) comment(n *sitter.Node) {
	if len(s.comments) > 0 {
		last := s.comments[len(s.comments)-1]
		if n.StartPoint().Row > last.EndPoint().Row+1 {
			s.comments = s.comments[:0]
		}
	}
	s.comments = append(s.comments, n)
}

// reset drops pending comments, e.g. after a statement that is not a
// declaration.
func (s *spanBuilder) reset() {
	s.comments = s.comments[:0]
}

// start returns the span start for a declaration node and clears the
// pending comments.
func (s *spanBuilder) start(n *sitter.Node) int {
	start := int(n.StartByte())
	if len(s.comments) > 0 {
		last := s.comments[len(s.comments)-1]
		if n.StartPoint().Row <= last.EndPoint().Row+1 && last.EndPoint().Row < n.StartPoint().Row {
			start = int(s.comments[0].StartByte())
		}
	}
	s.reset()
	return start
}

func newDeclaration(n *sitter.Node, start int, names []string, k kind, exported bool, body model.IdentList) model.Declaration {
	d := model.Declaration{
		Name:     names[0],
		Category: categoryFor(k, exported),
		Exported: exported,
		Line:     int(n.StartPoint().Row) + 1,
		Column:   int(n.StartPoint().Column) + 1,
		Start:    start,
		End:      int(n.EndByte()),
		Body:     body,
	}
	if len(names) > 1 {
		d.Aliases = names[1:]
	}
	return d
}
