package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/phobologic/declorder/internal/model"
)

func init() {
	Languages["typescript"] = &Language{
		Name:       "typescript",
		Extensions: []string{".ts", ".mts", ".cts"},
		lang:       typescript.GetLanguage(),
		Classify:   ecmaClassify,
	}
	Languages["tsx"] = &Language{
		Name:       "tsx",
		Extensions: []string{".tsx"},
		lang:       tsx.GetLanguage(),
		Classify:   ecmaClassify,
	}
	Languages["javascript"] = &Language{
		Name:       "javascript",
		Extensions: []string{".js", ".mjs", ".cjs", ".jsx"},
		lang:       javascript.GetLanguage(),
		Classify:   ecmaClassify,
	}
}

var ecmaFunctionLike = map[string]bool{
	"function_declaration":           true,
	"function_expression":            true,
	"function":                       true,
	"generator_function_declaration": true,
	"generator_function":             true,
	"arrow_function":                 true,
	"method_definition":              true,
}

// Declarations that carry type parameters but bind nothing else locally.
var ecmaGenericDecl = map[string]bool{
	"class_declaration":          true,
	"class":                      true,
	"abstract_class_declaration": true,
	"interface_declaration":      true,
	"type_alias_declaration":     true,
}

// Block scopes hold let, const, class and function declarations. var
// declarations inside them belong to the enclosing function.
var ecmaBlockScope = map[string]bool{
	"statement_block":  true,
	"for_statement":    true,
	"for_in_statement": true,
	"catch_clause":     true,
	"switch_body":      true,
}

func ecmaRules(opts ClassifyOptions) *scopeRules {
	return &scopeRules{
		opensScope: func(n *sitter.Node) bool {
			return ecmaFunctionLike[n.Type()] || ecmaGenericDecl[n.Type()] || ecmaBlockScope[n.Type()]
		},
		params:   ecmaParams,
		declares: ecmaDeclares,
		hoists:   ecmaHoists,
		function: func(n *sitter.Node) bool { return ecmaFunctionLike[n.Type()] },
		reference: func(n *sitter.Node, source []byte) (string, bool) {
			switch n.Type() {
			case "identifier", "shorthand_property_identifier":
				return NodeText(n, source), true
			case "type_identifier":
				if opts.TypeReferences {
					return NodeText(n, source), true
				}
			}
			return "", false
		},
		skip: func(parent, child *sitter.Node) bool {
			switch parent.Type() {
			case "nested_type_identifier":
				return isField(parent, child, "name")
			case "type_annotation", "type_arguments", "type_parameters", "implements_clause":
				return !opts.TypeReferences
			}
			return false
		},
	}
}

func ecmaParams(n *sitter.Node, source []byte) []string {
	switch n.Type() {
	case "catch_clause":
		if p := n.ChildByFieldName("parameter"); p != nil {
			return ecmaPatternNames(p, source)
		}
		return nil
	case "for_in_statement":
		if !hasChildOfType(n, "const", "let") {
			return nil
		}
		if left := n.ChildByFieldName("left"); left != nil {
			return ecmaPatternNames(left, source)
		}
		return nil
	}

	var names []string
	if tp := n.ChildByFieldName("type_parameters"); tp != nil {
		for i := 0; i < int(tp.NamedChildCount()); i++ {
			p := tp.NamedChild(i)
			if p.Type() != "type_parameter" {
				continue
			}
			if name := p.ChildByFieldName("name"); name != nil {
				names = append(names, NodeText(name, source))
			}
		}
	}
	if !ecmaFunctionLike[n.Type()] {
		return names
	}
	switch n.Type() {
	case "function_expression", "function", "generator_function":
		if name := n.ChildByFieldName("name"); name != nil {
			names = append(names, NodeText(name, source))
		}
	}
	if p := n.ChildByFieldName("parameter"); p != nil {
		names = append(names, ecmaPatternNames(p, source)...)
	}
	if p := n.ChildByFieldName("parameters"); p != nil {
		names = append(names, ecmaPatternNames(p, source)...)
	}
	return names
}

// ecmaDeclares returns the block-scoped names n binds.
func ecmaDeclares(n *sitter.Node, source []byte) []string {
	switch n.Type() {
	case "lexical_declaration":
		return ecmaDeclaratorNames(n, source)
	case "function_declaration", "generator_function_declaration",
		"class_declaration", "abstract_class_declaration", "enum_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			return []string{NodeText(name, source)}
		}
	}
	return nil
}

// ecmaHoists returns the function-scoped names n binds.
func ecmaHoists(n *sitter.Node, source []byte) []string {
	switch n.Type() {
	case "variable_declaration":
		return ecmaDeclaratorNames(n, source)
	case "for_in_statement":
		if !hasChildOfType(n, "var") {
			return nil
		}
		if left := n.ChildByFieldName("left"); left != nil {
			return ecmaPatternNames(left, source)
		}
	}
	return nil
}

func ecmaDeclaratorNames(n *sitter.Node, source []byte) []string {
	var names []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		d := n.NamedChild(i)
		if d.Type() != "variable_declarator" {
			continue
		}
		if name := d.ChildByFieldName("name"); name != nil {
			names = append(names, ecmaPatternNames(name, source)...)
		}
	}
	return names
}

// ecmaPatternNames returns the names bound by a binding pattern, ignoring
// default values and type annotations.
func ecmaPatternNames(n *sitter.Node, source []byte) []string {
	switch n.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		return []string{NodeText(n, source)}
	case "assignment_pattern", "object_assignment_pattern":
		if left := n.ChildByFieldName("left"); left != nil {
			return ecmaPatternNames(left, source)
		}
	case "pair_pattern":
		if v := n.ChildByFieldName("value"); v != nil {
			return ecmaPatternNames(v, source)
		}
	case "required_parameter", "optional_parameter":
		if p := n.ChildByFieldName("pattern"); p != nil {
			return ecmaPatternNames(p, source)
		}
	case "rest_pattern", "object_pattern", "array_pattern", "formal_parameters":
		var names []string
		for i := 0; i < int(n.NamedChildCount()); i++ {
			names = append(names, ecmaPatternNames(n.NamedChild(i), source)...)
		}
		return names
	}
	return nil
}

func hasChildOfType(n *sitter.Node, types ...string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		t := n.Child(i).Type()
		for _, want := range types {
			if t == want {
				return true
			}
		}
	}
	return false
}

// ecmaClassify classifies the top-level statements of a JavaScript or
// TypeScript program.
func ecmaClassify(root *sitter.Node, source []byte, opts ClassifyOptions) []model.Declaration {
	rules := ecmaRules(opts)
	exportedNames := ecmaLocalExports(root, source)
	c := newClassifier(source)

	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		if n.Type() == "comment" {
			c.comment(n)
			continue
		}

		// Overload signatures travel with the implementation that follows.
		if sig := ecmaSignature(n); sig != nil && ecmaIsOverload(root, i, sig, source) {
			c.markStart(n)
			continue
		}

		switch n.Type() {
		case "import_statement", "import_alias":
			c.add(n, ecmaImportNames(n, source), kindImport, false, nil)

		case "export_statement":
			ecmaClassifyExport(c, rules, n, opts)

		default:
			k, names, ok := ecmaDeclKind(n, source, opts)
			if !ok {
				c.other(n)
				continue
			}
			exported := false
			for _, name := range names {
				if exportedNames[name] {
					exported = true
				}
			}
			c.add(n, names, k, exported, collectRefs(rules, n, source))
		}
	}
	return c.decls
}

func ecmaClassifyExport(c *classifier, rules *scopeRules, n *sitter.Node, opts ClassifyOptions) {
	source := c.source
	if src := n.ChildByFieldName("source"); src != nil {
		c.add(n, []string{ecmaExportName(n, source)}, kindReExport, true, nil)
		return
	}

	if decl := n.ChildByFieldName("declaration"); decl != nil {
		k, names, ok := ecmaDeclKind(decl, source, opts)
		if !ok {
			k, names = kindBinding, []string{"default"}
		}
		c.add(n, names, k, true, collectRefs(rules, n, source))
		return
	}

	if value := n.ChildByFieldName("value"); value != nil {
		if value.Type() == "identifier" {
			c.add(n, []string{ecmaExportName(n, source)}, kindReExport, true, nil)
			return
		}
		k := kindBinding
		switch value.Type() {
		case "class":
			k = kindType
		case "function_expression", "function", "generator_function":
			k = kindFunction
		case "arrow_function":
			if opts.FunctionBindings == AsFunction {
				k = kindFunction
			}
		}
		c.add(n, []string{"default"}, k, true, collectRefs(rules, n, source))
		return
	}

	// export { a, b as c };
	c.add(n, []string{ecmaExportName(n, source)}, kindReExport, true, nil)
}

// ecmaDeclKind classifies a declaration node. ok is false for statements
// that declare nothing.
func ecmaDeclKind(n *sitter.Node, source []byte, opts ClassifyOptions) (kind, []string, bool) {
	switch n.Type() {
	case "function_declaration", "generator_function_declaration", "function_signature":
		if name := n.ChildByFieldName("name"); name != nil {
			return kindFunction, []string{NodeText(name, source)}, true
		}
	case "class_declaration", "abstract_class_declaration", "interface_declaration",
		"type_alias_declaration", "enum_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			return kindType, []string{NodeText(name, source)}, true
		}
	case "internal_module", "module":
		if name := n.ChildByFieldName("name"); name != nil {
			return kindType, []string{strings.Trim(NodeText(name, source), `"'`)}, true
		}
	case "ambient_declaration":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			inner := n.NamedChild(i)
			if k, names, ok := ecmaDeclKind(inner, source, opts); ok {
				return k, names, true
			}
		}
		// declare global { ... }
		return kindType, []string{"global"}, true
	case "lexical_declaration", "variable_declaration":
		return ecmaBindingKind(n, source, opts)
	}
	return 0, nil, false
}

func ecmaBindingKind(n *sitter.Node, source []byte, opts ClassifyOptions) (kind, []string, bool) {
	names := ecmaDeclaratorNames(n, source)
	var declarators []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if d := n.NamedChild(i); d.Type() == "variable_declarator" {
			declarators = append(declarators, d)
		}
	}
	if len(names) == 0 {
		return 0, nil, false
	}
	if opts.FunctionBindings == AsFunction && len(declarators) == 1 {
		if v := declarators[0].ChildByFieldName("value"); v != nil {
			switch v.Type() {
			case "arrow_function", "function_expression", "function", "generator_function":
				return kindFunction, names, true
			}
		}
	}
	return kindBinding, names, true
}

// ecmaSignature returns the function signature n holds, directly or
// through an export statement.
func ecmaSignature(n *sitter.Node) *sitter.Node {
	if n.Type() == "export_statement" {
		n = n.ChildByFieldName("declaration")
		if n == nil {
			return nil
		}
	}
	if n.Type() == "function_signature" {
		return n
	}
	return nil
}

// ecmaIsOverload reports whether the signature sig, the top-level statement
// at index i, is followed (possibly through further signatures and
// comments) by an implementation of the same name.
func ecmaIsOverload(root *sitter.Node, i int, sig *sitter.Node, source []byte) bool {
	name := sig.ChildByFieldName("name")
	if name == nil {
		return false
	}
	want := NodeText(name, source)
	for j := i + 1; j < int(root.NamedChildCount()); j++ {
		n := root.NamedChild(j)
		if n.Type() == "comment" || ecmaSignature(n) != nil {
			continue
		}
		if n.Type() == "export_statement" {
			if d := n.ChildByFieldName("declaration"); d != nil {
				n = d
			}
		}
		if n.Type() != "function_declaration" {
			return false
		}
		other := n.ChildByFieldName("name")
		return other != nil && NodeText(other, source) == want
	}
	return false
}

// ecmaLocalExports returns the names exported through export lists and
// default exports of plain identifiers.
func ecmaLocalExports(root *sitter.Node, source []byte) map[string]bool {
	names := make(map[string]bool)
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		if n.Type() != "export_statement" || n.ChildByFieldName("source") != nil {
			continue
		}
		if v := n.ChildByFieldName("value"); v != nil && v.Type() == "identifier" {
			names[NodeText(v, source)] = true
		}
		for j := 0; j < int(n.NamedChildCount()); j++ {
			clause := n.NamedChild(j)
			if clause.Type() != "export_clause" {
				continue
			}
			for k := 0; k < int(clause.NamedChildCount()); k++ {
				spec := clause.NamedChild(k)
				if name := spec.ChildByFieldName("name"); name != nil {
					names[NodeText(name, source)] = true
				}
			}
		}
	}
	return names
}

func ecmaImportNames(n *sitter.Node, source []byte) []string {
	var names []string
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		switch n.Type() {
		case "import_specifier":
			if alias := n.ChildByFieldName("alias"); alias != nil {
				names = append(names, NodeText(alias, source))
			} else if name := n.ChildByFieldName("name"); name != nil {
				names = append(names, NodeText(name, source))
			}
			return
		case "identifier":
			names = append(names, NodeText(n, source))
			return
		case "string":
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	if clause := ecmaImportClause(n); clause != nil {
		visit(clause)
	} else if n.Type() == "import_alias" && n.NamedChildCount() > 0 {
		visit(n.NamedChild(0))
	}
	if len(names) == 0 {
		// Side-effect import: import "./polyfill";
		if src := n.ChildByFieldName("source"); src != nil {
			return []string{strings.Trim(NodeText(src, source), "\"'`")}
		}
		return []string{CollapseWhitespace(NodeText(n, source))}
	}
	return names
}

func ecmaImportClause(n *sitter.Node) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		switch c := n.NamedChild(i); c.Type() {
		case "import_clause", "import_require_clause":
			return c
		}
	}
	return nil
}

// ecmaExportName names a re-export statement by its module or its text.
func ecmaExportName(n *sitter.Node, source []byte) string {
	if src := n.ChildByFieldName("source"); src != nil {
		return strings.Trim(NodeText(src, source), "\"'`")
	}
	return strings.TrimSuffix(CollapseWhitespace(NodeText(n, source)), ";")
}
