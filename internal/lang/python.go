package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/phobologic/declorder/internal/model"
)

func init() {
	Languages["python"] = &Language{
		Name:       "python",
		Extensions: []string{".py", ".pyi"},
		lang:       python.GetLanguage(),
		Classify:   pythonClassify,
	}
}

var pythonScopes = map[string]bool{
	"function_definition":      true,
	"lambda":                   true,
	"list_comprehension":       true,
	"set_comprehension":        true,
	"dictionary_comprehension": true,
	"generator_expression":     true,
}

func pythonRules(opts ClassifyOptions) *scopeRules {
	return &scopeRules{
		opensScope: func(n *sitter.Node) bool { return pythonScopes[n.Type()] },
		params:     pythonParams,
		declares:   pythonDeclares,
		outer:      pythonOuter,
		unbinds: func(n *sitter.Node, source []byte) []string {
			if n.Type() != "global_statement" && n.Type() != "nonlocal_statement" {
				return nil
			}
			var names []string
			for i := 0; i < int(n.NamedChildCount()); i++ {
				if id := n.NamedChild(i); id.Type() == "identifier" {
					names = append(names, NodeText(id, source))
				}
			}
			return names
		},
		reference: func(n *sitter.Node, source []byte) (string, bool) {
			if n.Type() == "identifier" {
				return NodeText(n, source), true
			}
			return "", false
		},
		skip: func(parent, child *sitter.Node) bool {
			switch parent.Type() {
			case "attribute":
				return isField(parent, child, "attribute")
			case "keyword_argument":
				return isField(parent, child, "name")
			case "import_from_statement":
				return isField(parent, child, "module_name")
			case "parameters", "lambda_parameters", "list_splat_pattern", "dictionary_splat_pattern":
				return child.Type() == "identifier"
			case "default_parameter":
				return isField(parent, child, "name")
			case "typed_default_parameter":
				return isField(parent, child, "name") || (!opts.TypeReferences && child.Type() == "type")
			case "typed_parameter":
				return child.Type() == "identifier" || (!opts.TypeReferences && child.Type() == "type")
			case "function_definition":
				return !opts.TypeReferences && child.Type() == "type"
			case "assignment":
				return !opts.TypeReferences && isField(parent, child, "type")
			}
			return false
		},
	}
}

// pythonOuter reports whether child of a function or lambda is evaluated
// where the function is defined: parameter defaults and annotations.
func pythonOuter(n, child *sitter.Node) bool {
	return isField(n, child, "parameters") || isField(n, child, "return_type")
}

func pythonParams(n *sitter.Node, source []byte) []string {
	params := n.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var names []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		names = append(names, pythonParamNames(params.NamedChild(i), source)...)
	}
	return names
}

func pythonParamNames(p *sitter.Node, source []byte) []string {
	switch p.Type() {
	case "identifier":
		return []string{NodeText(p, source)}
	case "default_parameter", "typed_default_parameter":
		if name := p.ChildByFieldName("name"); name != nil {
			return pythonParamNames(name, source)
		}
	case "typed_parameter", "list_splat_pattern", "dictionary_splat_pattern":
		if p.NamedChildCount() > 0 {
			return pythonParamNames(p.NamedChild(0), source)
		}
	case "tuple_pattern":
		var names []string
		for i := 0; i < int(p.NamedChildCount()); i++ {
			names = append(names, pythonParamNames(p.NamedChild(i), source)...)
		}
		return names
	}
	return nil
}

func pythonDeclares(n *sitter.Node, source []byte) []string {
	switch n.Type() {
	case "assignment", "augmented_assignment":
		if left := n.ChildByFieldName("left"); left != nil {
			return pythonTargetNames(left, source)
		}
	case "for_statement", "for_in_clause":
		if left := n.ChildByFieldName("left"); left != nil {
			return pythonTargetNames(left, source)
		}
	case "as_pattern":
		if alias := n.ChildByFieldName("alias"); alias != nil {
			return pythonTargetNames(alias, source)
		}
	case "except_clause":
		// except Error as err
		for i := 0; i+1 < int(n.ChildCount()); i++ {
			if n.Child(i).Type() == "as" && n.Child(i+1).Type() == "identifier" {
				return []string{NodeText(n.Child(i+1), source)}
			}
		}
	case "named_expression":
		if name := n.ChildByFieldName("name"); name != nil {
			return []string{NodeText(name, source)}
		}
	case "function_definition", "class_definition":
		if name := n.ChildByFieldName("name"); name != nil {
			return []string{NodeText(name, source)}
		}
	case "import_statement", "import_from_statement":
		return pythonImportNames(n, source)
	}
	return nil
}

// pythonTargetNames returns the plain names assigned by an assignment
// target. Attribute and subscript targets bind nothing.
func pythonTargetNames(n *sitter.Node, source []byte) []string {
	switch n.Type() {
	case "identifier":
		return []string{NodeText(n, source)}
	case "pattern_list", "tuple_pattern", "list_pattern", "expression_list",
		"tuple", "list", "list_splat_pattern", "list_splat", "as_pattern_target":
		var names []string
		for i := 0; i < int(n.NamedChildCount()); i++ {
			names = append(names, pythonTargetNames(n.NamedChild(i), source)...)
		}
		return names
	}
	return nil
}

// pythonImportNames returns the names an import statement binds.
func pythonImportNames(n *sitter.Node, source []byte) []string {
	var names []string
	moduleName := n.ChildByFieldName("module_name")
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if sameNode(child, moduleName) {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			if n.Type() == "import_statement" {
				// import a.b binds a
				names = append(names, NodeText(child.NamedChild(0), source))
			} else {
				names = append(names, NodeText(child, source))
			}
		case "aliased_import":
			if alias := child.ChildByFieldName("alias"); alias != nil {
				names = append(names, NodeText(alias, source))
			}
		}
	}
	return names
}

// pythonClassify classifies the top-level statements of a Python module.
func pythonClassify(root *sitter.Node, source []byte, opts ClassifyOptions) []model.Declaration {
	rules := pythonRules(opts)
	all := pythonDunderAll(root, source)
	exported := func(name string) bool {
		if all != nil {
			return all[name]
		}
		return !strings.HasPrefix(name, "_")
	}

	c := newClassifier(source)
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		switch n.Type() {
		case "comment":
			c.comment(n)

		case "import_statement", "import_from_statement", "future_import_statement":
			names := pythonImportNames(n, source)
			if len(names) == 0 {
				// from x import *
				names = []string{CollapseWhitespace(NodeText(n, source))}
			}
			c.add(n, names, kindImport, false, nil)

		case "class_definition", "function_definition", "decorated_definition":
			def := n
			if n.Type() == "decorated_definition" {
				def = n.ChildByFieldName("definition")
			}
			var name *sitter.Node
			if def != nil {
				name = def.ChildByFieldName("name")
			}
			if name == nil {
				c.other(n)
				continue
			}
			k := kindFunction
			if def.Type() == "class_definition" {
				k = kindType
			}
			text := NodeText(name, source)
			c.add(n, []string{text}, k, exported(text), collectRefs(rules, n, source))

		case "expression_statement":
			k, names, ok := pythonAssignment(n, source, opts)
			if !ok {
				c.other(n)
				continue
			}
			c.add(n, names, k, exported(names[0]), collectRefs(rules, n, source))

		default:
			c.other(n)
		}
	}
	return c.decls
}

// pythonAssignment classifies a module-level assignment statement.
func pythonAssignment(n *sitter.Node, source []byte, opts ClassifyOptions) (kind, []string, bool) {
	if n.NamedChildCount() == 0 {
		return 0, nil, false
	}
	a := n.NamedChild(0)
	if a.Type() != "assignment" {
		return 0, nil, false
	}
	left := a.ChildByFieldName("left")
	if left == nil {
		return 0, nil, false
	}
	names := pythonTargetNames(left, source)
	if len(names) == 0 {
		return 0, nil, false
	}
	if opts.FunctionBindings == AsFunction {
		if right := a.ChildByFieldName("right"); right != nil && right.Type() == "lambda" {
			return kindFunction, names, true
		}
	}
	return kindBinding, names, true
}

// pythonDunderAll returns the names listed in a module-level __all__, or
// nil when the module does not define one.
func pythonDunderAll(root *sitter.Node, source []byte) map[string]bool {
	var all map[string]bool
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		if n.Type() != "expression_statement" || n.NamedChildCount() == 0 {
			continue
		}
		a := n.NamedChild(0)
		if a.Type() != "assignment" {
			continue
		}
		left, right := a.ChildByFieldName("left"), a.ChildByFieldName("right")
		if left == nil || right == nil || NodeText(left, source) != "__all__" {
			continue
		}
		if right.Type() != "list" && right.Type() != "tuple" {
			continue
		}
		all = make(map[string]bool)
		for j := 0; j < int(right.NamedChildCount()); j++ {
			s := right.NamedChild(j)
			if s.Type() == "string" {
				all[strings.Trim(NodeText(s, source), `"'`)] = true
			}
		}
	}
	return all
}
