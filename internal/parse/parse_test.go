package parse

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/phobologic/declorder/internal/lang"
	"github.com/phobologic/declorder/internal/model"
	"github.com/phobologic/declorder/internal/order"
)

func setup(t *testing.T, langName string, opts lang.ClassifyOptions) func(source string) []model.Declaration {
	t.Helper()
	l := lang.Languages[langName]
	if l == nil {
		t.Fatalf("language %q not registered", langName)
	}
	return func(source string) []model.Declaration {
		t.Helper()
		decls, err := Declarations(context.Background(), l, l.NewParser(), []byte(source), opts)
		if err != nil {
			t.Fatalf("Declarations: %v", err)
		}
		return decls
	}
}

func find(t *testing.T, decls []model.Declaration, name string) model.Declaration {
	t.Helper()
	for _, d := range decls {
		if d.Name == name {
			return d
		}
	}
	t.Fatalf("declaration %q not found in %v", name, names(decls))
	return model.Declaration{}
}

func names(decls []model.Declaration) []string {
	out := make([]string, len(decls))
	for i := range decls {
		out[i] = decls[i].Name
	}
	return out
}

func refs(d model.Declaration) map[string]bool {
	// name -> shadowed, for the first occurrence only
	out := make(map[string]bool)
	for _, id := range d.Body.Identifiers() {
		if _, ok := out[id.Name]; !ok {
			out[id.Name] = id.Shadowed
		}
	}
	return out
}

// uses reports whether d has an unshadowed reference to name anywhere in
// its body.
func uses(d model.Declaration, name string) bool {
	for _, id := range d.Body.Identifiers() {
		if id.Name == name && !id.Shadowed {
			return true
		}
	}
	return false
}

// --- TypeScript tests ---

const tsSource = `import { readFile } from "fs";
import * as path from "path";
export * from "./types";
export { helper as h } from "./util";

// Config holds settings.
export interface Config { root: Root }
interface Root { dir: string }

export const VERSION = "1.0";
const cache = new Map();

export function main(cfg: Config) {
  const data = fetchData(cfg);
  return render(data);
}

function render(data) { return format(data); }
function fetchData(cfg) { return readFile(cfg.root.dir); }
function format(render) { return render.toString(); }
`

func TestTypeScriptCategories(t *testing.T) {
	t.Parallel()
	extract := setup(t, "typescript", lang.DefaultClassifyOptions())

	decls := extract(tsSource)
	want := []struct {
		name string
		cat  model.Category
	}{
		{"readFile", model.Imports},
		{"path", model.Imports},
		{"./types", model.ReExports},
		{"./util", model.ReExports},
		{"Config", model.ExportedTypes},
		{"Root", model.PrivateTypes},
		{"VERSION", model.ExportedBindings},
		{"cache", model.PrivateBindings},
		{"main", model.ExportedFunctions},
		{"render", model.PrivateFunctions},
		{"fetchData", model.PrivateFunctions},
		{"format", model.PrivateFunctions},
	}
	if len(decls) != len(want) {
		t.Fatalf("got %d declarations %v, want %d", len(decls), names(decls), len(want))
	}
	for i, w := range want {
		if decls[i].Name != w.name || decls[i].Category != w.cat {
			t.Errorf("decl %d = %s/%s, want %s/%s", i, decls[i].Name, decls[i].Category, w.name, w.cat)
		}
	}
}

func TestTypeScriptPositionsAndComments(t *testing.T) {
	t.Parallel()
	extract := setup(t, "typescript", lang.DefaultClassifyOptions())

	decls := extract(tsSource)
	cfg := find(t, decls, "Config")
	if !strings.HasPrefix(tsSource[cfg.Start:cfg.End], "// Config holds settings.\nexport interface Config") {
		t.Errorf("Config span = %q", tsSource[cfg.Start:cfg.End])
	}
	if cfg.Line != 7 || cfg.Column != 1 {
		t.Errorf("Config at %d:%d, want 7:1", cfg.Line, cfg.Column)
	}
	if !cfg.Exported {
		t.Error("Config should be exported")
	}

	render := find(t, decls, "render")
	if got := tsSource[render.Start:render.End]; got != "function render(data) { return format(data); }" {
		t.Errorf("render span = %q", got)
	}
}

func TestTypeScriptReferences(t *testing.T) {
	t.Parallel()
	extract := setup(t, "typescript", lang.DefaultClassifyOptions())

	decls := extract(tsSource)

	main := refs(find(t, decls, "main"))
	for _, name := range []string{"fetchData", "render", "Config"} {
		if shadowed, ok := main[name]; !ok || shadowed {
			t.Errorf("main: %s should be an unshadowed reference (%v, %v)", name, ok, shadowed)
		}
	}
	for _, name := range []string{"cfg", "data"} {
		if shadowed, ok := main[name]; !ok || !shadowed {
			t.Errorf("main: %s should be shadowed (%v, %v)", name, ok, shadowed)
		}
	}

	format := refs(find(t, decls, "format"))
	if !format["render"] {
		t.Error("format: parameter render should shadow the top-level function")
	}
	if _, ok := format["toString"]; ok {
		t.Error("format: property names are not references")
	}

	iface := refs(find(t, decls, "Config"))
	if _, ok := iface["Root"]; !ok {
		t.Error("Config: type reference to Root missing")
	}
}

func TestTypeScriptTypeReferencesDisabled(t *testing.T) {
	t.Parallel()
	opts := lang.DefaultClassifyOptions()
	opts.TypeReferences = false
	extract := setup(t, "typescript", opts)

	decls := extract("type A = B;\ntype B = string;\n")
	if got := refs(find(t, decls, "A")); len(got) != 0 {
		t.Errorf("A refs = %v, want none", got)
	}
}

func TestTypeScriptOverloadsMerge(t *testing.T) {
	t.Parallel()
	extract := setup(t, "typescript", lang.DefaultClassifyOptions())

	source := `export function parse(x: string): number;
export function parse(x: number): number;
export function parse(x: any): number { return 1; }
`
	decls := extract(source)
	if len(decls) != 1 {
		t.Fatalf("expected 1 declaration, got %v", names(decls))
	}
	if decls[0].Start != 0 || decls[0].Line != 3 {
		t.Errorf("parse span starts at %d, line %d", decls[0].Start, decls[0].Line)
	}
	if decls[0].Category != model.ExportedFunctions {
		t.Errorf("category = %s", decls[0].Category)
	}
}

func TestTypeScriptMultipleDeclarators(t *testing.T) {
	t.Parallel()
	extract := setup(t, "typescript", lang.DefaultClassifyOptions())

	decls := extract("const a = 1, { b, c: d } = obj;\n")
	if len(decls) != 1 {
		t.Fatalf("expected 1 declaration, got %v", names(decls))
	}
	if decls[0].Name != "a" || !slices.Equal(decls[0].Aliases, []string{"b", "d"}) {
		t.Errorf("names = %v", decls[0].Names())
	}
}

func TestTypeScriptTrailingComment(t *testing.T) {
	t.Parallel()
	extract := setup(t, "typescript", lang.DefaultClassifyOptions())

	source := "const a = 1; // one\nconst b = 2;\n"
	decls := extract(source)
	if len(decls) != 2 {
		t.Fatalf("expected 2 declarations, got %v", names(decls))
	}
	if got := source[decls[0].Start:decls[0].End]; got != "const a = 1; // one" {
		t.Errorf("a span = %q", got)
	}
	if decls[1].Start != strings.Index(source, "const b") {
		t.Errorf("b span starts at %d", decls[1].Start)
	}
}

// --- JavaScript tests ---

func TestJavaScriptFunctionBindings(t *testing.T) {
	t.Parallel()

	source := "const handler = () => helper();\nfunction helper() {}\n"

	asBinding := setup(t, "javascript", lang.DefaultClassifyOptions())(source)
	if got := find(t, asBinding, "handler").Category; got != model.PrivateBindings {
		t.Errorf("default category = %s, want private-bindings", got)
	}

	opts := lang.DefaultClassifyOptions()
	opts.FunctionBindings = lang.AsFunction
	asFunction := setup(t, "javascript", opts)(source)
	if got := find(t, asFunction, "handler").Category; got != model.PrivateFunctions {
		t.Errorf("category = %s, want private-functions", got)
	}
}

func TestJavaScriptExportList(t *testing.T) {
	t.Parallel()
	extract := setup(t, "javascript", lang.DefaultClassifyOptions())

	decls := extract("function a() {}\nfunction b() {}\nexport { a };\n")
	if got := find(t, decls, "a").Category; got != model.ExportedFunctions {
		t.Errorf("a category = %s", got)
	}
	if got := find(t, decls, "b").Category; got != model.PrivateFunctions {
		t.Errorf("b category = %s", got)
	}
	if last := decls[len(decls)-1]; last.Category != model.ReExports {
		t.Errorf("export list category = %s", last.Category)
	}
}

func TestJavaScriptSkipsStatements(t *testing.T) {
	t.Parallel()
	extract := setup(t, "javascript", lang.DefaultClassifyOptions())

	decls := extract("main();\nfunction main() { let x = 1; return x; }\n")
	if !slices.Equal(names(decls), []string{"main"}) {
		t.Errorf("names = %v", names(decls))
	}
	if !refs(decls[0])["x"] {
		t.Error("local x should be shadowed")
	}
}

func TestTypeScriptBlockScopes(t *testing.T) {
	t.Parallel()
	extract := setup(t, "typescript", lang.DefaultClassifyOptions())

	decls := extract(`function main() { fetchData(); processData(1); render(); }
function fetchData() { return apiCall(); }
function processData(render: number) {
  if (render) { const transform = 1; }
  return transform();
}
function render() {}
function apiCall() {}
function transform() {}
`)

	p := find(t, decls, "processData")
	if !uses(p, "transform") {
		t.Error("processData: a const inside a nested block must not shadow the call after it")
	}
	if uses(p, "render") {
		t.Error("processData: parameter render should shadow the top-level function")
	}

	c, err := order.Assemble(decls, order.DefaultOptions())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	want := []string{"main", "fetchData", "processData", "render", "apiCall", "transform"}
	if got := c.Names(); !slices.Equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestJavaScriptScopeKinds(t *testing.T) {
	t.Parallel()
	extract := setup(t, "javascript", lang.DefaultClassifyOptions())

	tests := []struct {
		name   string
		source string
		ref    string
		want   bool
	}{
		{
			name:   "var hoists out of its block",
			source: "function f(x) { if (x) { var helper = 1; } return helper; }\nfunction helper() {}\n",
			ref:    "helper",
			want:   false,
		},
		{
			name:   "let stays in its block",
			source: "function f(x) { if (x) { let helper = 1; } return helper(); }\nfunction helper() {}\n",
			ref:    "helper",
			want:   true,
		},
		{
			name:   "for-of binding ends with the loop",
			source: "function f(xs) { for (const item of xs) { item(); } return item(); }\nfunction item() {}\n",
			ref:    "item",
			want:   true,
		},
		{
			name:   "catch parameter shadows inside the handler only",
			source: "function f() { try { g(); } catch (err) { err(); } }\nfunction err() {}\n",
			ref:    "err",
			want:   false,
		},
		{
			name:   "class in a block",
			source: "function f(x) { if (x) { class Node {} } return new Node(); }\nclass Node {}\n",
			ref:    "Node",
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			decls := extract(tt.source)
			if got := uses(find(t, decls, "f"), tt.ref); got != tt.want {
				t.Errorf("f references %s = %v, want %v", tt.ref, got, tt.want)
			}
		})
	}
}

func TestEmptySource(t *testing.T) {
	t.Parallel()
	extract := setup(t, "typescript", lang.DefaultClassifyOptions())

	if decls := extract(""); len(decls) != 0 {
		t.Errorf("expected no declarations, got %v", names(decls))
	}
}

func TestSyntaxError(t *testing.T) {
	t.Parallel()
	l := lang.Languages["javascript"]

	_, err := Declarations(context.Background(), l, l.NewParser(), []byte("function ( {"), lang.DefaultClassifyOptions())
	if err == nil {
		t.Error("expected an error for invalid source")
	}
}

// --- Python tests ---

const pySource = `"""Module doc."""
import os
from typing import List as L

__all__ = ["run", "Thing"]

class Thing:
    pass

LIMIT = 10
_cache = {}

def run(items):
    return [helper(i) for i in items]

@decorator
def helper(x, run=None):
    return run(x)
`

func TestPythonCategories(t *testing.T) {
	t.Parallel()
	extract := setup(t, "python", lang.DefaultClassifyOptions())

	decls := extract(pySource)
	want := []struct {
		name string
		cat  model.Category
	}{
		{"os", model.Imports},
		{"L", model.Imports},
		{"__all__", model.PrivateBindings},
		{"Thing", model.ExportedTypes},
		{"LIMIT", model.PrivateBindings},
		{"_cache", model.PrivateBindings},
		{"run", model.ExportedFunctions},
		{"helper", model.PrivateFunctions},
	}
	if len(decls) != len(want) {
		t.Fatalf("got %d declarations %v, want %d", len(decls), names(decls), len(want))
	}
	for i, w := range want {
		if decls[i].Name != w.name || decls[i].Category != w.cat {
			t.Errorf("decl %d = %s/%s, want %s/%s", i, decls[i].Name, decls[i].Category, w.name, w.cat)
		}
	}
}

func TestPythonReferences(t *testing.T) {
	t.Parallel()
	extract := setup(t, "python", lang.DefaultClassifyOptions())

	decls := extract(pySource)

	run := refs(find(t, decls, "run"))
	if shadowed, ok := run["helper"]; !ok || shadowed {
		t.Errorf("run: helper should be an unshadowed reference")
	}
	if !run["i"] {
		t.Error("run: comprehension variable should be shadowed")
	}

	helper := refs(find(t, decls, "helper"))
	if !helper["run"] {
		t.Error("helper: parameter run should shadow the top-level function")
	}
	if shadowed, ok := helper["decorator"]; !ok || shadowed {
		t.Error("helper: decorator should be a reference")
	}

	d := find(t, decls, "helper")
	if !strings.HasPrefix(pySource[d.Start:d.End], "@decorator") {
		t.Errorf("helper span = %q", pySource[d.Start:d.End])
	}
}

func TestPythonPrivateByUnderscore(t *testing.T) {
	t.Parallel()
	extract := setup(t, "python", lang.DefaultClassifyOptions())

	decls := extract("def public():\n    pass\n\ndef _private():\n    pass\n")
	if got := find(t, decls, "public").Category; got != model.ExportedFunctions {
		t.Errorf("public category = %s", got)
	}
	if got := find(t, decls, "_private").Category; got != model.PrivateFunctions {
		t.Errorf("_private category = %s", got)
	}
}

func TestPythonGlobalIsNotLocal(t *testing.T) {
	t.Parallel()
	extract := setup(t, "python", lang.DefaultClassifyOptions())

	decls := extract("counter = 0\n\ndef bump():\n    global counter\n    counter = counter + 1\n")
	if shadowed, ok := refs(find(t, decls, "bump"))["counter"]; !ok || shadowed {
		t.Errorf("bump: counter should reference the module binding (%v, %v)", ok, shadowed)
	}
}

func TestPythonParameterDefaults(t *testing.T) {
	t.Parallel()
	extract := setup(t, "python", lang.DefaultClassifyOptions())

	decls := extract("def a(helper=helper, *rest, limit: Limit = LIMIT):\n    return helper(rest, limit)\n\n\ndef helper():\n    pass\n")
	a := find(t, decls, "a")
	if !uses(a, "helper") {
		t.Error("a: the default value helper is evaluated outside the function")
	}
	for _, name := range []string{"Limit", "LIMIT"} {
		if !uses(a, name) {
			t.Errorf("a: %s should be a reference", name)
		}
	}
	for _, name := range []string{"rest", "limit"} {
		if uses(a, name) {
			t.Errorf("a: parameter %s should not be a reference", name)
		}
	}
	for _, id := range a.Body.Identifiers() {
		if id.Name == "helper" && id.Shadowed {
			return
		}
	}
	t.Error("a: helper in the body should be shadowed by the parameter")
}
